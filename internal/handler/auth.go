package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/user/cinelist/internal/middleware"
	"github.com/user/cinelist/internal/model"
	"github.com/user/cinelist/internal/utils"
	"gorm.io/gorm"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RecoveryRequest 找回密码请求
type RecoveryRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// AuthResponse 注册/登录成功响应
type AuthResponse struct {
	Token string            `json:"token"`
	User  model.UserSummary `json:"user"`
}

// Register 注册：创建用户与三个主列表，返回会话令牌
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少必填字段：name、email、password")
		return
	}

	user, err := h.Repos.User.Register(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Conflict(c, "邮箱已被注册")
			return
		}
		utils.InternalServerError(c, "")
		return
	}

	token, err := middleware.GenerateToken(user.ID, middleware.PurposeSession, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.Created(c, AuthResponse{Token: token, User: user.Summary()})
}

// Login 登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少必填字段：email、password")
		return
	}

	user, err := h.Repos.User.FindByEmail(req.Email)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	// 邮箱不存在与密码错误返回同一响应，避免泄露账号是否存在
	if user == nil || !h.Repos.User.CheckPassword(user, req.Password) {
		utils.Unauthorized(c, "邮箱或密码错误")
		return
	}

	token, err := middleware.GenerateToken(user.ID, middleware.PurposeSession, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.Success(c, AuthResponse{Token: token, User: user.Summary()})
}

// Recovery 找回密码：签发短期找回令牌并发送邮件。
// 邮件投递失败不改变响应；未注册邮箱返回独立的 404（沿用既有对外行为）。
func (h *Handler) Recovery(c *gin.Context) {
	var req RecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少必填字段：email")
		return
	}

	user, err := h.Repos.User.FindByEmail(req.Email)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if user == nil {
		utils.NotFound(c, "邮箱未注册")
		return
	}

	token, err := middleware.GenerateToken(user.ID, middleware.PurposeRecovery, h.Config.AppSecret, h.Config.RecoveryExpiry)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	h.Mail.SendRecoveryAsync(req.Email, token)

	utils.SuccessWithMessage(c, "若邮箱已注册，找回说明已发送", nil)
}

// ResetPassword 重置密码：只接受找回用途的令牌
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少必填字段：token、new_password")
		return
	}

	userID, err := middleware.ParseToken(req.Token, h.Config.AppSecret, middleware.PurposeRecovery)
	if err != nil {
		if errors.Is(err, middleware.ErrTokenExpired) {
			utils.BadRequest(c, "令牌已过期")
			return
		}
		utils.BadRequest(c, "令牌无效")
		return
	}

	user, err := h.Repos.User.FindByID(userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if user == nil {
		utils.NotFound(c, "用户不存在")
		return
	}

	if err := h.Repos.User.UpdatePassword(userID, req.NewPassword); err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.SuccessWithMessage(c, "密码已重置", nil)
}
