package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/cinelist/internal/middleware"
	"github.com/user/cinelist/internal/model"
	"github.com/user/cinelist/internal/service"
	"github.com/user/cinelist/internal/utils"
	"gorm.io/gorm"
)

// CreateListRequest 创建/重命名列表请求
type CreateListRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddMovieRequest 向列表添加电影请求
type AddMovieRequest struct {
	ListID string `json:"list_id" binding:"required"`
	TMDBID int    `json:"tmdb_id" binding:"required"`
}

// ListSummary 列表摘要
type ListSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsMain bool   `json:"is_main"`
	UserID int    `json:"user_id"`
}

// ListDetail 列表详情（含电影条目）
type ListDetail struct {
	ListSummary
	Movies []ListMovieEntry `json:"movies"`
}

// ListMovieEntry 列表内的电影条目
type ListMovieEntry struct {
	TMDBID int `json:"tmdb_id"`
}

func toSummary(l *model.List) ListSummary {
	return ListSummary{ID: l.ID, Name: l.Name, IsMain: l.IsMain, UserID: l.UserID}
}

// GetLists 获取当前用户的全部列表
func (h *Handler) GetLists(c *gin.Context) {
	userID := middleware.GetUserID(c)

	lists, err := h.Repos.List.ListByUser(userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	result := make([]ListSummary, 0, len(lists))
	for _, l := range lists {
		result = append(result, toSummary(l))
	}
	utils.Success(c, result)
}

// CreateList 创建普通列表
func (h *Handler) CreateList(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少必填字段：name")
		return
	}

	list, err := h.Repos.List.Create(userID, req.Name)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.Created(c, toSummary(list))
}

// AddMovieToList 向列表添加电影。先物化电影元数据，元数据失败则整个操作失败，
// 不会留下悬空的电影 ID。
func (h *Handler) AddMovieToList(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req AddMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少必填字段：list_id、tmdb_id")
		return
	}

	list, err := h.Repos.List.FindByIDAndUser(req.ListID, userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if list == nil {
		utils.NotFound(c, "列表不存在或无权访问")
		return
	}

	if _, err := h.TMDB.EnsureMovie(c.Request.Context(), req.TMDBID); err != nil {
		h.upstreamError(c, err)
		return
	}

	if err := h.Repos.List.AddMovie(req.ListID, req.TMDBID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Conflict(c, "电影已在列表中")
			return
		}
		utils.InternalServerError(c, "")
		return
	}

	utils.Created(c, ListMovieEntry{TMDBID: req.TMDBID})
}

// GetList 获取列表详情（仅限本人）
func (h *Handler) GetList(c *gin.Context) {
	userID := middleware.GetUserID(c)
	listID := c.Param("id")

	list, err := h.Repos.List.FindByIDAndUser(listID, userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if list == nil {
		utils.NotFound(c, "列表不存在或无权访问")
		return
	}

	h.renderListDetail(c, list)
}

// GetPublicList 公开读取列表详情：任何人持列表 ID 即可查看，
// 这是有意的分享功能，不做归属校验。
func (h *Handler) GetPublicList(c *gin.Context) {
	listID := c.Param("id")

	list, err := h.Repos.List.FindByID(listID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if list == nil {
		utils.NotFound(c, "列表不存在")
		return
	}

	h.renderListDetail(c, list)
}

func (h *Handler) renderListDetail(c *gin.Context, list *model.List) {
	entries, err := h.Repos.List.MoviesByList(list.ID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	detail := ListDetail{
		ListSummary: toSummary(list),
		Movies:      make([]ListMovieEntry, 0, len(entries)),
	}
	for _, e := range entries {
		detail.Movies = append(detail.Movies, ListMovieEntry{TMDBID: e.TMDBID})
	}
	utils.Success(c, detail)
}

// RenameList 重命名列表
func (h *Handler) RenameList(c *gin.Context) {
	userID := middleware.GetUserID(c)
	listID := c.Param("id")

	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少必填字段：name")
		return
	}

	list, err := h.Repos.List.FindByIDAndUser(listID, userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if list == nil {
		utils.NotFound(c, "列表不存在或无权访问")
		return
	}
	if list.IsMain && !h.Config.AllowMainListRename {
		utils.Forbidden(c, "主列表不允许重命名")
		return
	}

	if err := h.Repos.List.Rename(listID, req.Name); err != nil {
		utils.InternalServerError(c, "")
		return
	}

	list.Name = req.Name
	utils.Success(c, toSummary(list))
}

// DeleteList 删除列表。主列表受保护，普通列表连同成员关系一起删除。
func (h *Handler) DeleteList(c *gin.Context) {
	userID := middleware.GetUserID(c)
	listID := c.Param("id")

	list, err := h.Repos.List.FindByIDAndUser(listID, userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if list == nil {
		utils.NotFound(c, "列表不存在或无权访问")
		return
	}
	if list.IsMain {
		utils.Forbidden(c, "主列表不允许删除")
		return
	}

	if err := h.Repos.List.Delete(listID); err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.SuccessWithMessage(c, "列表已删除", nil)
}

// RemoveMovieFromList 从列表移除电影
func (h *Handler) RemoveMovieFromList(c *gin.Context) {
	userID := middleware.GetUserID(c)
	listID := c.Param("id")

	tmdbID, err := strconv.Atoi(c.Param("tmdbId"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	list, err := h.Repos.List.FindByIDAndUser(listID, userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if list == nil {
		utils.NotFound(c, "列表不存在或无权访问")
		return
	}

	removed, err := h.Repos.List.RemoveMovie(listID, tmdbID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if !removed {
		utils.NotFound(c, "电影不在该列表中")
		return
	}

	utils.SuccessWithMessage(c, "电影已从列表移除", nil)
}

// upstreamError 把元数据物化失败翻译成对外错误：
// 目录查无此片是 404，目录不可用是 502，本地数据不受影响。
func (h *Handler) upstreamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUpstreamNotFound):
		utils.NotFound(c, "目录中不存在该电影")
	case errors.Is(err, service.ErrNotConfigured):
		utils.InternalServerError(c, "未配置目录服务")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		utils.BadGateway(c, "")
	default:
		utils.InternalServerError(c, "")
	}
}
