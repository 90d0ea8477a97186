package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/cinelist/internal/utils"
)

// Token 用途声明。找回密码令牌是单一用途的，
// 不能当作会话凭证访问受保护资源，反之亦然。
const (
	PurposeSession  = "session"
	PurposeRecovery = "recovery"
)

// 凭证校验错误
var (
	ErrMissingToken = errors.New("缺少凭证")
	ErrWrongPurpose = errors.New("令牌用途不匹配")
	ErrTokenExpired = errors.New("令牌已过期")
	ErrTokenInvalid = errors.New("令牌无效")
)

// Claims JWT 声明
type Claims struct {
	UserID  int    `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateToken 生成指定用途的 JWT Token
func GenerateToken(userID int, purpose, jwtSecret string, expiry time.Duration) (string, error) {
	claims := &Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ParseToken 校验签名、有效期与用途，返回用户 ID
func ParseToken(tokenString, jwtSecret, purpose string) (int, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return 0, ErrWrongPurpose
	}

	return claims.UserID, nil
}

// RequireAuth 必须登录中间件：从 Authorization 头提取 Bearer 令牌，
// 校验通过后把用户 ID 注入上下文。各操作必须自行按该 ID 过滤数据，
// 中间件不负责资源归属判断。
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractBearer(c)
		if err != nil {
			utils.Unauthorized(c, "缺少或格式错误的凭证")
			c.Abort()
			return
		}

		userID, err := ParseToken(tokenString, jwtSecret, PurposeSession)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				utils.Unauthorized(c, "令牌已过期")
			case errors.Is(err, ErrWrongPurpose):
				utils.Unauthorized(c, "令牌用途不匹配")
			default:
				utils.Unauthorized(c, "令牌无效")
			}
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// extractBearer 从 Authorization 头提取令牌
func extractBearer(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", ErrMissingToken
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		return "", ErrMissingToken
	}
	return tokenString, nil
}

// GetUserID 从上下文获取用户 ID（未登录返回 0）
func GetUserID(c *gin.Context) int {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(int)
	}
	return 0
}
