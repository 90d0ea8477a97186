package router

import (
	"github.com/gin-gonic/gin"
	"github.com/user/cinelist/internal/handler"
	"github.com/user/cinelist/internal/middleware"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	api := r.Group("/api")

	// 健康检查
	api.GET("/health", h.Health)

	// ==================== 认证（公开）====================
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/recovery", h.Recovery)
		auth.POST("/reset-password", h.ResetPassword)
	}

	// ==================== 列表（需要登录）====================
	lists := api.Group("/lists")
	lists.Use(middleware.RequireAuth(h.Config.AppSecret))
	{
		lists.GET("", h.GetLists)
		lists.POST("", h.CreateList)
		lists.POST("/add_movie", h.AddMovieToList)
		lists.GET("/:id", h.GetList)
		lists.PUT("/:id", h.RenameList)
		lists.DELETE("/:id", h.DeleteList)
		lists.DELETE("/:id/movies/:tmdbId", h.RemoveMovieFromList)
	}

	// 公开分享读取，不需要登录
	api.GET("/lists/public/:id", h.GetPublicList)

	// ==================== 观影记录（需要登录）====================
	watched := api.Group("/movie/watched")
	watched.Use(middleware.RequireAuth(h.Config.AppSecret))
	{
		watched.POST("", h.RecordWatched)
		watched.GET("", h.GetWatched)
		watched.GET("/count", h.CountWatched)
		watched.DELETE("/:tmdbId", h.DeleteWatched)
	}

	// ==================== 目录代理（公开）====================
	tmdb := api.Group("/tmdb")
	{
		tmdb.GET("/config", h.TMDBConfig)
		tmdb.GET("/popular", h.TMDBPopular)
		tmdb.GET("/search", h.TMDBSearch)
		tmdb.GET("/discover/movie", h.TMDBDiscover)
		tmdb.GET("/genres", h.TMDBGenres)
		tmdb.GET("/movie/genres", h.TMDBGenres)
		tmdb.GET("/movie/:id", h.TMDBMovieDetails)
		tmdb.GET("/movie/:id/credits", h.TMDBMovieCredits)
		tmdb.GET("/movie/:id/recommendations", h.TMDBMovieRecommendations)
	}
}
