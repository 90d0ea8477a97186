package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/cinelist/internal/utils"
)

// TMDBConfig 目录图片配置（透传）
func (h *Handler) TMDBConfig(c *gin.Context) {
	result, err := h.TMDB.Configuration(c.Request.Context())
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	utils.Success(c, result)
}

// TMDBPopular 热门电影
func (h *Handler) TMDBPopular(c *gin.Context) {
	page, err := h.TMDB.Popular(c.Request.Context(), c.Query("page"), c.Query("language"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	utils.Success(c, page)
}

// TMDBSearch 按关键词搜索电影
func (h *Handler) TMDBSearch(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		utils.BadRequest(c, "缺少搜索关键词")
		return
	}

	page, err := h.TMDB.Search(c.Request.Context(), query, c.Query("page"), c.Query("language"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	utils.Success(c, page)
}

// TMDBDiscover 按类型发现电影
func (h *Handler) TMDBDiscover(c *gin.Context) {
	genreID := c.Query("with_genres")
	if genreID == "" {
		utils.BadRequest(c, "缺少类型参数 with_genres")
		return
	}

	page, err := h.TMDB.Discover(c.Request.Context(), genreID, c.Query("page"), c.Query("language"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	utils.Success(c, page)
}

// TMDBGenres 电影类型字典
func (h *Handler) TMDBGenres(c *gin.Context) {
	result, err := h.TMDB.Genres(c.Request.Context(), c.Query("language"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	utils.Success(c, result)
}

// TMDBMovieDetails 电影详情。默认语言下这是唯一带本地缓存的代理读路径。
func (h *Handler) TMDBMovieDetails(c *gin.Context) {
	tmdbID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	result, err := h.TMDB.MovieDetails(c.Request.Context(), tmdbID, c.Query("append_to_response"), c.Query("language"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	utils.Success(c, result)
}

// TMDBMovieCredits 演职员表
func (h *Handler) TMDBMovieCredits(c *gin.Context) {
	tmdbID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	result, err := h.TMDB.Credits(c.Request.Context(), tmdbID, c.Query("language"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	utils.Success(c, result)
}

// TMDBMovieRecommendations 相似推荐
func (h *Handler) TMDBMovieRecommendations(c *gin.Context) {
	tmdbID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	page, err := h.TMDB.Recommendations(c.Request.Context(), tmdbID, c.Query("page"), c.Query("language"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	utils.Success(c, page)
}

// Health 健康检查：探测目录服务是否可达
func (h *Handler) Health(c *gin.Context) {
	if err := h.TMDB.Health(c.Request.Context()); err != nil {
		c.JSON(503, gin.H{"status": "error", "message": "目录服务不可达"})
		return
	}
	c.JSON(200, gin.H{"status": "ok", "tmdb_reachable": true})
}
