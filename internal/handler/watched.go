package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/cinelist/internal/middleware"
	"github.com/user/cinelist/internal/utils"
)

// RecordWatchedRequest 标记观影请求
type RecordWatchedRequest struct {
	TMDBID    int    `json:"tmdb_id" binding:"required"`
	WatchedAt string `json:"watched_at" binding:"required,watcheddate"`
}

// WatchedSummary 观影记录摘要
type WatchedSummary struct {
	ID        int    `json:"id"`
	UserID    int    `json:"user_id"`
	TMDBID    int    `json:"tmdb_id"`
	WatchedAt string `json:"watched_at"`
}

// WatchedEntry 观影列表条目
type WatchedEntry struct {
	TMDBID    int    `json:"tmdb_id"`
	WatchedAt string `json:"watched_at"`
}

// RecordWatched 标记观影。先物化电影元数据，失败则整个操作不落库；
// 重复标记同一部电影只更新日期。
func (h *Handler) RecordWatched(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req RecordWatchedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "缺少 tmdb_id 或 watched_at（YYYY-MM-DD）")
		return
	}

	// binding 已保证格式合法
	watchedAt, _ := time.Parse("2006-01-02", req.WatchedAt)

	if _, err := h.TMDB.EnsureMovie(c.Request.Context(), req.TMDBID); err != nil {
		h.upstreamError(c, err)
		return
	}

	record, created, err := h.Repos.Watched.Record(userID, req.TMDBID, watchedAt)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	summary := WatchedSummary{
		ID:        record.ID,
		UserID:    record.UserID,
		TMDBID:    record.TMDBID,
		WatchedAt: record.WatchedAt.Format("2006-01-02"),
	}
	if created {
		utils.Created(c, summary)
		return
	}
	utils.SuccessWithMessage(c, "观影日期已更新", summary)
}

// GetWatched 获取观影记录列表，按日期倒序
func (h *Handler) GetWatched(c *gin.Context) {
	userID := middleware.GetUserID(c)

	records, err := h.Repos.Watched.ListByUser(userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	watched := make([]WatchedEntry, 0, len(records))
	for _, r := range records {
		watched = append(watched, WatchedEntry{
			TMDBID:    r.TMDBID,
			WatchedAt: r.WatchedAt.Format("2006-01-02"),
		})
	}

	utils.Success(c, gin.H{"user_id": userID, "watched": watched})
}

// DeleteWatched 删除观影标记（列表成员关系不受影响）
func (h *Handler) DeleteWatched(c *gin.Context) {
	userID := middleware.GetUserID(c)

	tmdbID, err := strconv.Atoi(c.Param("tmdbId"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	removed, err := h.Repos.Watched.Remove(userID, tmdbID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if !removed {
		utils.NotFound(c, "观影记录不存在")
		return
	}

	utils.SuccessWithMessage(c, "观影记录已删除", nil)
}

// CountWatched 统计日期区间内的观影数量（边界含当天）
func (h *Handler) CountWatched(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var start, end *time.Time
	if s := c.Query("start_date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			utils.BadRequest(c, "日期格式无效，应为 YYYY-MM-DD")
			return
		}
		start = &d
	}
	if s := c.Query("end_date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			utils.BadRequest(c, "日期格式无效，应为 YYYY-MM-DD")
			return
		}
		end = &d
	}

	count, err := h.Repos.Watched.CountBetween(userID, start, end)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.Success(c, gin.H{"user_id": userID, "count": count})
}
