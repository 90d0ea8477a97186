package model

import (
	"time"
)

// Watched 观影记录（每用户每部电影至多一条，重复标记只更新日期）
type Watched struct {
	ID        int       `json:"id" db:"id" gorm:"primaryKey"`
	UserID    int       `json:"user_id" db:"user_id" gorm:"uniqueIndex:idx_user_watched;not null"`
	TMDBID    int       `json:"tmdb_id" db:"tmdb_id" gorm:"uniqueIndex:idx_user_watched;not null"`
	WatchedAt time.Time `json:"watched_at" db:"watched_at" gorm:"not null"`
}
