package model

import (
	"time"

	"github.com/lib/pq"
)

// Movie 本地电影缓存（主键即 TMDB ID，首次被引用时物化，此后永不刷新）
type Movie struct {
	TMDBID      int            `json:"id" db:"tmdb_id" gorm:"primaryKey;autoIncrement:false;column:tmdb_id"`
	Title       string         `json:"title" db:"title" gorm:"not null"`
	Overview    string         `json:"overview" db:"overview"`
	PosterPath  string         `json:"poster_path" db:"poster_path"`
	ReleaseDate *time.Time     `json:"release_date" db:"release_date"`
	Rating      float64        `json:"vote_average" db:"rating"`
	Genres      pq.StringArray `json:"genres" db:"genres" gorm:"type:text[]"`
	Runtime     int            `json:"runtime,omitempty" db:"runtime"`
	CreatedAt   time.Time      `json:"-" db:"created_at"`
}
