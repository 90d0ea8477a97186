package repository

import (
	"errors"

	"github.com/user/cinelist/internal/model"
	"gorm.io/gorm"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByID 根据 TMDB ID 查找本地电影缓存
func (r *MovieRepository) FindByID(tmdbID int) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Where("tmdb_id = ?", tmdbID).First(&movie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Create 写入本地电影缓存。并发物化同一 ID 时，后到者得到
// gorm.ErrDuplicatedKey，由调用方当作命中处理。
func (r *MovieRepository) Create(movie *model.Movie) error {
	return r.db.Create(movie).Error
}
