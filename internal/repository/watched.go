package repository

import (
	"errors"
	"time"

	"github.com/user/cinelist/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchedRepository struct {
	db *gorm.DB
}

func NewWatchedRepository(db *gorm.DB) *WatchedRepository {
	return &WatchedRepository{db: db}
}

// Record 标记观影。(user, movie) 已存在时只更新日期，否则新建记录，
// 并同步把电影加入该用户的主“已看”列表。两步写入在同一事务内完成。
// 返回记录与是否为新建。
func (r *WatchedRepository) Record(userID, tmdbID int, watchedAt time.Time) (*model.Watched, bool, error) {
	var record model.Watched
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND tmdb_id = ?", userID, tmdbID).First(&record).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = model.Watched{
				UserID:    userID,
				TMDBID:    tmdbID,
				WatchedAt: watchedAt,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			record.WatchedAt = watchedAt
			if err := tx.Model(&record).Update("watched_at", watchedAt).Error; err != nil {
				return err
			}
		}

		// 保持显式观影日志与“已看”主列表成员两种表示同步
		var watchedList model.List
		err = tx.Where("user_id = ? AND is_main = ? AND name = ?", userID, true, model.MainListWatched).
			First(&watchedList).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		entry := &model.ListMovie{ListID: watchedList.ID, TMDBID: tmdbID}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
	})
	if err != nil {
		return nil, false, err
	}

	return &record, created, nil
}

// ListByUser 获取用户的观影记录，按日期倒序
func (r *WatchedRepository) ListByUser(userID int) ([]*model.Watched, error) {
	var records []*model.Watched
	err := r.db.Where("user_id = ?", userID).Order("watched_at DESC").Find(&records).Error
	return records, err
}

// Remove 删除观影标记（不影响列表成员关系），返回是否确实存在过
func (r *WatchedRepository) Remove(userID, tmdbID int) (bool, error) {
	res := r.db.Where("user_id = ? AND tmdb_id = ?", userID, tmdbID).Delete(&model.Watched{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountBetween 统计区间内的观影数量，边界含当天。
// start 晚于 end 时区间为空，计数为零，不报错。
func (r *WatchedRepository) CountBetween(userID int, start, end *time.Time) (int64, error) {
	query := r.db.Model(&model.Watched{}).Where("user_id = ?", userID)
	if start != nil {
		query = query.Where("watched_at >= ?", *start)
	}
	if end != nil {
		// 含 end 当天全部时刻
		query = query.Where("watched_at < ?", end.AddDate(0, 0, 1))
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}
