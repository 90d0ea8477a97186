package repository

import (
	"errors"

	"github.com/user/cinelist/internal/model"
	"gorm.io/gorm"
)

type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

// Create 创建普通列表（非主列表）
func (r *ListRepository) Create(userID int, name string) (*model.List, error) {
	list := &model.List{
		Name:   name,
		IsMain: false,
		UserID: userID,
	}
	if err := r.db.Create(list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListByUser 获取用户的全部列表
func (r *ListRepository) ListByUser(userID int) ([]*model.List, error) {
	var lists []*model.List
	err := r.db.Where("user_id = ?", userID).Order("is_main DESC, name ASC").Find(&lists).Error
	return lists, err
}

// FindByIDAndUser 按 ID 和归属查找列表。查不到与无权访问不做区分，
// 避免通过探测得知他人列表是否存在。
func (r *ListRepository) FindByIDAndUser(listID string, userID int) (*model.List, error) {
	var list model.List
	err := r.db.Where("id = ? AND user_id = ?", listID, userID).First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// FindByID 按 ID 查找列表（公开分享读取，不校验归属）
func (r *ListRepository) FindByID(listID string) (*model.List, error) {
	var list model.List
	err := r.db.Where("id = ?", listID).First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// Rename 重命名列表（归属校验由调用方完成）
func (r *ListRepository) Rename(listID string, name string) error {
	return r.db.Model(&model.List{}).Where("id = ?", listID).Update("name", name).Error
}

// Delete 删除列表并级联删除其所有成员关系
func (r *ListRepository) Delete(listID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", listID).Delete(&model.ListMovie{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", listID).Delete(&model.List{}).Error
	})
}

// AddMovie 向列表添加电影。重复添加返回 gorm.ErrDuplicatedKey。
func (r *ListRepository) AddMovie(listID string, tmdbID int) error {
	entry := &model.ListMovie{
		ListID: listID,
		TMDBID: tmdbID,
	}
	return r.db.Create(entry).Error
}

// RemoveMovie 从列表移除电影，返回是否确实存在过
func (r *ListRepository) RemoveMovie(listID string, tmdbID int) (bool, error) {
	res := r.db.Where("list_id = ? AND tmdb_id = ?", listID, tmdbID).Delete(&model.ListMovie{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MoviesByList 获取列表内全部电影条目
func (r *ListRepository) MoviesByList(listID string) ([]*model.ListMovie, error) {
	var entries []*model.ListMovie
	err := r.db.Where("list_id = ?", listID).Order("id ASC").Find(&entries).Error
	return entries, err
}
