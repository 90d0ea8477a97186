package model

import (
	"crypto/rand"
	"math/big"

	"gorm.io/gorm"
)

// ListIDLength 列表 ID 固定长度
const ListIDLength = 10

// 三个注册时自动创建的主列表名称
const (
	MainListToWatch   = "To Watch"
	MainListWatched   = "Watched"
	MainListFavorites = "Favorites"
)

// List 电影列表
type List struct {
	ID     string `json:"id" db:"id" gorm:"primaryKey;size:10"`
	Name   string `json:"name" db:"name" gorm:"not null"`
	IsMain bool   `json:"is_main" db:"is_main"`
	UserID int    `json:"user_id" db:"user_id" gorm:"index;not null"`
}

// ListMovie 列表与电影的关联（按 TMDB ID 关联，而非本地行 ID）
type ListMovie struct {
	ID     int    `json:"id" db:"id" gorm:"primaryKey"`
	ListID string `json:"list_id" db:"list_id" gorm:"size:10;uniqueIndex:idx_list_movie;not null"`
	TMDBID int    `json:"tmdb_id" db:"tmdb_id" gorm:"uniqueIndex:idx_list_movie;not null"`
}

const listIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewListID 生成随机列表 ID（小写字母+数字，碰撞概率可忽略）
func NewListID() string {
	b := make([]byte, ListIDLength)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(listIDAlphabet))))
		b[i] = listIDAlphabet[n.Int64()]
	}
	return string(b)
}

// BeforeCreate 创建前自动生成 ID
func (l *List) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = NewListID()
	}
	return nil
}
