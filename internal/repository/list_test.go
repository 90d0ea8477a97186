package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinelist/internal/model"
	"gorm.io/gorm"
)

func TestListOwnershipScoping(t *testing.T) {
	repos := NewRepositories(newTestDB(t))

	ana, err := repos.User.Register("Ana", "ana@example.com", "secret")
	require.NoError(t, err)
	bia, err := repos.User.Register("Bia", "bia@example.com", "secret")
	require.NoError(t, err)

	list, err := repos.List.Create(ana.ID, "Fim de semana")
	require.NoError(t, err)
	assert.False(t, list.IsMain)

	// 本人能查到
	found, err := repos.List.FindByIDAndUser(list.ID, ana.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	// 他人查不到，与不存在不可区分
	found, err = repos.List.FindByIDAndUser(list.ID, bia.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// 公开读取不校验归属
	found, err = repos.List.FindByID(list.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestAddMovieDuplicate(t *testing.T) {
	repos := NewRepositories(newTestDB(t))

	ana, err := repos.User.Register("Ana", "ana@example.com", "secret")
	require.NoError(t, err)
	list, err := repos.List.Create(ana.ID, "Fim de semana")
	require.NoError(t, err)

	require.NoError(t, repos.List.AddMovie(list.ID, 603))

	err = repos.List.AddMovie(list.ID, 603)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	// 重复添加后仍然只有一行
	entries, err := repos.List.MoviesByList(list.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoveMovie(t *testing.T) {
	repos := NewRepositories(newTestDB(t))

	ana, err := repos.User.Register("Ana", "ana@example.com", "secret")
	require.NoError(t, err)
	list, err := repos.List.Create(ana.ID, "Fim de semana")
	require.NoError(t, err)
	require.NoError(t, repos.List.AddMovie(list.ID, 603))

	removed, err := repos.List.RemoveMovie(list.ID, 603)
	require.NoError(t, err)
	assert.True(t, removed)

	// 再删一次：不存在
	removed, err = repos.List.RemoveMovie(list.ID, 603)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeleteListCascadesMemberships(t *testing.T) {
	repos := NewRepositories(newTestDB(t))

	ana, err := repos.User.Register("Ana", "ana@example.com", "secret")
	require.NoError(t, err)
	list, err := repos.List.Create(ana.ID, "Fim de semana")
	require.NoError(t, err)
	require.NoError(t, repos.List.AddMovie(list.ID, 603))
	require.NoError(t, repos.List.AddMovie(list.ID, 604))

	require.NoError(t, repos.List.Delete(list.ID))

	found, err := repos.List.FindByID(list.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	var count int64
	require.NoError(t, repos.DB.Model(&model.ListMovie{}).Where("list_id = ?", list.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRenameList(t *testing.T) {
	repos := NewRepositories(newTestDB(t))

	ana, err := repos.User.Register("Ana", "ana@example.com", "secret")
	require.NoError(t, err)
	list, err := repos.List.Create(ana.ID, "Velho nome")
	require.NoError(t, err)

	require.NoError(t, repos.List.Rename(list.ID, "Novo nome"))

	found, err := repos.List.FindByID(list.ID)
	require.NoError(t, err)
	assert.Equal(t, "Novo nome", found.Name)
}
