package persistence

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/infrastructure/database/dao"
	"media-service/ddd/infrastructure/database/po"
)

func newTestRepo(t *testing.T) repo.MediaItemRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&po.MediaItem{}))
	return NewMediaItemRepositoryWithDAO(dao.NewMediaItemDAOWithDB(db))
}

func TestGetMediaItemUnknownReturnsNil(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	// 查不到要返回nil而不是错误，上层据此给404
	item, err := r.GetMediaItem(ctx, "no-such-uuid")
	require.NoError(t, err)
	assert.Nil(t, item)

	item, err = r.GetMediaItemBySlug(ctx, "no-such-slug")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestCreateAndGetMediaItem(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	created := entity.NewMediaItemEntity("demo", "Demo", "uploads/demo.mp4")
	require.NoError(t, r.CreateMediaItem(ctx, created))

	loaded, err := r.GetMediaItem(ctx, created.ItemUUID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, created.ItemUUID(), loaded.ItemUUID())
	assert.Equal(t, "demo", loaded.Slug())
	assert.Equal(t, "uploads/demo.mp4", loaded.OriginalPath())

	bySlug, err := r.GetMediaItemBySlug(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.Equal(t, created.ItemUUID(), bySlug.ItemUUID())
}
