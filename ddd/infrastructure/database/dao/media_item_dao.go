package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"media-service/ddd/infrastructure/database/po"
	"media-service/internal/resource"
)

type MediaItemDAO struct {
	db *gorm.DB
}

func NewMediaItemDAO() *MediaItemDAO {
	return &MediaItemDAO{db: resource.DefaultMysqlResource().MainDB()}
}

// NewMediaItemDAOWithDB 测试注入用
func NewMediaItemDAOWithDB(db *gorm.DB) *MediaItemDAO {
	return &MediaItemDAO{db: db}
}

func (d *MediaItemDAO) Create(ctx context.Context, item *po.MediaItem) error {
	return d.db.WithContext(ctx).Model(&po.MediaItem{}).Create(item).Error
}

func (d *MediaItemDAO) Save(ctx context.Context, item *po.MediaItem) error {
	return d.db.WithContext(ctx).Model(&po.MediaItem{}).
		Where("item_uuid = ?", item.ItemUUID).
		Select("*").Omit("id", "item_uuid", "created_at").
		Updates(item).Error
}

func (d *MediaItemDAO) FindByUUID(ctx context.Context, itemUUID string) (*po.MediaItem, error) {
	var item po.MediaItem
	if err := d.db.WithContext(ctx).Where("item_uuid = ?", itemUUID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *MediaItemDAO) FindBySlug(ctx context.Context, slug string) (*po.MediaItem, error) {
	var item po.MediaItem
	if err := d.db.WithContext(ctx).Where("slug = ?", slug).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *MediaItemDAO) UpdateProgress(ctx context.Context, itemUUID string, percent int) error {
	return d.db.WithContext(ctx).Model(&po.MediaItem{}).
		Where("item_uuid = ?", itemUUID).
		Update("progress", percent).Error
}

func (d *MediaItemDAO) UpdateHeartbeat(ctx context.Context, itemUUID string, at time.Time) error {
	return d.db.WithContext(ctx).Model(&po.MediaItem{}).
		Where("item_uuid = ?", itemUUID).
		Update("last_heartbeat_at", at).Error
}

func (d *MediaItemDAO) QueryByState(ctx context.Context, states []string, limit int) ([]*po.MediaItem, error) {
	var items []*po.MediaItem
	q := d.db.WithContext(ctx).Where("state IN ?", states).Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
