package dao

import (
	"context"

	"gorm.io/gorm"

	"media-service/ddd/infrastructure/database/po"
	"media-service/internal/resource"
)

type ProcessingLogDAO struct {
	db *gorm.DB
}

func NewProcessingLogDAO() *ProcessingLogDAO {
	return &ProcessingLogDAO{db: resource.DefaultMysqlResource().MainDB()}
}

// NewProcessingLogDAOWithDB 测试注入用
func NewProcessingLogDAOWithDB(db *gorm.DB) *ProcessingLogDAO {
	return &ProcessingLogDAO{db: db}
}

func (d *ProcessingLogDAO) Create(ctx context.Context, entry *po.ProcessingLog) error {
	return d.db.WithContext(ctx).Model(&po.ProcessingLog{}).Create(entry).Error
}

func (d *ProcessingLogDAO) ListByItem(ctx context.Context, itemUUID string, limit int) ([]*po.ProcessingLog, error) {
	var entries []*po.ProcessingLog
	q := d.db.WithContext(ctx).Where("item_uuid = ?", itemUUID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// TrimOld 保留item+kind维度最近keep条，其余删除
func (d *ProcessingLogDAO) TrimOld(ctx context.Context, itemUUID, jobKind string, keep int) error {
	if keep <= 0 {
		return nil
	}
	var ids []int64
	err := d.db.WithContext(ctx).Model(&po.ProcessingLog{}).
		Where("item_uuid = ? AND job_kind = ?", itemUUID, jobKind).
		Order("id DESC").
		Limit(keep).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) < keep {
		return nil
	}
	return d.db.WithContext(ctx).
		Where("item_uuid = ? AND job_kind = ? AND id NOT IN ?", itemUUID, jobKind, ids).
		Delete(&po.ProcessingLog{}).Error
}
