package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/convertor"
	"media-service/ddd/infrastructure/database/dao"
)

type mediaItemRepositoryImpl struct {
	dao *dao.MediaItemDAO
	cvt *convertor.MediaItemConvertor
}

func NewMediaItemRepository() repo.MediaItemRepository {
	return &mediaItemRepositoryImpl{dao: dao.NewMediaItemDAO(), cvt: convertor.NewMediaItemConvertor()}
}

// NewMediaItemRepositoryWithDAO 测试注入用
func NewMediaItemRepositoryWithDAO(d *dao.MediaItemDAO) repo.MediaItemRepository {
	return &mediaItemRepositoryImpl{dao: d, cvt: convertor.NewMediaItemConvertor()}
}

func (r *mediaItemRepositoryImpl) CreateMediaItem(ctx context.Context, item *entity.MediaItemEntity) error {
	return r.dao.Create(ctx, r.cvt.ToPO(item))
}

func (r *mediaItemRepositoryImpl) SaveMediaItem(ctx context.Context, item *entity.MediaItemEntity) error {
	return r.dao.Save(ctx, r.cvt.ToPO(item))
}

func (r *mediaItemRepositoryImpl) GetMediaItem(ctx context.Context, itemUUID string) (*entity.MediaItemEntity, error) {
	p, err := r.dao.FindByUUID(ctx, itemUUID)
	if err != nil {
		// 查不到不是错误，调用方按nil判断
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.cvt.ToEntity(p), nil
}

func (r *mediaItemRepositoryImpl) GetMediaItemBySlug(ctx context.Context, slug string) (*entity.MediaItemEntity, error) {
	p, err := r.dao.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.cvt.ToEntity(p), nil
}

func (r *mediaItemRepositoryImpl) UpdateProgress(ctx context.Context, itemUUID string, percent int) error {
	return r.dao.UpdateProgress(ctx, itemUUID, percent)
}

func (r *mediaItemRepositoryImpl) UpdateHeartbeat(ctx context.Context, itemUUID string, at time.Time) error {
	return r.dao.UpdateHeartbeat(ctx, itemUUID, at)
}

func (r *mediaItemRepositoryImpl) QueryByState(ctx context.Context, states []vo.ProcessingState, limit int) ([]*entity.MediaItemEntity, error) {
	raw := make([]string, 0, len(states))
	for _, s := range states {
		raw = append(raw, s.String())
	}
	pos, err := r.dao.QueryByState(ctx, raw, limit)
	if err != nil {
		return nil, err
	}
	entities := make([]*entity.MediaItemEntity, 0, len(pos))
	for _, p := range pos {
		entities = append(entities, r.cvt.ToEntity(p))
	}
	return entities, nil
}
