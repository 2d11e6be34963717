package persistence

import (
	"context"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/convertor"
	"media-service/ddd/infrastructure/database/dao"
)

type processingLogRepositoryImpl struct {
	dao *dao.ProcessingLogDAO
	cvt *convertor.ProcessingLogConvertor
}

func NewProcessingLogRepository() repo.ProcessingLogRepository {
	return &processingLogRepositoryImpl{dao: dao.NewProcessingLogDAO(), cvt: convertor.NewProcessingLogConvertor()}
}

func (r *processingLogRepositoryImpl) Append(ctx context.Context, entry *entity.ProcessingLogEntry) error {
	return r.dao.Create(ctx, r.cvt.ToPO(entry))
}

func (r *processingLogRepositoryImpl) ListByItem(ctx context.Context, itemUUID string, limit int) ([]*entity.ProcessingLogEntry, error) {
	pos, err := r.dao.ListByItem(ctx, itemUUID, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]*entity.ProcessingLogEntry, 0, len(pos))
	for _, p := range pos {
		entries = append(entries, r.cvt.ToEntity(p))
	}
	return entries, nil
}

func (r *processingLogRepositoryImpl) TrimOld(ctx context.Context, itemUUID string, kind vo.JobKind, keep int) error {
	return r.dao.TrimOld(ctx, itemUUID, kind.String(), keep)
}
