package repo

import (
	"context"
	"time"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/vo"
)

// MediaItemRepository 媒体条目仓储接口
type MediaItemRepository interface {
	// CreateMediaItem 创建媒体条目
	CreateMediaItem(ctx context.Context, item *entity.MediaItemEntity) error
	// SaveMediaItem 全量保存实体当前状态
	SaveMediaItem(ctx context.Context, item *entity.MediaItemEntity) error
	GetMediaItem(ctx context.Context, itemUUID string) (*entity.MediaItemEntity, error)
	GetMediaItemBySlug(ctx context.Context, slug string) (*entity.MediaItemEntity, error)

	// UpdateProgress 轻量进度写入，供节流后的进度回调使用
	UpdateProgress(ctx context.Context, itemUUID string, percent int) error
	// UpdateHeartbeat 轻量心跳写入
	UpdateHeartbeat(ctx context.Context, itemUUID string, at time.Time) error

	// QueryByState 按状态查询（巡检用），按更新时间升序
	QueryByState(ctx context.Context, states []vo.ProcessingState, limit int) ([]*entity.MediaItemEntity, error)
}
