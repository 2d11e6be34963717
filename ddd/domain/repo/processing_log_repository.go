package repo

import (
	"context"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/vo"
)

// ProcessingLogRepository 处理日志仓储接口
type ProcessingLogRepository interface {
	// Append 追加日志条目
	Append(ctx context.Context, entry *entity.ProcessingLogEntry) error
	// ListByItem 按条目倒序拉取日志
	ListByItem(ctx context.Context, itemUUID string, limit int) ([]*entity.ProcessingLogEntry, error)
	// TrimOld 按作业种类裁剪，保留最近keep条
	TrimOld(ctx context.Context, itemUUID string, kind vo.JobKind, keep int) error
}
