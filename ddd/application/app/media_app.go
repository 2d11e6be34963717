package app

import (
	"context"
	"sync"

	"media-service/ddd/application/cqe"
	"media-service/ddd/application/dto"
	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/service"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/persistence"
	"media-service/ddd/infrastructure/progress"
	"media-service/ddd/infrastructure/worker"
	"media-service/internal/resource"
	"media-service/pkg/assert"
	"media-service/pkg/config"
	"media-service/pkg/errno"
	"media-service/pkg/logger"
)

var (
	singleMediaApp MediaApp
	onceMediaApp   sync.Once
)

// MediaApp 媒体应用服务
type MediaApp interface {
	// RegisterMedia 登记媒体条目并立即派发元数据提取
	RegisterMedia(ctx context.Context, req *cqe.RegisterMediaReq) (*dto.MediaItemDTO, error)
	// EnqueueProcessing 触发一类后台处理
	EnqueueProcessing(ctx context.Context, req *cqe.EnqueueProcessingReq) (*dto.EnqueueResultDTO, error)
	// RetryProcessing 失败后重试
	RetryProcessing(ctx context.Context, req *cqe.RetryProcessingReq) (*dto.EnqueueResultDTO, error)
	// GetMedia 获取媒体条目详情，标识可以是UUID或slug
	GetMedia(ctx context.Context, idOrSlug string) (*dto.MediaItemDTO, error)
	// GetStatus 轮询处理状态，进度优先读Redis热数据
	GetStatus(ctx context.Context, req *cqe.QueryStatusReq) (*dto.MediaStatusDTO, error)
	// ListLogs 拉取处理日志
	ListLogs(ctx context.Context, req *cqe.ListLogsReq) ([]*dto.ProcessingLogDTO, error)
}

type mediaAppImpl struct {
	itemRepo repo.MediaItemRepository
	ledger   service.ProcessingLogService
	pipeline service.PipelineService
}

// DefaultMediaApp 获取媒体应用服务单例
func DefaultMediaApp() MediaApp {
	assert.NotCircular()
	onceMediaApp.Do(func() {
		cfg := config.GetGlobalConfig()
		itemRepo := persistence.NewMediaItemRepository()
		ledger := service.NewProcessingLogService(persistence.NewProcessingLogRepository(), cfg.Pipeline.KeepLogs)
		singleMediaApp = NewMediaAppWith(itemRepo, ledger, worker.BuildPipelineService(cfg))
	})
	assert.NotNil(singleMediaApp)
	return singleMediaApp
}

// NewMediaAppWith 按显式依赖创建，测试用
func NewMediaAppWith(itemRepo repo.MediaItemRepository, ledger service.ProcessingLogService,
	pipeline service.PipelineService) MediaApp {
	return &mediaAppImpl{
		itemRepo: itemRepo,
		ledger:   ledger,
		pipeline: pipeline,
	}
}

// RegisterMedia 登记媒体条目并立即派发元数据提取
func (a *mediaAppImpl) RegisterMedia(ctx context.Context, req *cqe.RegisterMediaReq) (*dto.MediaItemDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// slug唯一：已存在的登记直接返回，登记是幂等的
	if existing, err := a.itemRepo.GetMediaItemBySlug(ctx, req.Slug); err == nil && existing != nil {
		return dto.NewMediaItemDto(existing), nil
	}

	item := entity.NewMediaItemEntity(req.Slug, req.Title, req.OriginalPath)
	if err := a.itemRepo.CreateMediaItem(ctx, item); err != nil {
		return nil, &errno.Errno{Code: errno.ErrDatabase.Code, Message: "create media item: " + err.Error()}
	}

	// 元数据提取独立于重转码路径，失败不阻塞条目发布
	if _, err := a.pipeline.Enqueue(ctx, item, vo.JobKindMetadata, "register"); err != nil {
		logger.Warnf("metadata enqueue failed item_uuid=%s error=%s", item.ItemUUID(), err.Error())
	}

	logger.Infof("media item registered item_uuid=%s slug=%s", item.ItemUUID(), item.Slug())
	return dto.NewMediaItemDto(item), nil
}

// EnqueueProcessing 触发一类后台处理
func (a *mediaAppImpl) EnqueueProcessing(ctx context.Context, req *cqe.EnqueueProcessingReq) (*dto.EnqueueResultDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	kind, _ := vo.ParseJobKind(req.Kind)

	item, err := a.loadItem(ctx, req.ItemUUID)
	if err != nil {
		return nil, err
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual"
	}
	queueName, err := a.pipeline.Enqueue(ctx, item, kind, reason)
	if err != nil {
		return nil, err
	}
	return &dto.EnqueueResultDTO{
		ItemUUID: item.ItemUUID(),
		Kind:     kind.String(),
		Queue:    queueName,
		State:    item.State().String(),
	}, nil
}

// RetryProcessing 失败后重试
func (a *mediaAppImpl) RetryProcessing(ctx context.Context, req *cqe.RetryProcessingReq) (*dto.EnqueueResultDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return a.EnqueueProcessing(ctx, &cqe.EnqueueProcessingReq{
		ItemUUID: req.ItemUUID,
		Kind:     req.Kind,
		Reason:   "retry",
	})
}

// GetMedia 获取媒体条目详情
func (a *mediaAppImpl) GetMedia(ctx context.Context, idOrSlug string) (*dto.MediaItemDTO, error) {
	if idOrSlug == "" {
		return nil, errno.ErrItemUUIDRequired
	}
	item, err := a.findItem(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	return dto.NewMediaItemDto(item), nil
}

// GetStatus 轮询处理状态
func (a *mediaAppImpl) GetStatus(ctx context.Context, req *cqe.QueryStatusReq) (*dto.MediaStatusDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	item, err := a.loadItem(ctx, req.ItemUUID)
	if err != nil {
		return nil, err
	}

	// 进行中的条目先查Redis热数据，落库的进度是节流后的
	var hotPercent *int
	if item.State() == vo.StateProcessing {
		if pct, ok := progress.ReadHotProgress(ctx, resource.DefaultRedisResource().Client(), item.ItemUUID()); ok {
			hotPercent = &pct
		}
	}
	return dto.NewMediaStatusDto(item, hotPercent), nil
}

// ListLogs 拉取处理日志
func (a *mediaAppImpl) ListLogs(ctx context.Context, req *cqe.ListLogsReq) ([]*dto.ProcessingLogDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	entries, err := a.ledger.List(ctx, req.ItemUUID, req.Limit)
	if err != nil {
		return nil, &errno.Errno{Code: errno.ErrDatabase.Code, Message: "list processing logs: " + err.Error()}
	}
	out := make([]*dto.ProcessingLogDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.NewProcessingLogDto(e))
	}
	return out, nil
}

// loadItem 按UUID加载，不存在返回业务错误
func (a *mediaAppImpl) loadItem(ctx context.Context, itemUUID string) (*entity.MediaItemEntity, error) {
	item, err := a.itemRepo.GetMediaItem(ctx, itemUUID)
	if err != nil {
		return nil, &errno.Errno{Code: errno.ErrDatabase.Code, Message: "load media item: " + err.Error()}
	}
	if item == nil {
		return nil, errno.ErrMediaItemNotFound
	}
	return item, nil
}

// findItem 先按UUID查，再按slug兜底
func (a *mediaAppImpl) findItem(ctx context.Context, idOrSlug string) (*entity.MediaItemEntity, error) {
	item, err := a.itemRepo.GetMediaItem(ctx, idOrSlug)
	if err != nil {
		return nil, &errno.Errno{Code: errno.ErrDatabase.Code, Message: "load media item: " + err.Error()}
	}
	if item == nil {
		item, err = a.itemRepo.GetMediaItemBySlug(ctx, idOrSlug)
		if err != nil {
			return nil, &errno.Errno{Code: errno.ErrDatabase.Code, Message: "load media item: " + err.Error()}
		}
	}
	if item == nil {
		return nil, errno.ErrMediaItemNotFound
	}
	return item, nil
}
