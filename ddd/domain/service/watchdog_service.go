package service

import (
	"context"
	"fmt"
	"time"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/pkg/logger"
)

// WatchdogService 卡死作业巡检：只检测并置failed，不去杀孤儿进程
type WatchdogService interface {
	// SweepOnce 巡检一轮，返回标记为失败的条目数
	SweepOnce(ctx context.Context) (int, error)
}

type watchdogServiceImpl struct {
	itemRepo  repo.MediaItemRepository
	ledger    ProcessingLogService
	window    time.Duration
	batchSize int
}

// NewWatchdogService 创建巡检服务
func NewWatchdogService(itemRepo repo.MediaItemRepository, ledger ProcessingLogService,
	window time.Duration, batchSize int) WatchdogService {
	if window <= 0 {
		window = 120 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &watchdogServiceImpl{
		itemRepo:  itemRepo,
		ledger:    ledger,
		window:    window,
		batchSize: batchSize,
	}
}

// SweepOnce 巡检一轮
func (s *watchdogServiceImpl) SweepOnce(ctx context.Context) (int, error) {
	items, err := s.itemRepo.QueryByState(ctx,
		[]vo.ProcessingState{vo.StateQueued, vo.StateProcessing}, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("query in-flight items: %w", err)
	}

	now := time.Now()
	marked := 0
	for _, item := range items {
		if !item.IsStale(s.window, now) {
			continue
		}
		reason := s.staleReason(item)
		if err := item.MarkFailed(reason); err != nil {
			logger.Warnf("watchdog cannot fail item item_uuid=%s state=%s error=%s",
				item.ItemUUID(), item.State(), err.Error())
			continue
		}
		if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
			logger.Errorf("watchdog save failed state item_uuid=%s error=%s", item.ItemUUID(), err.Error())
			continue
		}
		s.ledger.Error(ctx, item.ItemUUID(), vo.JobKindWatchdog, reason, nil)
		logger.Warnf("stale job marked failed item_uuid=%s reason=%s", item.ItemUUID(), reason)
		marked++
	}
	return marked, nil
}

// staleReason 指明越过的是哪条阈值
func (s *watchdogServiceImpl) staleReason(item *entity.MediaItemEntity) string {
	if item.State() == vo.StateQueued {
		return fmt.Sprintf("queued for more than %s without being picked up", s.window)
	}
	return fmt.Sprintf("no worker heartbeat for more than %s", s.window)
}
