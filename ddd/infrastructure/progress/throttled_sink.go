package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"media-service/ddd/domain/port"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/pkg/logger"
)

const (
	// 进度写入节流：变化不足1%且距上次写入不足间隔时间则跳过
	minPercentDelta = 1
	// Redis热点键存活时间，终态后由轮询端自然过期
	hotKeyTTL = 10 * time.Minute
)

// ThrottledSink 把进度落库并镜像到Redis热点键，写入按阈值节流。
// 心跳写入独立节流，保证无进度输出的进程也能证明存活。
type ThrottledSink struct {
	repo          repo.MediaItemRepository
	redisClient   *redis.Client
	writeInterval time.Duration
	hbInterval    time.Duration

	mu    sync.Mutex
	items map[string]*itemTrack
}

type itemTrack struct {
	lastPercent   int
	lastWriteAt   time.Time
	lastHeartbeat time.Time
	pending       int
	pendingKind   vo.JobKind
	dirty         bool
}

func NewThrottledSink(r repo.MediaItemRepository, redisClient *redis.Client, writeInterval, heartbeatInterval time.Duration) port.ProgressSink {
	if writeInterval <= 0 {
		writeInterval = 3 * time.Second
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = 5 * time.Second
	}
	return &ThrottledSink{
		repo:          r,
		redisClient:   redisClient,
		writeInterval: writeInterval,
		hbInterval:    heartbeatInterval,
		items:         make(map[string]*itemTrack),
	}
}

// SaveProgress 记录进度，达到阈值才真正写库
func (s *ThrottledSink) SaveProgress(ctx context.Context, itemUUID string, kind vo.JobKind, percent int) error {
	s.mu.Lock()
	track, ok := s.items[itemUUID]
	if !ok {
		track = &itemTrack{lastPercent: -1}
		s.items[itemUUID] = track
	}
	if percent <= track.lastPercent {
		s.mu.Unlock()
		return nil
	}
	track.pending = percent
	track.pendingKind = kind
	track.dirty = true

	now := time.Now()
	if percent-track.lastPercent < minPercentDelta && now.Sub(track.lastWriteAt) < s.writeInterval {
		s.mu.Unlock()
		return nil
	}
	track.lastPercent = percent
	track.lastWriteAt = now
	track.dirty = false
	s.mu.Unlock()

	return s.write(ctx, itemUUID, kind, percent)
}

// SaveHeartbeat 刷存活时间戳，写库按心跳间隔节流
func (s *ThrottledSink) SaveHeartbeat(ctx context.Context, itemUUID string) error {
	now := time.Now()

	s.mu.Lock()
	track, ok := s.items[itemUUID]
	if !ok {
		track = &itemTrack{lastPercent: -1}
		s.items[itemUUID] = track
	}
	if now.Sub(track.lastHeartbeat) < s.hbInterval {
		s.mu.Unlock()
		return nil
	}
	track.lastHeartbeat = now
	s.mu.Unlock()

	if s.repo == nil {
		return nil
	}
	return s.repo.UpdateHeartbeat(ctx, itemUUID, now)
}

// Flush 作业收尾时把缓冲的最后一个值写出去，并清理跟踪状态
func (s *ThrottledSink) Flush(ctx context.Context, itemUUID string) error {
	s.mu.Lock()
	track, ok := s.items[itemUUID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	dirty := track.dirty
	percent := track.pending
	kind := track.pendingKind
	delete(s.items, itemUUID)
	s.mu.Unlock()

	if !dirty {
		return nil
	}
	return s.write(ctx, itemUUID, kind, percent)
}

func (s *ThrottledSink) write(ctx context.Context, itemUUID string, kind vo.JobKind, percent int) error {
	if s.redisClient != nil {
		key := progressKey(itemUUID)
		if err := s.redisClient.HSet(ctx, key, "percent", percent, "job_kind", kind.String(), "updated_at", time.Now().Unix()).Err(); err != nil {
			logger.Warnf("mirror progress to redis failed item_uuid=%s error=%s", itemUUID, err.Error())
		} else {
			_ = s.redisClient.Expire(ctx, key, hotKeyTTL).Err()
		}
	}
	if s.repo == nil {
		return nil
	}
	return s.repo.UpdateProgress(ctx, itemUUID, percent)
}

// progressKey Redis热点进度键
func progressKey(itemUUID string) string {
	return fmt.Sprintf("media:progress:%s", itemUUID)
}

// ReadHotProgress 读取Redis镜像的进度，未命中返回false
func ReadHotProgress(ctx context.Context, redisClient *redis.Client, itemUUID string) (int, bool) {
	if redisClient == nil {
		return 0, false
	}
	val, err := redisClient.HGet(ctx, progressKey(itemUUID), "percent").Int()
	if err != nil {
		return 0, false
	}
	return val, true
}
