package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-service/ddd/domain/service"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/queue"
	"media-service/pkg/config"
	"media-service/pkg/logger"
)

// PipelineWorker 媒体处理工作器接口
type PipelineWorker interface {
	// Start 启动工作器
	Start(ctx context.Context) error

	// Stop 停止工作器
	Stop() error

	// IsRunning 检查工作器是否运行中
	IsRunning() bool

	// GetStats 获取工作器统计信息
	GetStats() WorkerStats
}

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedJobs    uint64
	SuccessfulJobs   uint64
	FailedJobs       uint64
	CurrentlyRunning int
	StartTime        time.Time
	LastJobTime      time.Time
}

type pipelineWorkerImpl struct {
	id          string
	jobQueue    queue.JobQueue
	pipeline    service.PipelineService
	cfg         *config.Config
	workerCount int
	running     bool
	cancel      context.CancelFunc
	stats       WorkerStats
	mu          sync.RWMutex
	wg          sync.WaitGroup
}

// NewPipelineWorker 创建媒体处理工作器
func NewPipelineWorker(id string, jobQueue queue.JobQueue, pipeline service.PipelineService,
	cfg *config.Config, workerCount int) PipelineWorker {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &pipelineWorkerImpl{
		id:          id,
		jobQueue:    jobQueue,
		pipeline:    pipeline,
		cfg:         cfg,
		workerCount: workerCount,
		stats: WorkerStats{
			StartTime: time.Now(),
		},
	}
}

// Start 启动工作器
func (w *pipelineWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.stats.StartTime = time.Now()

	logger.Infof("Starting pipeline worker id=%s goroutines=%d", w.id, w.workerCount)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.workerLoop(workerCtx, i)
	}
	return nil
}

// Stop 停止工作器，等待在跑的作业收尾
func (w *pipelineWorkerImpl) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	logger.Infof("Stopping pipeline worker id=%s", w.id)
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.running = false
	logger.Infof("Pipeline worker stopped id=%s", w.id)
	return nil
}

// IsRunning 检查工作器是否运行中
func (w *pipelineWorkerImpl) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats 获取工作器统计信息
func (w *pipelineWorkerImpl) GetStats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// workerLoop 工作器主循环
func (w *pipelineWorkerImpl) workerLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger.Infof("Worker goroutine started id=%s-%d", w.id, workerID)
	defer logger.Infof("Worker goroutine stopped id=%s-%d", w.id, workerID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.jobQueue.Dequeue(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				logger.Warnf("dequeue failed worker=%s-%d error=%s", w.id, workerID, err.Error())
				time.Sleep(time.Second)
				continue
			}
			if job == nil {
				continue
			}
			w.processJob(ctx, job, workerID)
		}
	}
}

// processJob 执行单个作业，带该种类的硬性墙钟超时
func (w *pipelineWorkerImpl) processJob(ctx context.Context, job *queue.Job, workerID int) {
	logger.Infof("Worker picked job worker=%s-%d item_uuid=%s kind=%s", w.id, workerID, job.ItemUUID, job.Kind)

	w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning++
		stats.LastJobTime = time.Now()
	})
	defer w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning--
		stats.ProcessedJobs++
	})

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout(job.Kind))
	defer cancel()

	if err := w.pipeline.Execute(jobCtx, job); err != nil {
		logger.Errorf("job execution failed worker=%s-%d item_uuid=%s kind=%s attempt=%d error=%s",
			w.id, workerID, job.ItemUUID, job.Kind, job.Attempt, err.Error())
		w.updateStats(func(stats *WorkerStats) {
			stats.FailedJobs++
		})
		w.retryJob(ctx, job, workerID)
		return
	}
	w.updateStats(func(stats *WorkerStats) {
		stats.SuccessfulJobs++
	})
}

// retryJob 失败后按线性退避重新入队，重试额度由配置封顶
func (w *pipelineWorkerImpl) retryJob(ctx context.Context, job *queue.Job, workerID int) {
	backoff := time.Duration(job.Attempt+1) * time.Second
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	requeued, err := w.pipeline.RequeueFailed(ctx, job)
	if err != nil {
		logger.Warnf("retry requeue failed worker=%s-%d item_uuid=%s kind=%s error=%s",
			w.id, workerID, job.ItemUUID, job.Kind, err.Error())
		return
	}
	if requeued {
		logger.Infof("job scheduled for retry worker=%s-%d item_uuid=%s kind=%s attempt=%d",
			w.id, workerID, job.ItemUUID, job.Kind, job.Attempt+1)
	}
}

// jobTimeout 作业种类对应的硬性超时，独立于心跳巡检
func (w *pipelineWorkerImpl) jobTimeout(kind vo.JobKind) time.Duration {
	p := w.cfg.Pipeline
	switch kind {
	case vo.JobKindMetadata:
		return p.MetadataTimeout
	case vo.JobKindPrepareStream:
		return p.StreamTimeout
	case vo.JobKindHLS:
		return p.HLSTimeout
	default:
		return p.RenditionTimeout
	}
}

func (w *pipelineWorkerImpl) updateStats(updateFunc func(*WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	updateFunc(&w.stats)
}
