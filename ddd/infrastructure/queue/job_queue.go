package queue

import (
	"context"
	"fmt"
	"sync"

	"media-service/ddd/domain/vo"
)

// Job 队列中的一个后台作业
type Job struct {
	ItemUUID string     `json:"item_uuid"`
	Kind     vo.JobKind `json:"kind"`
	Reason   string     `json:"reason"`
	Attempt  int        `json:"attempt"`
}

// JobQueue 作业队列接口
type JobQueue interface {
	// Enqueue 入队作业
	Enqueue(ctx context.Context, job *Job) error

	// Dequeue 出队作业（阻塞）
	Dequeue(ctx context.Context) (*Job, error)

	// TryDequeue 尝试出队作业（非阻塞）
	TryDequeue(ctx context.Context) (*Job, error)

	// Size 获取队列大小
	Size() int

	// IsEmpty 检查队列是否为空
	IsEmpty() bool

	// Close 关闭队列
	Close() error

	// IsClosed 检查队列是否已关闭
	IsClosed() bool

	// Name 队列标识，入队方用于诊断
	Name() string
}

// MemoryJobQueue 基于内存channel的作业队列实现
type MemoryJobQueue struct {
	name    string
	queue   chan *Job
	closed  bool
	mu      sync.RWMutex
	metrics *QueueMetrics
}

// QueueMetrics 队列指标
type QueueMetrics struct {
	EnqueueCount uint64
	DequeueCount uint64
	MaxSize      int
	CurrentSize  int
	mu           sync.RWMutex
}

// NewMemoryJobQueue 创建内存作业队列
func NewMemoryJobQueue(name string, capacity int) JobQueue {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryJobQueue{
		name:  name,
		queue: make(chan *Job, capacity),
		metrics: &QueueMetrics{
			MaxSize: capacity,
		},
	}
}

// Name 队列标识
func (q *MemoryJobQueue) Name() string {
	return q.name
}

// Enqueue 入队作业，队列满时立即报错而不是阻塞入队方
func (q *MemoryJobQueue) Enqueue(ctx context.Context, job *Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue %s is closed", q.name)
	}
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}

	select {
	case q.queue <- job:
		q.updateEnqueueMetrics()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue %s is full", q.name)
	}
}

// Dequeue 出队作业（阻塞）
func (q *MemoryJobQueue) Dequeue(ctx context.Context) (*Job, error) {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return nil, fmt.Errorf("queue %s is closed", q.name)
	}
	ch := q.queue
	q.mu.RUnlock()

	select {
	case job, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("queue %s is closed", q.name)
		}
		q.updateDequeueMetrics()
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryDequeue 尝试出队作业（非阻塞），空队列返回nil
func (q *MemoryJobQueue) TryDequeue(ctx context.Context) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, fmt.Errorf("queue %s is closed", q.name)
	}

	select {
	case job := <-q.queue:
		q.updateDequeueMetrics()
		return job, nil
	default:
		return nil, nil
	}
}

// Size 获取队列大小
func (q *MemoryJobQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return 0
	}
	return len(q.queue)
}

// IsEmpty 检查队列是否为空
func (q *MemoryJobQueue) IsEmpty() bool {
	return q.Size() == 0
}

// Close 关闭队列
func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.queue)
	return nil
}

// IsClosed 检查队列是否已关闭
func (q *MemoryJobQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// GetMetrics 获取队列指标
func (q *MemoryJobQueue) GetMetrics() QueueMetrics {
	q.metrics.mu.RLock()
	defer q.metrics.mu.RUnlock()
	metrics := QueueMetrics{
		EnqueueCount: q.metrics.EnqueueCount,
		DequeueCount: q.metrics.DequeueCount,
		MaxSize:      q.metrics.MaxSize,
	}
	metrics.CurrentSize = len(q.queue)
	return metrics
}

func (q *MemoryJobQueue) updateEnqueueMetrics() {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.EnqueueCount++
}

func (q *MemoryJobQueue) updateDequeueMetrics() {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.DequeueCount++
}
