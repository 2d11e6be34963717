package queue

import (
	"sync"

	"media-service/pkg/config"
)

// DefaultQueueName 默认媒体处理队列标识
const DefaultQueueName = "media-default"

var (
	queueOnce    sync.Once
	defaultQueue JobQueue
)

// DefaultJobQueue 获取默认作业队列
func DefaultJobQueue() JobQueue {
	queueOnce.Do(func() {
		capacity := 100
		if cfg := config.GetGlobalConfig(); cfg != nil {
			if cfg.Worker.QueueCapacity > 0 {
				capacity = cfg.Worker.QueueCapacity
			}
		}
		defaultQueue = NewMemoryJobQueue(DefaultQueueName, capacity)
	})
	return defaultQueue
}

// CloseDefaultJobQueue 关闭默认作业队列
func CloseDefaultJobQueue() {
	if defaultQueue != nil {
		_ = defaultQueue.Close()
	}
}
