package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"media-service/ddd/domain/service"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
	"media-service/pkg/task"
)

// WatchdogComponent 周期巡检组件：定时扫描卡死作业并标记失败
type WatchdogComponent struct {
	name     string
	watchdog service.WatchdogService
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewWatchdogComponent 创建巡检组件
func NewWatchdogComponent(watchdog service.WatchdogService, interval time.Duration) manager.Component {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &WatchdogComponent{
		name:     "watchdog",
		watchdog: watchdog,
		interval: interval,
	}
}

func (c *WatchdogComponent) Start() error {
	if c.watchdog == nil {
		return fmt.Errorf("watchdog service not initialized")
	}
	task.Register(&backgroundTaskAdapter{name: c.name, startFunc: c.run, stopFunc: c.stopLoop})
	logger.Infof("Watchdog component registered background task interval=%s", c.interval)
	return nil
}

func (c *WatchdogComponent) Stop() error {
	return c.stopLoop()
}

func (c *WatchdogComponent) GetName() string {
	return c.name
}

func (c *WatchdogComponent) run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("watchdog already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.sweepLoop(loopCtx)
	return nil
}

func (c *WatchdogComponent) stopLoop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.running = false
	logger.Infof("Watchdog stopped name=%s", c.name)
	return nil
}

func (c *WatchdogComponent) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			marked, err := c.watchdog.SweepOnce(ctx)
			if err != nil {
				logger.Warnf("watchdog sweep failed error=%s", err.Error())
				continue
			}
			if marked > 0 {
				logger.Warnf("watchdog sweep marked stale jobs count=%d", marked)
			}
		}
	}
}
