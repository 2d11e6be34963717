package worker

import (
	"context"
	"fmt"

	"media-service/ddd/domain/service"
	"media-service/ddd/infrastructure/database/persistence"
	"media-service/ddd/infrastructure/executor"
	"media-service/ddd/infrastructure/progress"
	"media-service/ddd/infrastructure/queue"
	"media-service/ddd/infrastructure/storage"
	"media-service/internal/resource"
	"media-service/pkg/config"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
	"media-service/pkg/task"
)

func init() {
	manager.RegisterComponentPlugin(&PipelineWorkerComponentPlugin{})
	manager.RegisterComponentPlugin(&WatchdogComponentPlugin{})
}

// PipelineWorkerComponentPlugin 负责装配并启动媒体处理Worker
type PipelineWorkerComponentPlugin struct{}

func (p *PipelineWorkerComponentPlugin) Name() string {
	return "pipelineWorkerComponent"
}

func (p *PipelineWorkerComponentPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}

	if !cfg.Worker.Enabled {
		logger.Infof("Pipeline worker disabled by configuration")
		return &noopComponent{name: "pipelineWorker"}
	}

	pipeline := BuildPipelineService(cfg)
	workerComp := &pipelineWorkerComponent{
		name:   "pipelineWorker",
		worker: NewPipelineWorker(cfg.Worker.WorkerID, queue.DefaultJobQueue(), pipeline, cfg, cfg.Worker.MaxConcurrentJobs),
	}
	return workerComp
}

// BuildPipelineService 装配完整的处理管线服务栈。
// Worker组件与HTTP应用层共用同一套装配，队列经由进程级单例衔接。
func BuildPipelineService(cfg *config.Config) service.PipelineService {
	itemRepo := persistence.NewMediaItemRepository()
	logRepo := persistence.NewProcessingLogRepository()

	store, err := storage.NewLocalStore(cfg.Media.RootDir)
	if err != nil {
		panic(fmt.Sprintf("open media store: %v", err))
	}
	mirror := storage.NewMinioMirror(resource.DefaultMinioResource())

	locator := executor.NewToolLocator(&cfg.FFmpeg)
	prober := executor.NewFFprobeProber(locator)
	runner := executor.NewFFmpegRunner(&cfg.Pipeline)
	builder := executor.NewCommandBuilder(cfg.FFmpeg.Preset, cfg.FFmpeg.Threads, cfg.FFmpeg.SegmentSeconds)
	sink := progress.NewThrottledSink(itemRepo, resource.DefaultRedisResource().Client(),
		cfg.Pipeline.ProgressEvery, cfg.Pipeline.HeartbeatEvery)

	ledger := service.NewProcessingLogService(logRepo, cfg.Pipeline.KeepLogs)
	metadata := service.NewMetadataService(itemRepo, ledger, store, mirror, runner, prober, locator, builder)
	return service.NewPipelineService(itemRepo, ledger, metadata, store, mirror,
		runner, prober, locator, sink, queue.DefaultJobQueue(), builder, cfg)
}

type pipelineWorkerComponent struct {
	name   string
	worker PipelineWorker
}

func (c *pipelineWorkerComponent) Start() error {
	if c.worker == nil {
		return fmt.Errorf("pipeline worker not initialized")
	}
	// 注册为后台任务，由应用启动流程统一拉起和停止
	task.Register(&backgroundTaskAdapter{name: c.name, startFunc: c.worker.Start, stopFunc: c.worker.Stop})
	logger.Infof("Pipeline worker component registered background task name=%s", c.name)
	return nil
}

func (c *pipelineWorkerComponent) Stop() error {
	queue.CloseDefaultJobQueue()
	logger.Infof("Pipeline worker component stopped name=%s", c.name)
	return nil
}

func (c *pipelineWorkerComponent) GetName() string {
	return c.name
}

// WatchdogComponentPlugin 负责启动卡死作业巡检
type WatchdogComponentPlugin struct{}

func (p *WatchdogComponentPlugin) Name() string {
	return "watchdogComponent"
}

func (p *WatchdogComponentPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}

	if !cfg.Watchdog.Enabled {
		logger.Infof("Watchdog disabled by configuration")
		return &noopComponent{name: "watchdog"}
	}

	itemRepo := persistence.NewMediaItemRepository()
	ledger := service.NewProcessingLogService(persistence.NewProcessingLogRepository(), cfg.Pipeline.KeepLogs)
	wd := service.NewWatchdogService(itemRepo, ledger, cfg.Pipeline.StalenessWindow, cfg.Watchdog.BatchSize)

	return NewWatchdogComponent(wd, cfg.Watchdog.Interval)
}

// noopComponent 配置关闭时的空实现
type noopComponent struct {
	name string
}

func (c *noopComponent) Start() error    { return nil }
func (c *noopComponent) Stop() error     { return nil }
func (c *noopComponent) GetName() string { return c.name }

// backgroundTaskAdapter adapts Start/Stop functions to the BackgroundTask interface.
type backgroundTaskAdapter struct {
	name      string
	startFunc func(ctx context.Context) error
	stopFunc  func() error
}

func (b *backgroundTaskAdapter) Name() string                    { return b.name }
func (b *backgroundTaskAdapter) Start(ctx context.Context) error { return b.startFunc(ctx) }
func (b *backgroundTaskAdapter) Stop() error                     { return b.stopFunc() }
