package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mediaapp "media-service/ddd/application/app"
	"media-service/ddd/infrastructure/executor"
	"media-service/pkg/config"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
	"media-service/pkg/repository"
	"media-service/pkg/task"

	// 触发组件与资源注册，worker进程不注册HTTP路由
	_ "media-service/ddd/adapter/component"
	_ "media-service/ddd/infrastructure/worker"
	_ "media-service/internal/resource"
)

// 独立的处理进程入口：只跑流水线worker、看门狗和Kafka消费者，不对外提供HTTP接口。
func main() {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	logger.Infof("Media worker starting config=%s", cfgPath)

	locator := executor.NewToolLocator(&cfg.FFmpeg)
	if bin, err := locator.Locate("ffmpeg"); err != nil {
		logger.Fatal(fmt.Sprintf("FFmpeg binary not found, please install or set ffmpeg.binary_path error=%s", err.Error()))
	} else {
		logger.Infof("FFmpeg located binary=%s", bin)
	}

	manager.MustInitResources()
	defer manager.CloseResources()

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to initialize database error=%v", err))
	}
	defer db.Close()

	deps := &manager.Dependencies{
		DB:              db.Self,
		Config:          cfg,
		MediaAppService: mediaapp.DefaultMediaApp(),
	}
	manager.MustInitServices(deps)
	manager.MustInitComponents(deps)
	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}
	logger.Infof("Media worker started worker_id=%s max_jobs=%d", cfg.Worker.WorkerID, cfg.Worker.MaxConcurrentJobs)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, stopping worker...")
	manager.Shutdown()
	task.StopAll()
	logger.Infof("Media worker exited safely")
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config.prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
