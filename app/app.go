package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	mediaapp "media-service/ddd/application/app"
	"media-service/ddd/infrastructure/executor"
	"media-service/pkg/config"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
	"media-service/pkg/middleware"
	"media-service/pkg/observability"
	"media-service/pkg/repository"
	"media-service/pkg/task"

	// 导入适配器与资源包以触发init注册
	_ "media-service/ddd/adapter/component"
	_ "media-service/ddd/adapter/http"
	_ "media-service/ddd/infrastructure/worker"
	_ "media-service/internal/resource"
)

func Run() {
	// 先使用标准输出确保能看到日志
	fmt.Println("[STARTUP] Starting media service...")

	// 加载配置
	fmt.Println("[STARTUP] Loading config file...")
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	// 设置全局配置（必须在资源管理器初始化之前）
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	// 立即初始化日志服务（确保所有后续组件都能使用正确的日志器）
	fmt.Println("[STARTUP] Initializing logger...")
	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	fmt.Println("[STARTUP] Logger initialized")

	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})

	logger.Infof("Media service starting version=%s", "1.0.0")

	// 启动阶段检查处理工具可用性，ffmpeg缺失直接失败，ffprobe缺失只降级元数据提取
	locator := executor.NewToolLocator(&cfg.FFmpeg)
	if bin, err := locator.Locate("ffmpeg"); err != nil {
		logger.Fatal(fmt.Sprintf("FFmpeg binary not found, please install or set ffmpeg.binary_path error=%s", err.Error()))
	} else {
		logger.Infof("FFmpeg located binary=%s", bin)
	}
	if bin, err := locator.Locate("ffprobe"); err != nil {
		logger.Warnf("ffprobe not found, metadata extraction will be skipped error=%s", err.Error())
	} else {
		logger.Infof("ffprobe located binary=%s", bin)
	}

	// 资源管理器初始化
	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()
	logger.Infof("Resource manager initialized")

	// 初始化数据库（用于依赖注入）
	logger.Infof("Initializing database connection...")
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to initialize database error=%v", err))
	}
	defer db.Close()
	logger.Infof("Database connected")

	// 初始化应用服务
	logger.Infof("Initializing media components...")
	mediaAppService := mediaapp.DefaultMediaApp()
	logger.Infof("Media components initialized")

	// 创建依赖注入容器
	deps := &manager.Dependencies{
		DB:              db.Self,
		Config:          cfg,
		MediaAppService: mediaAppService,
	}

	// 初始化所有服务
	logger.Infof("Initializing services...")
	manager.MustInitServices(deps)
	logger.Infof("All services initialized")

	// 初始化所有组件
	logger.Infof("Initializing components...")
	manager.MustInitComponents(deps)
	logger.Infof("All components initialized")

	// 拉起组件登记的后台任务（worker、看门狗）
	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}
	logger.Infof("Background tasks started")

	// 持续剖析，未启用时为nil
	profiler := observability.StartProfiling(cfg.Profiling)
	defer observability.StopProfiling(profiler)

	// 创建Gin引擎
	logger.Infof("Creating HTTP routes...")
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	router.Use(middleware.RequestContextMiddleware())

	// 健康检查端点
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "media-service",
			"timestamp": time.Now().Unix(),
		})
	})

	// 注册所有路由
	logger.Infof("Registering routes...")
	manager.RegisterAllRoutes(router)
	logger.Infof("Routes registered")

	// 启动HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()

	logger.Infof("HTTP server started address=%s service=%s health_url=%s api_url=%s", addr, "media-service", fmt.Sprintf("http://%s/health", addr), fmt.Sprintf("http://%s/api/v1", addr))

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down server...")

	// 关闭所有组件与后台任务，在途作业按优雅期限收尾
	logger.Infof("Shutting down components...")
	manager.Shutdown()
	task.StopAll()
	logger.Infof("Components closed")

	// 设置5秒超时
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("Server forced to close error=%v", err))
	}

	logger.Infof("Server exited safely")
	fmt.Println("[SHUTDOWN] Media service exited safely")
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
