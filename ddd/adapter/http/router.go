package http

import (
	"github.com/gin-gonic/gin"

	"media-service/ddd/application/app"
	"media-service/ddd/infrastructure/storage"
	"media-service/pkg/config"
	"media-service/pkg/manager"
)

func init() {
	manager.RegisterRoutes(registerMediaRoutes)
}

// registerMediaRoutes 注册媒体管理与流式下发路由，资源初始化完成后才会执行
func registerMediaRoutes(r *gin.Engine) {
	cfg := config.GetGlobalConfig()
	store, err := storage.NewLocalStore(cfg.Media.RootDir)
	if err != nil {
		panic("init media store failed: " + err.Error())
	}

	mediaApp := app.DefaultMediaApp()
	mediaController := NewMediaController(mediaApp)
	streamController := NewStreamController(mediaApp, store, cfg)

	api := r.Group("/api/v1")
	{
		media := api.Group("/media")
		{
			media.POST("", mediaController.Register)
			media.GET("/:item_uuid", mediaController.Detail)
			media.POST("/:item_uuid/process", mediaController.Enqueue)
			media.POST("/:item_uuid/retry", mediaController.Retry)
			media.GET("/:item_uuid/status", mediaController.Status)
			media.GET("/:item_uuid/logs", mediaController.Logs)
		}
	}

	stream := r.Group("/stream")
	{
		stream.GET("/:item_id", streamController.Stream)
		stream.HEAD("/:item_id", streamController.Stream)
		stream.GET("/:item_id/hls/*filepath", streamController.StreamHLS)
	}
}
