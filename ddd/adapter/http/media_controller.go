package http

import (
	"github.com/gin-gonic/gin"

	"media-service/ddd/application/app"
	"media-service/ddd/application/cqe"
	"media-service/pkg/errno"
	"media-service/pkg/restapi"
)

// MediaController 媒体条目管理控制器
type MediaController struct {
	mediaApp app.MediaApp
}

// NewMediaController 创建媒体控制器
func NewMediaController(mediaApp app.MediaApp) *MediaController {
	return &MediaController{mediaApp: mediaApp}
}

// Register 登记媒体条目
func (c *MediaController) Register(ctx *gin.Context) {
	req := &cqe.RegisterMediaReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		restapi.Failed(ctx, errno.ErrInvalidParam)
		return
	}

	item, err := c.mediaApp.RegisterMedia(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, item)
}

// Enqueue 触发一类后台处理
func (c *MediaController) Enqueue(ctx *gin.Context) {
	req := &cqe.EnqueueProcessingReq{}
	if err := ctx.ShouldBindUri(req); err != nil {
		restapi.Failed(ctx, errno.ErrItemUUIDRequired)
		return
	}
	if err := ctx.ShouldBindJSON(req); err != nil {
		restapi.Failed(ctx, errno.ErrInvalidParam)
		return
	}

	result, err := c.mediaApp.EnqueueProcessing(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, result)
}

// Retry 失败后重试
func (c *MediaController) Retry(ctx *gin.Context) {
	req := &cqe.RetryProcessingReq{}
	if err := ctx.ShouldBindUri(req); err != nil {
		restapi.Failed(ctx, errno.ErrItemUUIDRequired)
		return
	}
	// 请求体可以为空，为空时重试多清晰度转码
	_ = ctx.ShouldBindJSON(req)

	result, err := c.mediaApp.RetryProcessing(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, result)
}

// Status 轮询处理状态
func (c *MediaController) Status(ctx *gin.Context) {
	req := &cqe.QueryStatusReq{}
	if err := ctx.ShouldBindUri(req); err != nil {
		restapi.Failed(ctx, errno.ErrItemUUIDRequired)
		return
	}

	status, err := c.mediaApp.GetStatus(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, status)
}

// Logs 拉取处理日志
func (c *MediaController) Logs(ctx *gin.Context) {
	req := &cqe.ListLogsReq{}
	if err := ctx.ShouldBindUri(req); err != nil {
		restapi.Failed(ctx, errno.ErrItemUUIDRequired)
		return
	}
	if err := ctx.ShouldBindQuery(req); err != nil {
		restapi.Failed(ctx, errno.ErrInvalidParam)
		return
	}

	logs, err := c.mediaApp.ListLogs(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, logs)
}

// Detail 获取媒体条目详情
func (c *MediaController) Detail(ctx *gin.Context) {
	idOrSlug := ctx.Param("item_uuid")
	if idOrSlug == "" {
		restapi.Failed(ctx, errno.ErrItemUUIDRequired)
		return
	}

	item, err := c.mediaApp.GetMedia(ctx.Request.Context(), idOrSlug)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, item)
}
