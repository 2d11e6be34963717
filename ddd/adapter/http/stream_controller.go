package http

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"media-service/ddd/application/app"
	"media-service/ddd/application/dto"
	"media-service/ddd/domain/gateway"
	"media-service/pkg/config"
	"media-service/pkg/errno"
	"media-service/pkg/logger"
	"media-service/pkg/restapi"
)

// StreamController 媒体流式下发控制器，实现RFC 7233单区间语义
type StreamController struct {
	mediaApp app.MediaApp
	store    gateway.MediaStore
	cfg      *config.Config
}

// NewStreamController 创建流式下发控制器
func NewStreamController(mediaApp app.MediaApp, store gateway.MediaStore, cfg *config.Config) *StreamController {
	return &StreamController{
		mediaApp: mediaApp,
		store:    store,
		cfg:      cfg,
	}
}

// Stream 下发媒体文件，GET与HEAD同语义
func (c *StreamController) Stream(ctx *gin.Context) {
	item, err := c.mediaApp.GetMedia(ctx.Request.Context(), ctx.Param("item_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	relPath, err := c.resolveFile(item, ctx.Query("quality"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	// 不论哪种下发模式都声明支持Range，且媒体内容不进共享缓存
	ctx.Header("Accept-Ranges", "bytes")
	ctx.Header("Cache-Control", "private, no-store")
	ctx.Header("Content-Disposition", "inline")
	ctx.Header("Content-Type", contentTypeByExt(relPath))

	if c.cfg.Stream.Delivery == "nginx" {
		c.serveAccelerated(ctx, relPath)
		return
	}
	c.serveDirect(ctx, relPath)
}

// StreamHLS 下发HLS清单与分片
func (c *StreamController) StreamHLS(ctx *gin.Context) {
	item, err := c.mediaApp.GetMedia(ctx.Request.Context(), ctx.Param("item_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	if item.HLSMasterPath == "" {
		restapi.Failed(ctx, errno.ErrMediaFileNotFound)
		return
	}

	// 产物名限定在该条目的HLS目录内
	name := path.Base(path.Clean(ctx.Param("filepath")))
	relPath := path.Join(path.Dir(item.HLSMasterPath), name)
	if !c.store.Exists(relPath) {
		restapi.Failed(ctx, errno.ErrMediaFileNotFound)
		return
	}

	ctx.Header("Cache-Control", "private, no-store")
	ctx.Header("Content-Type", contentTypeByExt(relPath))

	if c.cfg.Stream.Delivery == "nginx" {
		c.serveAccelerated(ctx, relPath)
		return
	}
	c.serveDirect(ctx, relPath)
}

// resolveFile 选择下发文件：清晰度参数 > 快速起播文件 > 原始文件
func (c *StreamController) resolveFile(item *dto.MediaItemDTO, quality string) (string, error) {
	if quality != "" {
		for _, r := range item.Renditions {
			if r.Quality == quality && c.store.Exists(r.Path) {
				return r.Path, nil
			}
		}
		return "", errno.ErrRenditionNotFound
	}
	if item.StreamPath != "" && c.store.Exists(item.StreamPath) {
		return item.StreamPath, nil
	}
	if item.OriginalPath != "" && c.store.Exists(item.OriginalPath) {
		return item.OriginalPath, nil
	}
	return "", errno.ErrMediaFileNotFound
}

// serveAccelerated 代理加速模式：空200，字节由反向代理按内部路径下发
func (c *StreamController) serveAccelerated(ctx *gin.Context, relPath string) {
	ctx.Header("X-Accel-Redirect", strings.TrimRight(c.cfg.Stream.AccelPrefix, "/")+"/"+strings.TrimPrefix(relPath, "/"))
	ctx.Header("X-Accel-Buffering", "no")
	ctx.Status(http.StatusOK)
}

// serveDirect 应用进程读盘下发，支持单个Range区间
func (c *StreamController) serveDirect(ctx *gin.Context, relPath string) {
	size, err := c.store.SizeOf(relPath)
	if err != nil {
		restapi.Failed(ctx, errno.ErrMediaFileNotFound)
		return
	}

	rangeHeader := ctx.GetHeader("Range")
	if rangeHeader == "" {
		c.serveWhole(ctx, relPath, size)
		return
	}

	rng, err := parseRange(rangeHeader, size)
	switch {
	case errors.Is(err, errRangeMalformed):
		// 损坏的Range当作没带：整文件200，客户端兼容策略
		c.serveWhole(ctx, relPath, size)
		return
	case errors.Is(err, errRangeUnsatisfiable):
		ctx.Header("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		ctx.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	ctx.Header("Content-Range", rng.ContentRange(size))
	ctx.Header("Content-Length", strconv.FormatInt(rng.Length(), 10))
	ctx.Status(http.StatusPartialContent)
	if ctx.Request.Method == http.MethodHead {
		return
	}
	c.copyRange(ctx, relPath, rng.Start, rng.Length())
}

// serveWhole 整文件200
func (c *StreamController) serveWhole(ctx *gin.Context, relPath string, size int64) {
	ctx.Header("Content-Length", strconv.FormatInt(size, 10))
	ctx.Status(http.StatusOK)
	if ctx.Request.Method == http.MethodHead {
		return
	}
	c.copyRange(ctx, relPath, 0, size)
}

// copyRange 分块拷贝，客户端断开立即停
func (c *StreamController) copyRange(ctx *gin.Context, relPath string, offset, length int64) {
	f, err := c.store.Open(relPath)
	if err != nil {
		logger.Errorf("open media file failed path=%s error=%s", relPath, err.Error())
		return
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		logger.Errorf("seek media file failed path=%s offset=%d error=%s", relPath, offset, err.Error())
		return
	}

	chunk := int64(c.cfg.Stream.ChunkSizeBytes)
	if chunk <= 0 {
		chunk = 64 * 1024
	}
	clientGone := ctx.Request.Context().Done()
	remaining := length
	for remaining > 0 {
		select {
		case <-clientGone:
			return
		default:
		}
		n := chunk
		if remaining < n {
			n = remaining
		}
		written, err := io.CopyN(ctx.Writer, f, n)
		remaining -= written
		if err != nil {
			// 客户端断开或读盘失败，响应已经开头了，只能停
			return
		}
	}
}

// contentTypeByExt 按扩展名给媒体类型
func contentTypeByExt(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".mp4":
		return "video/mp4"
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
