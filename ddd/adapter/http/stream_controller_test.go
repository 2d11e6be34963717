package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/ddd/application/cqe"
	"media-service/ddd/application/dto"
	"media-service/ddd/infrastructure/storage"
	"media-service/pkg/config"
	"media-service/pkg/errno"
)

type fakeMediaApp struct {
	items map[string]*dto.MediaItemDTO
}

func (f *fakeMediaApp) RegisterMedia(ctx context.Context, req *cqe.RegisterMediaReq) (*dto.MediaItemDTO, error) {
	return nil, errno.ErrUnknown
}

func (f *fakeMediaApp) EnqueueProcessing(ctx context.Context, req *cqe.EnqueueProcessingReq) (*dto.EnqueueResultDTO, error) {
	return nil, errno.ErrUnknown
}

func (f *fakeMediaApp) RetryProcessing(ctx context.Context, req *cqe.RetryProcessingReq) (*dto.EnqueueResultDTO, error) {
	return nil, errno.ErrUnknown
}

func (f *fakeMediaApp) GetMedia(ctx context.Context, idOrSlug string) (*dto.MediaItemDTO, error) {
	item, ok := f.items[idOrSlug]
	if !ok {
		return nil, errno.ErrMediaItemNotFound
	}
	return item, nil
}

func (f *fakeMediaApp) GetStatus(ctx context.Context, req *cqe.QueryStatusReq) (*dto.MediaStatusDTO, error) {
	return nil, errno.ErrUnknown
}

func (f *fakeMediaApp) ListLogs(ctx context.Context, req *cqe.ListLogsReq) ([]*dto.ProcessingLogDTO, error) {
	return nil, errno.ErrUnknown
}

type streamFixture struct {
	router  *gin.Engine
	rootDir string
	cfg     *config.Config
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rootDir := t.TempDir()
	store, err := storage.NewLocalStore(rootDir)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Media.RootDir = rootDir
	cfg.Stream.Delivery = "direct"
	cfg.Stream.AccelPrefix = "/_protected_media"
	cfg.Stream.ChunkSizeBytes = 64 * 1024

	mediaApp := &fakeMediaApp{items: map[string]*dto.MediaItemDTO{}}
	mediaApp.items["item-1"] = &dto.MediaItemDTO{
		ItemUUID:     "item-1",
		Slug:         "demo",
		OriginalPath: "uploads/demo.mp4",
		StreamPath:   "derived/item-1/stream.mp4",
		Renditions: []dto.RenditionDTO{
			{Quality: "360", Path: "derived/item-1/renditions/360.mp4"},
		},
	}
	mediaApp.items["item-hls"] = &dto.MediaItemDTO{
		ItemUUID:      "item-hls",
		OriginalPath:  "uploads/demo.mp4",
		HLSMasterPath: "derived/item-hls/hls/master.m3u8",
	}

	controller := NewStreamController(mediaApp, store, cfg)
	router := gin.New()
	router.GET("/stream/:item_id", controller.Stream)
	router.HEAD("/stream/:item_id", controller.Stream)
	router.GET("/stream/:item_id/hls/*filepath", controller.StreamHLS)

	return &streamFixture{router: router, rootDir: rootDir, cfg: cfg}
}

func (f *streamFixture) writeFile(t *testing.T, relPath string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	abs := filepath.Join(f.rootDir, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, data, 0o644))
	return data
}

func (f *streamFixture) do(method, target, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestStreamWholeFile(t *testing.T) {
	f := newStreamFixture(t)
	data := f.writeFile(t, "derived/item-1/stream.mp4", 1000)

	w := f.do(http.MethodGet, "/stream/item-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "inline", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "1000", w.Header().Get("Content-Length"))
	assert.Equal(t, data, w.Body.Bytes())
}

func TestStreamPartialContent(t *testing.T) {
	f := newStreamFixture(t)
	data := f.writeFile(t, "derived/item-1/stream.mp4", 1000)

	w := f.do(http.MethodGet, "/stream/item-1", "bytes=100-299")
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 100-299/1000", w.Header().Get("Content-Range"))
	assert.Equal(t, "200", w.Header().Get("Content-Length"))
	assert.Equal(t, data[100:300], w.Body.Bytes())
}

func TestStreamSuffixRange(t *testing.T) {
	f := newStreamFixture(t)
	data := f.writeFile(t, "derived/item-1/stream.mp4", 1000)

	w := f.do(http.MethodGet, "/stream/item-1", "bytes=-100")
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 900-999/1000", w.Header().Get("Content-Range"))
	assert.Equal(t, data[900:], w.Body.Bytes())
}

func TestStreamUnsatisfiableRange(t *testing.T) {
	f := newStreamFixture(t)
	f.writeFile(t, "derived/item-1/stream.mp4", 1000)

	w := f.do(http.MethodGet, "/stream/item-1", "bytes=1000-")
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */1000", w.Header().Get("Content-Range"))
	assert.Empty(t, w.Body.Bytes())
}

func TestStreamMalformedRangeServesWholeFile(t *testing.T) {
	f := newStreamFixture(t)
	data := f.writeFile(t, "derived/item-1/stream.mp4", 500)

	w := f.do(http.MethodGet, "/stream/item-1", "bits=0-100")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
}

func TestStreamHeadParity(t *testing.T) {
	f := newStreamFixture(t)
	f.writeFile(t, "derived/item-1/stream.mp4", 1000)

	w := f.do(http.MethodHead, "/stream/item-1", "bytes=0-99")
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 0-99/1000", w.Header().Get("Content-Range"))
	assert.Equal(t, "100", w.Header().Get("Content-Length"))
	assert.Empty(t, w.Body.Bytes())
}

func TestStreamQualitySelectsRendition(t *testing.T) {
	f := newStreamFixture(t)
	f.writeFile(t, "derived/item-1/stream.mp4", 1000)
	data := f.writeFile(t, "derived/item-1/renditions/360.mp4", 400)

	w := f.do(http.MethodGet, "/stream/item-1?quality=360", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
}

func TestStreamMissingQualityReturns404(t *testing.T) {
	f := newStreamFixture(t)
	f.writeFile(t, "derived/item-1/stream.mp4", 1000)

	w := f.do(http.MethodGet, "/stream/item-1?quality=1080", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamFallsBackToOriginal(t *testing.T) {
	f := newStreamFixture(t)
	// 快速起播文件不存在，回落到原始文件
	data := f.writeFile(t, "uploads/demo.mp4", 300)

	w := f.do(http.MethodGet, "/stream/item-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
}

func TestStreamUnknownItemReturns404(t *testing.T) {
	f := newStreamFixture(t)

	w := f.do(http.MethodGet, "/stream/no-such-item", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamNginxDelivery(t *testing.T) {
	f := newStreamFixture(t)
	f.cfg.Stream.Delivery = "nginx"
	f.writeFile(t, "derived/item-1/stream.mp4", 1000)

	w := f.do(http.MethodGet, "/stream/item-1", "bytes=0-99")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/_protected_media/derived/item-1/stream.mp4", w.Header().Get("X-Accel-Redirect"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Empty(t, w.Body.Bytes())
}

func TestStreamHLSPlaylist(t *testing.T) {
	f := newStreamFixture(t)
	master := []byte("#EXTM3U\n#EXT-X-VERSION:3\n")
	abs := filepath.Join(f.rootDir, "derived/item-hls/hls/master.m3u8")
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, master, 0o644))

	w := f.do(http.MethodGet, "/stream/item-hls/hls/master.m3u8", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", w.Header().Get("Content-Type"))
	assert.Equal(t, master, w.Body.Bytes())
}

func TestStreamHLSRejectsPathEscape(t *testing.T) {
	f := newStreamFixture(t)
	f.writeFile(t, "uploads/secret.mp4", 100)
	abs := filepath.Join(f.rootDir, "derived/item-hls/hls/master.m3u8")
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte("#EXTM3U\n"), 0o644))

	w := f.do(http.MethodGet, "/stream/item-hls/hls/..%2F..%2F..%2Fuploads%2Fsecret.mp4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
