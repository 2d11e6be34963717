package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/port"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/executor"
	"media-service/ddd/infrastructure/queue"
	"media-service/ddd/infrastructure/storage"
	"media-service/pkg/config"
	"media-service/pkg/errno"
)

type fakeLocator struct {
	tools map[string]string
}

func (l *fakeLocator) Locate(name string) (string, error) {
	if p, ok := l.tools[name]; ok {
		return p, nil
	}
	return "", errors.New(name + " not found")
}

type fakeProber struct {
	probe vo.MediaProbe
	err   error
}

func (p *fakeProber) Probe(ctx context.Context, absPath string) (vo.MediaProbe, error) {
	return p.probe, p.err
}

// fakeRunner 模拟外部进程：按传入的回调产出产物并上报进度
type fakeRunner struct {
	onRun func(spec port.RunSpec) error
	runs  int
}

func (r *fakeRunner) Run(ctx context.Context, spec port.RunSpec) error {
	r.runs++
	return r.onRun(spec)
}

type nopSink struct{}

func (nopSink) SaveProgress(ctx context.Context, itemUUID string, kind vo.JobKind, percent int) error {
	return nil
}
func (nopSink) SaveHeartbeat(ctx context.Context, itemUUID string) error { return nil }
func (nopSink) Flush(ctx context.Context, itemUUID string) error         { return nil }

type memItemRepo struct {
	items map[string]*entity.MediaItemEntity
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[string]*entity.MediaItemEntity)}
}

func (r *memItemRepo) CreateMediaItem(ctx context.Context, item *entity.MediaItemEntity) error {
	r.items[item.ItemUUID()] = item
	return nil
}

func (r *memItemRepo) SaveMediaItem(ctx context.Context, item *entity.MediaItemEntity) error {
	r.items[item.ItemUUID()] = item
	return nil
}

func (r *memItemRepo) GetMediaItem(ctx context.Context, itemUUID string) (*entity.MediaItemEntity, error) {
	return r.items[itemUUID], nil
}

func (r *memItemRepo) GetMediaItemBySlug(ctx context.Context, slug string) (*entity.MediaItemEntity, error) {
	for _, it := range r.items {
		if it.Slug() == slug {
			return it, nil
		}
	}
	return nil, nil
}

func (r *memItemRepo) UpdateProgress(ctx context.Context, itemUUID string, percent int) error {
	return nil
}

func (r *memItemRepo) UpdateHeartbeat(ctx context.Context, itemUUID string, at time.Time) error {
	return nil
}

func (r *memItemRepo) QueryByState(ctx context.Context, states []vo.ProcessingState, limit int) ([]*entity.MediaItemEntity, error) {
	var out []*entity.MediaItemEntity
	for _, it := range r.items {
		for _, s := range states {
			if it.State() == s {
				out = append(out, it)
				break
			}
		}
	}
	return out, nil
}

type memLogRepo struct {
	entries []*entity.ProcessingLogEntry
}

func (r *memLogRepo) Append(ctx context.Context, e *entity.ProcessingLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *memLogRepo) ListByItem(ctx context.Context, itemUUID string, limit int) ([]*entity.ProcessingLogEntry, error) {
	return r.entries, nil
}

func (r *memLogRepo) TrimOld(ctx context.Context, itemUUID string, kind vo.JobKind, keep int) error {
	return nil
}

var _ repo.MediaItemRepository = (*memItemRepo)(nil)
var _ repo.ProcessingLogRepository = (*memLogRepo)(nil)

type pipelineFixture struct {
	svc      PipelineService
	itemRepo *memItemRepo
	logRepo  *memLogRepo
	runner   *fakeRunner
	jobQueue queue.JobQueue
	rootDir  string
}

func newPipelineFixture(t *testing.T, probe vo.MediaProbe, onRun func(spec port.RunSpec) error) *pipelineFixture {
	t.Helper()
	rootDir := t.TempDir()
	store, err := storage.NewLocalStore(rootDir)
	require.NoError(t, err)

	itemRepo := newMemItemRepo()
	logRepo := &memLogRepo{}
	ledger := NewProcessingLogService(logRepo, 200)
	runner := &fakeRunner{onRun: onRun}
	prober := &fakeProber{probe: probe}
	locator := &fakeLocator{tools: map[string]string{
		"ffmpeg":  "/nonexistent/ffmpeg",
		"ffprobe": "/nonexistent/ffprobe",
	}}
	jobQueue := queue.NewMemoryJobQueue("test-queue", 10)
	builder := executor.NewCommandBuilder("veryfast", 0, 6)

	cfg := &config.Config{}
	cfg.Pipeline.EnableHLS = true
	cfg.Pipeline.EnableRenditions = true
	cfg.Pipeline.EnableFloorTier = true
	cfg.Pipeline.StalenessWindow = 120 * time.Second
	cfg.Worker.MaxJobAttempts = 3

	metadata := NewMetadataService(itemRepo, ledger, store, nil, runner, prober, locator, builder)
	svc := NewPipelineService(itemRepo, ledger, metadata, store, nil, runner, prober, locator,
		nopSink{}, jobQueue, builder, cfg)

	return &pipelineFixture{
		svc:      svc,
		itemRepo: itemRepo,
		logRepo:  logRepo,
		runner:   runner,
		jobQueue: jobQueue,
		rootDir:  rootDir,
	}
}

func (f *pipelineFixture) writeSource(t *testing.T, relPath string) {
	t.Helper()
	abs := filepath.Join(f.rootDir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte("source-bytes"), 0o644))
}

// writeOutputArtifact 按ffmpeg参数约定把最后一个参数当作输出文件写出
func writeOutputArtifact(spec port.RunSpec) error {
	out := spec.Args[len(spec.Args)-1]
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if spec.OnProgress != nil {
		spec.OnProgress(50)
		spec.OnProgress(99)
	}
	return os.WriteFile(out, []byte("artifact"), 0o644)
}

func TestEnqueueMissingSourceMarksFailed(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, writeOutputArtifact)
	item := entity.NewMediaItemEntity("clip-1", "Clip", "uploads/missing.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))

	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.Error(t, err)

	var e *errno.Errno
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errno.ErrSourceFileNotFound.Code, e.Code)
	assert.Equal(t, vo.StateFailed, item.State())
	assert.Contains(t, item.ErrorMessage(), "source video file not found")
	assert.Equal(t, 0, f.jobQueue.Size(), "no job dispatched")
}

func TestEnqueueMissingToolMarksFailed(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	// 拆掉ffmpeg
	impl := f.svc.(*pipelineServiceImpl)
	impl.locator = &fakeLocator{tools: map[string]string{"ffprobe": "/nonexistent/ffprobe"}}

	item := entity.NewMediaItemEntity("clip-2", "Clip", "uploads/src.mp4")
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.Error(t, err)

	var e *errno.Errno
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errno.ErrToolNotFound.Code, e.Code)
	assert.Equal(t, vo.StateFailed, item.State())
	assert.Contains(t, item.ErrorMessage(), "ffmpeg not found")
}

func TestEnqueueFeatureDisabled(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	impl := f.svc.(*pipelineServiceImpl)
	impl.cfg.Pipeline.EnableHLS = false

	item := entity.NewMediaItemEntity("clip-3", "Clip", "uploads/src.mp4")
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindHLS, "upload")
	require.Error(t, err)

	var e *errno.Errno
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errno.ErrFeatureDisabled.Code, e.Code)
	assert.Equal(t, vo.StateFailed, item.State())
}

func TestEnqueueSuccessDispatches(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-4", "Clip", "uploads/src.mp4")
	queueName, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)
	assert.Equal(t, "test-queue", queueName)
	assert.Equal(t, vo.StateQueued, item.State())
	assert.NotNil(t, item.QueuedAt())
	assert.Empty(t, item.ErrorMessage())
	assert.Equal(t, 1, f.jobQueue.Size())
}

func TestEnqueueIdempotencyGuard(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-5", "Clip", "uploads/src.mp4")
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)

	// 窗口内重复入队被拒绝且不产生第二个作业
	_, err = f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "double-click")
	var e *errno.Errno
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errno.ErrAlreadyInProgress.Code, e.Code)
	assert.Equal(t, 1, f.jobQueue.Size())
}

func TestEnqueueMetadataBypassesIdempotencyGuard(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-meta-q", "Clip", "uploads/src.mp4")
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)
	require.Equal(t, vo.StateQueued, item.State())

	// 转码排队期间元数据作业照常派发，不受幂等门禁影响
	queueName, err := f.svc.Enqueue(context.Background(), item, vo.JobKindMetadata, "refresh")
	require.NoError(t, err)
	assert.Equal(t, "test-queue", queueName)
	assert.Equal(t, 2, f.jobQueue.Size())
}

func TestRequeueFailedWithinBudget(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, func(spec port.RunSpec) error {
		return errors.New("ffmpeg exited abnormally: exit status 1")
	})
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-requeue", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)

	job, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	require.Error(t, f.svc.Execute(context.Background(), job))
	require.Equal(t, vo.StateFailed, item.State())

	requeued, err := f.svc.RequeueFailed(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, requeued)
	assert.Equal(t, vo.StateQueued, item.State())
	assert.Empty(t, item.ErrorMessage())

	retry, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 1, retry.Attempt)
	assert.Equal(t, "auto-retry", retry.Reason)
}

func TestRequeueFailedExhaustedBudget(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, func(spec port.RunSpec) error {
		return errors.New("ffmpeg exited abnormally: exit status 1")
	})
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-exhaust", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)

	job, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	require.Error(t, f.svc.Execute(context.Background(), job))

	// 第三次尝试失败后额度用尽，不再入队，状态停在failed等人工处理
	job.Attempt = 2
	requeued, err := f.svc.RequeueFailed(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, requeued)
	assert.Equal(t, vo.StateFailed, item.State())
	assert.Equal(t, 0, f.jobQueue.Size())
}

func TestRequeueFailedSkipsNonFailedItem(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-raced", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)

	// 人工重试已抢先把条目置回queued，自动重试应当让路
	job := &queue.Job{ItemUUID: item.ItemUUID(), Kind: vo.JobKindBuildRenditions, Attempt: 0}
	requeued, err := f.svc.RequeueFailed(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, requeued)
	assert.Equal(t, 1, f.jobQueue.Size(), "no duplicate job dispatched")
}

func TestEnqueueRetryAfterFailure(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	now := time.Now()
	past := now.Add(-10 * time.Minute)
	item := entity.RebuildMediaItemEntity(
		"uuid-retry", "clip-6", "Clip", "uploads/src.mp4", "", "", "",
		nil, 10, 1280, 720,
		vo.StateFailed, nil, "previous failure",
		&past, &past, nil, &past,
		past, past,
	)

	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "retry")
	require.NoError(t, err)
	assert.Equal(t, vo.StateQueued, item.State())
	assert.Empty(t, item.ErrorMessage())
}

func TestExecutePrepareStream(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Width: 1280, Height: 720}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-7", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindPrepareStream, "upload")
	require.NoError(t, err)

	job, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.svc.Execute(context.Background(), job))

	assert.Equal(t, vo.StateReady, item.State())
	require.NotNil(t, item.Progress())
	assert.Equal(t, 100, *item.Progress())
	assert.NotEmpty(t, item.StreamPath())
	assert.NotNil(t, item.FinishedAt())
}

func TestExecuteRenditionsNoUpscale(t *testing.T) {
	// 源高500：只应产出360和480，绝不放大
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Width: 888, Height: 500}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-8", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)

	job, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.svc.Execute(context.Background(), job))

	assert.Equal(t, vo.StateReady, item.State())
	renditions := item.Renditions()
	assert.Len(t, renditions, 2)
	assert.Contains(t, renditions, "360")
	assert.Contains(t, renditions, "480")
	assert.NotContains(t, renditions, "720")
	assert.NotContains(t, renditions, "1080")
	assert.Equal(t, 2, f.runner.runs)
	for _, d := range renditions {
		assert.Greater(t, d.SizeBytes, int64(0))
	}
}

func TestExecuteFloorTierForTinySource(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Width: 320, Height: 240}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-9", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)

	job, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.svc.Execute(context.Background(), job))

	renditions := item.Renditions()
	assert.Len(t, renditions, 1)
	assert.Contains(t, renditions, "360")
}

func TestExecuteProcessFailureMarksFailed(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, func(spec port.RunSpec) error {
		return errors.New("ffmpeg exited abnormally: exit status 1")
	})
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-10", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindBuildRenditions, "upload")
	require.NoError(t, err)

	job, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	err = f.svc.Execute(context.Background(), job)
	require.Error(t, err, "process errors re-raised to the queue retry policy")

	assert.Equal(t, vo.StateFailed, item.State())
	assert.Contains(t, item.ErrorMessage(), "exited abnormally")
	// 失败不影响可播放性
	assert.True(t, item.IsPlayable())
}

func TestExecuteEmptyArtifactFails(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 10, Height: 720}, func(spec port.RunSpec) error {
		out := spec.Args[len(spec.Args)-1]
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		return os.WriteFile(out, nil, 0o644)
	})
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-11", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindPrepareStream, "upload")
	require.NoError(t, err)

	job, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	err = f.svc.Execute(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, vo.StateFailed, item.State())
	assert.Contains(t, item.ErrorMessage(), "empty")
}

func TestExecuteHLSWritesMasterPlaylist(t *testing.T) {
	f := newPipelineFixture(t, vo.MediaProbe{DurationSeconds: 30, Width: 1920, Height: 1080}, writeOutputArtifact)
	f.writeSource(t, "uploads/src.mp4")

	item := entity.NewMediaItemEntity("clip-12", "Clip", "uploads/src.mp4")
	require.NoError(t, f.itemRepo.CreateMediaItem(context.Background(), item))
	_, err := f.svc.Enqueue(context.Background(), item, vo.JobKindHLS, "upload")
	require.NoError(t, err)

	job, err := f.jobQueue.TryDequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.svc.Execute(context.Background(), job))

	assert.Equal(t, vo.StateReady, item.State())
	require.NotEmpty(t, item.HLSMasterPath())

	raw, err := os.ReadFile(filepath.Join(f.rootDir, item.HLSMasterPath()))
	require.NoError(t, err)
	master := string(raw)
	assert.Contains(t, master, "#EXTM3U")
	// 1080源：全部四档都在主清单里，带宽为视频+音频码率
	assert.Contains(t, master, "BANDWIDTH=896000,RESOLUTION=640x360")
	assert.Contains(t, master, "BANDWIDTH=5192000,RESOLUTION=1920x1080")
	assert.Contains(t, master, "1080.m3u8")
	assert.Equal(t, 4, f.runner.runs)
}

func TestWatchdogMarksStaleJobs(t *testing.T) {
	itemRepo := newMemItemRepo()
	logRepo := &memLogRepo{}
	ledger := NewProcessingLogService(logRepo, 200)
	wd := NewWatchdogService(itemRepo, ledger, 120*time.Second, 100)

	now := time.Now()
	staleQueued := now.Add(-5 * time.Minute)
	queued := entity.RebuildMediaItemEntity(
		"uuid-stale-q", "stale-q", "Clip", "uploads/a.mp4", "", "", "",
		nil, 0, 0, 0,
		vo.StateQueued, nil, "",
		&staleQueued, nil, nil, nil,
		staleQueued, staleQueued,
	)

	staleStart := now.Add(-6 * time.Minute)
	staleBeat := now.Add(-130 * time.Second)
	processing := entity.RebuildMediaItemEntity(
		"uuid-stale-p", "stale-p", "Clip", "uploads/b.mp4", "", "", "",
		nil, 0, 0, 0,
		vo.StateProcessing, nil, "",
		&staleStart, &staleStart, &staleBeat, nil,
		staleStart, staleStart,
	)

	freshBeat := now.Add(-10 * time.Second)
	healthy := entity.RebuildMediaItemEntity(
		"uuid-healthy", "healthy", "Clip", "uploads/c.mp4", "", "", "",
		nil, 0, 0, 0,
		vo.StateProcessing, nil, "",
		&staleStart, &staleStart, &freshBeat, nil,
		staleStart, staleStart,
	)

	ctx := context.Background()
	require.NoError(t, itemRepo.CreateMediaItem(ctx, queued))
	require.NoError(t, itemRepo.CreateMediaItem(ctx, processing))
	require.NoError(t, itemRepo.CreateMediaItem(ctx, healthy))

	marked, err := wd.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	assert.Equal(t, vo.StateFailed, queued.State())
	assert.Contains(t, queued.ErrorMessage(), "without being picked up")
	assert.Contains(t, queued.ErrorMessage(), "2m0s")

	assert.Equal(t, vo.StateFailed, processing.State())
	assert.Contains(t, processing.ErrorMessage(), "heartbeat")

	assert.Equal(t, vo.StateProcessing, healthy.State())
}

func TestMetadataExtractAbsorbsProbeFailure(t *testing.T) {
	rootDir := t.TempDir()
	store, err := storage.NewLocalStore(rootDir)
	require.NoError(t, err)

	itemRepo := newMemItemRepo()
	logRepo := &memLogRepo{}
	ledger := NewProcessingLogService(logRepo, 200)
	locator := &fakeLocator{tools: map[string]string{
		"ffmpeg":  "/nonexistent/ffmpeg",
		"ffprobe": "/nonexistent/ffprobe",
	}}
	prober := &fakeProber{err: errors.New("moov atom not found")}
	runner := &fakeRunner{onRun: writeOutputArtifact}
	builder := executor.NewCommandBuilder("veryfast", 0, 6)

	svc := NewMetadataService(itemRepo, ledger, store, nil, runner, prober, locator, builder)

	item := entity.NewMediaItemEntity("clip-meta", "Clip", "uploads/src.mp4")
	svc.Extract(context.Background(), item)

	// 探测失败被就地吸收：状态不变，仍可播放
	assert.Equal(t, vo.StatePending, item.State())
	assert.True(t, item.IsPlayable())
	assert.Empty(t, item.ErrorMessage())
	require.NotEmpty(t, logRepo.entries)
	assert.Equal(t, vo.SeverityError, logRepo.entries[len(logRepo.entries)-1].Severity())
}

func TestMetadataExtractCapturesPoster(t *testing.T) {
	rootDir := t.TempDir()
	store, err := storage.NewLocalStore(rootDir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(rootDir, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "uploads/src.mp4"), []byte("src"), 0o644))

	itemRepo := newMemItemRepo()
	ledger := NewProcessingLogService(&memLogRepo{}, 200)
	locator := &fakeLocator{tools: map[string]string{
		"ffmpeg":  "/nonexistent/ffmpeg",
		"ffprobe": "/nonexistent/ffprobe",
	}}
	prober := &fakeProber{probe: vo.MediaProbe{DurationSeconds: 60, Width: 1280, Height: 720, CodecName: "h264"}}
	runner := &fakeRunner{onRun: writeOutputArtifact}
	builder := executor.NewCommandBuilder("veryfast", 0, 6)

	svc := NewMetadataService(itemRepo, ledger, store, nil, runner, prober, locator, builder)

	item := entity.NewMediaItemEntity("clip-poster", "Clip", "uploads/src.mp4")
	require.NoError(t, itemRepo.CreateMediaItem(context.Background(), item))
	svc.Extract(context.Background(), item)

	assert.Equal(t, 60.0, item.DurationSeconds())
	assert.Equal(t, 1280, item.Width())
	require.NotEmpty(t, item.PosterPath())
	assert.FileExists(t, filepath.Join(rootDir, item.PosterPath()))
}
