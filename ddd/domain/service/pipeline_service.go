package service

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/gateway"
	"media-service/ddd/domain/port"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/executor"
	"media-service/ddd/infrastructure/queue"
	"media-service/pkg/config"
	"media-service/pkg/errno"
	"media-service/pkg/logger"
)

// PipelineService 转码编排领域服务：持有状态机，负责幂等入队、
// 前置校验、清晰度规划、逐档驱动外部进程并聚合进度
type PipelineService interface {
	// Enqueue 幂等入队，返回使用的队列标识
	Enqueue(ctx context.Context, item *entity.MediaItemEntity, kind vo.JobKind, reason string) (string, error)
	// Execute 执行一个已出队的作业，由Worker调用
	Execute(ctx context.Context, job *queue.Job) error
	// RequeueFailed 失败作业的有界自动重试，重新入队返回true，
	// 重试额度耗尽或状态不允许时返回false
	RequeueFailed(ctx context.Context, job *queue.Job) (bool, error)
}

type jobHandler func(ctx context.Context, item *entity.MediaItemEntity, ffmpegPath string, probe vo.MediaProbe) error

type pipelineServiceImpl struct {
	itemRepo repo.MediaItemRepository
	ledger   ProcessingLogService
	metadata MetadataService
	store    gateway.MediaStore
	mirror   gateway.ArtifactMirror
	runner   port.ProcessRunner
	prober   port.MediaProber
	locator  port.ToolLocator
	sink     port.ProgressSink
	jobQueue queue.JobQueue
	builder  *executor.CommandBuilder
	cfg      *config.Config

	handlers map[vo.JobKind]jobHandler
}

// NewPipelineService 创建转码编排服务
func NewPipelineService(
	itemRepo repo.MediaItemRepository,
	ledger ProcessingLogService,
	metadata MetadataService,
	store gateway.MediaStore,
	mirror gateway.ArtifactMirror,
	runner port.ProcessRunner,
	prober port.MediaProber,
	locator port.ToolLocator,
	sink port.ProgressSink,
	jobQueue queue.JobQueue,
	builder *executor.CommandBuilder,
	cfg *config.Config,
) PipelineService {
	s := &pipelineServiceImpl{
		itemRepo: itemRepo,
		ledger:   ledger,
		metadata: metadata,
		store:    store,
		mirror:   mirror,
		runner:   runner,
		prober:   prober,
		locator:  locator,
		sink:     sink,
		jobQueue: jobQueue,
		builder:  builder,
		cfg:      cfg,
	}
	s.handlers = map[vo.JobKind]jobHandler{
		vo.JobKindPrepareStream:   s.runPrepareStream,
		vo.JobKindBuildRenditions: s.runRenditions,
		vo.JobKindHLS:             s.runHLS,
	}
	return s
}

// Enqueue 幂等入队
func (s *pipelineServiceImpl) Enqueue(ctx context.Context, item *entity.MediaItemEntity, kind vo.JobKind, reason string) (string, error) {
	if !kind.IsValid() {
		return "", errno.ErrInvalidJobKind
	}

	itemUUID := item.ItemUUID()

	// 元数据作业独立于主状态机，不受幂等门禁约束，直接派发
	if !kind.DrivesStateMachine() {
		if err := s.dispatch(ctx, item, kind, reason); err != nil {
			return "", &errno.Errno{Code: errno.ErrQueueDispatch.Code,
				Message: "failed to dispatch background job: " + err.Error()}
		}
		return s.jobQueue.Name(), nil
	}

	if item.InProgressWithin(s.cfg.Pipeline.StalenessWindow, time.Now()) {
		logger.Infof("enqueue skipped, already in progress item_uuid=%s state=%s", itemUUID, item.State())
		return "", errno.ErrAlreadyInProgress
	}

	// 前置检查按序短路，每一项失败都落failed并给出可操作的原因
	if !s.store.Exists(item.OriginalPath()) {
		return "", s.rejectEnqueue(ctx, item, kind, errno.ErrSourceFileNotFound,
			fmt.Sprintf("source video file not found: %s", item.OriginalPath()))
	}
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := s.locator.Locate(tool); err != nil {
			return "", s.rejectEnqueue(ctx, item, kind, errno.ErrToolNotFound,
				fmt.Sprintf("%s not found in search paths or PATH", tool))
		}
	}
	if !s.featureEnabled(kind) {
		return "", s.rejectEnqueue(ctx, item, kind, errno.ErrFeatureDisabled,
			fmt.Sprintf("%s processing disabled by configuration", kind))
	}

	if err := item.MarkQueued(); err != nil {
		return "", &errno.Errno{Code: errno.ErrInvalidTransition.Code, Message: err.Error()}
	}
	if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
		return "", fmt.Errorf("save queued state: %w", err)
	}

	if err := s.dispatch(ctx, item, kind, reason); err != nil {
		// 派发失败属瞬态基础设施错误，落failed让上层可以立即重试
		s.failItem(ctx, item, kind, "failed to dispatch background job: "+err.Error())
		return "", &errno.Errno{Code: errno.ErrQueueDispatch.Code,
			Message: "failed to dispatch background job: " + err.Error()}
	}

	s.ledger.Info(ctx, itemUUID, kind, "job queued", map[string]interface{}{
		"reason": reason,
		"queue":  s.jobQueue.Name(),
	})
	logger.Infof("job queued item_uuid=%s kind=%s reason=%s queue=%s", itemUUID, kind, reason, s.jobQueue.Name())
	return s.jobQueue.Name(), nil
}

// Execute 执行一个已出队的作业
func (s *pipelineServiceImpl) Execute(ctx context.Context, job *queue.Job) error {
	item, err := s.itemRepo.GetMediaItem(ctx, job.ItemUUID)
	if err != nil {
		return fmt.Errorf("load media item: %w", err)
	}
	if item == nil {
		return errno.ErrMediaItemNotFound
	}

	if job.Kind == vo.JobKindMetadata {
		s.metadata.Extract(ctx, item)
		return nil
	}

	handler, ok := s.handlers[job.Kind]
	if !ok {
		return errno.ErrInvalidJobKind
	}

	if err := item.MarkProcessing(); err != nil {
		// 巡检或并发入队已改写状态，这个出队实例作废
		logger.Warnf("job skipped, unexpected state item_uuid=%s kind=%s state=%s", job.ItemUUID, job.Kind, item.State())
		return err
	}
	if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
		return fmt.Errorf("save processing state: %w", err)
	}
	s.ledger.Info(ctx, item.ItemUUID(), job.Kind, "processing started", map[string]interface{}{
		"attempt": job.Attempt,
	})

	runErr := s.runJob(ctx, item, job.Kind, handler)
	if err := s.sink.Flush(ctx, item.ItemUUID()); err != nil {
		logger.Warnf("flush progress failed item_uuid=%s error=%s", item.ItemUUID(), err.Error())
	}
	if runErr != nil {
		s.failItem(ctx, item, job.Kind, runErr.Error())
		// 重新抛给队列基础设施，让它的有限重试策略生效
		return runErr
	}

	if err := item.MarkReady(); err != nil {
		s.failItem(ctx, item, job.Kind, err.Error())
		return err
	}
	if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
		return fmt.Errorf("save ready state: %w", err)
	}
	s.ledger.Progress(ctx, item.ItemUUID(), job.Kind, 100, "processing complete")
	if err := s.ledger.Cleanup(ctx, item.ItemUUID(), job.Kind); err != nil {
		logger.Warnf("trim processing logs failed item_uuid=%s error=%s", item.ItemUUID(), err.Error())
	}
	logger.Infof("job finished item_uuid=%s kind=%s", item.ItemUUID(), job.Kind)
	return nil
}

// runJob 公共骨架：二次校验工具、探测源、派发到具体种类的处理器
func (s *pipelineServiceImpl) runJob(ctx context.Context, item *entity.MediaItemEntity, kind vo.JobKind, handler jobHandler) error {
	ffmpegPath, err := s.locator.Locate("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	ffprobePath, err := s.locator.Locate("ffprobe")
	if err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	logger.Infof("tool versions item_uuid=%s ffmpeg=%s ffprobe=%s",
		item.ItemUUID(), toolVersion(ffmpegPath), toolVersion(ffprobePath))

	probe, err := s.prober.Probe(ctx, s.store.AbsPath(item.OriginalPath()))
	if err != nil {
		return fmt.Errorf("probe source: %w", err)
	}
	item.SetProbe(probe)
	if !probe.HasDuration() {
		// 时长未知照常转码，进度进入估算模式
		item.ClearProgress()
		s.ledger.Warn(ctx, item.ItemUUID(), kind, "source duration unknown, progress estimated", nil)
	}

	return handler(ctx, item, ffmpegPath, probe)
}

// runPrepareStream 快速起播MP4
func (s *pipelineServiceImpl) runPrepareStream(ctx context.Context, item *entity.MediaItemEntity, ffmpegPath string, probe vo.MediaProbe) error {
	itemUUID := item.ItemUUID()
	if err := s.store.EnsureDir(artifactDir(itemUUID)); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	outRel := streamRelPath(itemUUID)
	args := s.builder.FastStartArgs(s.store.AbsPath(item.OriginalPath()), s.store.AbsPath(outRel))
	if err := s.runner.Run(ctx, s.runSpec(ctx, item, vo.JobKindPrepareStream, ffmpegPath, args, probe, 0, 1)); err != nil {
		return err
	}
	if err := s.verifyArtifact(outRel); err != nil {
		return err
	}

	item.SetStreamPath(outRel)
	if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
		return fmt.Errorf("save stream path: %w", err)
	}
	s.mirrorFile(ctx, outRel, "video/mp4")
	s.ledger.Info(ctx, itemUUID, vo.JobKindPrepareStream, "fast-start stream ready", map[string]interface{}{
		"stream_path": outRel,
	})
	return nil
}

// runRenditions 多清晰度MP4阶梯，逐档串行执行
func (s *pipelineServiceImpl) runRenditions(ctx context.Context, item *entity.MediaItemEntity, ffmpegPath string, probe vo.MediaProbe) error {
	itemUUID := item.ItemUUID()
	tiers := vo.SelectTiers(probe.Height, s.cfg.Pipeline.EnableFloorTier)
	if len(tiers) == 0 {
		return fmt.Errorf("no rendition tiers selectable for source height %d", probe.Height)
	}

	// 清理重建，避免上次失败残留的半成品
	if err := s.store.CleanDir(renditionDir(itemUUID)); err != nil {
		return fmt.Errorf("clean rendition dir: %w", err)
	}

	sourceAbs := s.store.AbsPath(item.OriginalPath())
	total := len(tiers)
	for i, tier := range tiers {
		outRel := renditionRelPath(itemUUID, tier.Label)
		args := s.builder.RenditionArgs(sourceAbs, s.store.AbsPath(outRel), tier)
		if err := s.runner.Run(ctx, s.runSpec(ctx, item, vo.JobKindBuildRenditions, ffmpegPath, args, probe, i, total)); err != nil {
			return fmt.Errorf("rendition %s: %w", tier.Label, err)
		}
		size, err := s.store.SizeOf(outRel)
		if err != nil || size == 0 {
			return fmt.Errorf("rendition %s artifact missing or empty: %s", tier.Label, outRel)
		}

		// 完成一档立即落库，部分完成也对外可见
		item.AddRendition(vo.RenditionDescriptor{
			Quality:     tier.Label,
			Path:        outRel,
			Width:       tier.Width,
			Height:      tier.Height,
			BitrateKbps: tier.VideoBitrateKbps,
			SizeBytes:   size,
		})
		if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
			return fmt.Errorf("save rendition %s: %w", tier.Label, err)
		}
		s.mirrorFile(ctx, outRel, "video/mp4")
		s.ledger.Progress(ctx, itemUUID, vo.JobKindBuildRenditions, (i+1)*100/total,
			fmt.Sprintf("rendition %s completed", tier.Label))
	}
	return nil
}

// runHLS HLS多码率切片加主清单
func (s *pipelineServiceImpl) runHLS(ctx context.Context, item *entity.MediaItemEntity, ffmpegPath string, probe vo.MediaProbe) error {
	itemUUID := item.ItemUUID()
	tiers := vo.SelectTiers(probe.Height, s.cfg.Pipeline.EnableFloorTier)
	if len(tiers) == 0 {
		return fmt.Errorf("no rendition tiers selectable for source height %d", probe.Height)
	}

	dirRel := hlsDir(itemUUID)
	if err := s.store.CleanDir(dirRel); err != nil {
		return fmt.Errorf("clean hls dir: %w", err)
	}

	sourceAbs := s.store.AbsPath(item.OriginalPath())
	total := len(tiers)
	for i, tier := range tiers {
		args := s.builder.HLSTierArgs(sourceAbs, s.store.AbsPath(dirRel), tier)
		if err := s.runner.Run(ctx, s.runSpec(ctx, item, vo.JobKindHLS, ffmpegPath, args, probe, i, total)); err != nil {
			return fmt.Errorf("hls tier %s: %w", tier.Label, err)
		}
		playlistRel := fmt.Sprintf("%s/%s.m3u8", dirRel, tier.Label)
		if err := s.verifyArtifact(playlistRel); err != nil {
			return fmt.Errorf("hls tier %s: %w", tier.Label, err)
		}
		s.ledger.Progress(ctx, itemUUID, vo.JobKindHLS, (i+1)*100/total,
			fmt.Sprintf("hls tier %s completed", tier.Label))
	}

	masterRel := hlsMasterRelPath(itemUUID)
	w, err := s.store.Create(masterRel)
	if err != nil {
		return fmt.Errorf("create master playlist: %w", err)
	}
	if _, err := w.Write([]byte(executor.MasterPlaylist(tiers))); err != nil {
		_ = w.Close()
		return fmt.Errorf("write master playlist: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close master playlist: %w", err)
	}

	item.SetHLSMasterPath(masterRel)
	if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
		return fmt.Errorf("save hls master path: %w", err)
	}
	if s.mirror != nil && s.mirror.Enabled() {
		if err := s.mirror.MirrorDir(ctx, s.store.AbsPath(dirRel), dirRel); err != nil {
			logger.Warnf("mirror hls dir failed item_uuid=%s error=%s", itemUUID, err.Error())
		}
	}
	s.ledger.Info(ctx, itemUUID, vo.JobKindHLS, "hls ladder ready", map[string]interface{}{
		"master_path": masterRel,
		"tiers":       total,
	})
	return nil
}

// runSpec 组装单次进程调用：局部进度映射为整体进度，心跳与进度互相独立
func (s *pipelineServiceImpl) runSpec(ctx context.Context, item *entity.MediaItemEntity, kind vo.JobKind,
	binary string, args []string, probe vo.MediaProbe, idx, total int) port.RunSpec {
	itemUUID := item.ItemUUID()
	return port.RunSpec{
		Binary:          binary,
		Args:            args,
		DurationSeconds: probe.DurationSeconds,
		OnProgress: func(local int) {
			overall := (idx*100 + local) / total
			_ = item.SetProgress(overall)
			if err := s.sink.SaveProgress(ctx, itemUUID, kind, overall); err != nil {
				logger.Warnf("save progress failed item_uuid=%s error=%s", itemUUID, err.Error())
			}
		},
		OnHeartbeat: func() {
			_ = item.Heartbeat()
			if err := s.sink.SaveHeartbeat(ctx, itemUUID); err != nil {
				logger.Warnf("save heartbeat failed item_uuid=%s error=%s", itemUUID, err.Error())
			}
		},
	}
}

// mirrorFile 异地镜像单个产物，失败只记日志
func (s *pipelineServiceImpl) mirrorFile(ctx context.Context, relPath, contentType string) {
	if s.mirror == nil || !s.mirror.Enabled() {
		return
	}
	if _, err := s.mirror.MirrorFile(ctx, s.store.AbsPath(relPath), relPath, contentType); err != nil {
		logger.Warnf("mirror artifact failed path=%s error=%s", relPath, err.Error())
	}
}

// verifyArtifact 产物必须存在且非空才算这一步成功
func (s *pipelineServiceImpl) verifyArtifact(relPath string) error {
	size, err := s.store.SizeOf(relPath)
	if err != nil {
		return fmt.Errorf("output artifact missing: %s", relPath)
	}
	if size == 0 {
		return fmt.Errorf("output artifact empty: %s", relPath)
	}
	return nil
}

// RequeueFailed 失败作业的有界自动重试：在重试额度内把failed项重新置回queued
// 并带上递增的attempt入队。只有驱动状态机的作业种类参与重试。
func (s *pipelineServiceImpl) RequeueFailed(ctx context.Context, job *queue.Job) (bool, error) {
	if !job.Kind.DrivesStateMachine() {
		return false, nil
	}

	nextAttempt := job.Attempt + 1
	if nextAttempt >= s.cfg.Worker.MaxJobAttempts {
		s.ledger.Error(ctx, job.ItemUUID, job.Kind,
			fmt.Sprintf("retry budget exhausted after %d attempts", nextAttempt), nil)
		logger.Warnf("retry budget exhausted item_uuid=%s kind=%s attempts=%d", job.ItemUUID, job.Kind, nextAttempt)
		return false, nil
	}

	item, err := s.itemRepo.GetMediaItem(ctx, job.ItemUUID)
	if err != nil {
		return false, fmt.Errorf("load media item: %w", err)
	}
	if item == nil {
		return false, nil
	}
	if item.State() != vo.StateFailed {
		// 期间有人工重试或并发入队改写了状态，放弃本次自动重试
		logger.Infof("auto retry skipped, unexpected state item_uuid=%s state=%s", job.ItemUUID, item.State())
		return false, nil
	}

	if err := item.MarkQueued(); err != nil {
		return false, &errno.Errno{Code: errno.ErrInvalidTransition.Code, Message: err.Error()}
	}
	if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
		return false, fmt.Errorf("save queued state: %w", err)
	}

	if err := s.jobQueue.Enqueue(ctx, &queue.Job{
		ItemUUID: job.ItemUUID,
		Kind:     job.Kind,
		Reason:   "auto-retry",
		Attempt:  nextAttempt,
	}); err != nil {
		s.failItem(ctx, item, job.Kind, "failed to dispatch retry: "+err.Error())
		return false, err
	}

	s.ledger.Info(ctx, job.ItemUUID, job.Kind, "job requeued for retry", map[string]interface{}{
		"attempt": nextAttempt,
	})
	logger.Infof("job requeued item_uuid=%s kind=%s attempt=%d", job.ItemUUID, job.Kind, nextAttempt)
	return true, nil
}

// failItem 统一失败收口：改状态、存库、写台账，不再向外扩散二次错误
func (s *pipelineServiceImpl) failItem(ctx context.Context, item *entity.MediaItemEntity, kind vo.JobKind, reason string) {
	if !item.State().CanTransitionTo(vo.StateFailed) {
		logger.Warnf("cannot mark failed item_uuid=%s state=%s reason=%s", item.ItemUUID(), item.State(), reason)
		return
	}
	if err := item.MarkFailed(reason); err != nil {
		logger.Warnf("mark failed rejected item_uuid=%s error=%s", item.ItemUUID(), err.Error())
		return
	}
	if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
		logger.Errorf("save failed state item_uuid=%s error=%s", item.ItemUUID(), err.Error())
	}
	s.ledger.Error(ctx, item.ItemUUID(), kind, reason, nil)
	logger.Errorf("job failed item_uuid=%s kind=%s reason=%s", item.ItemUUID(), kind, reason)
}

// rejectEnqueue 前置检查失败：落failed并返回带具体原因的业务错误
func (s *pipelineServiceImpl) rejectEnqueue(ctx context.Context, item *entity.MediaItemEntity, kind vo.JobKind,
	code *errno.Errno, message string) error {
	s.failItem(ctx, item, kind, message)
	return &errno.Errno{Code: code.Code, Message: message}
}

// dispatch 投递到进程内队列
func (s *pipelineServiceImpl) dispatch(ctx context.Context, item *entity.MediaItemEntity, kind vo.JobKind, reason string) error {
	return s.jobQueue.Enqueue(ctx, &queue.Job{
		ItemUUID: item.ItemUUID(),
		Kind:     kind,
		Reason:   reason,
	})
}

// featureEnabled 按作业种类检查功能开关
func (s *pipelineServiceImpl) featureEnabled(kind vo.JobKind) bool {
	switch kind {
	case vo.JobKindHLS:
		return s.cfg.Pipeline.EnableHLS
	case vo.JobKindBuildRenditions:
		return s.cfg.Pipeline.EnableRenditions
	default:
		return true
	}
}

// toolVersion 取版本信息首行，仅用于日志
func toolVersion(binary string) string {
	out, err := exec.Command(binary, "-version").Output()
	if err != nil {
		return "unknown"
	}
	if i := strings.IndexByte(string(out), '\n'); i > 0 {
		return string(out[:i])
	}
	return strings.TrimSpace(string(out))
}
