package service

import (
	"context"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/gateway"
	"media-service/ddd/domain/port"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/executor"
	"media-service/pkg/logger"
)

// MetadataService 元数据提取服务：探测源属性并抓取封面帧。
// 所有失败就地吸收并写台账，绝不影响条目的可播放性或主状态机。
type MetadataService interface {
	// Extract 提取元数据与封面帧
	Extract(ctx context.Context, item *entity.MediaItemEntity)
}

type metadataServiceImpl struct {
	itemRepo repo.MediaItemRepository
	ledger   ProcessingLogService
	store    gateway.MediaStore
	mirror   gateway.ArtifactMirror
	runner   port.ProcessRunner
	prober   port.MediaProber
	locator  port.ToolLocator
	builder  *executor.CommandBuilder
}

// NewMetadataService 创建元数据提取服务
func NewMetadataService(
	itemRepo repo.MediaItemRepository,
	ledger ProcessingLogService,
	store gateway.MediaStore,
	mirror gateway.ArtifactMirror,
	runner port.ProcessRunner,
	prober port.MediaProber,
	locator port.ToolLocator,
	builder *executor.CommandBuilder,
) MetadataService {
	return &metadataServiceImpl{
		itemRepo: itemRepo,
		ledger:   ledger,
		store:    store,
		mirror:   mirror,
		runner:   runner,
		prober:   prober,
		locator:  locator,
		builder:  builder,
	}
}

// Extract 提取元数据与封面帧
func (s *metadataServiceImpl) Extract(ctx context.Context, item *entity.MediaItemEntity) {
	itemUUID := item.ItemUUID()
	logger.Infof("start metadata extraction item_uuid=%s path=%s", itemUUID, item.OriginalPath())

	if _, err := s.locator.Locate("ffprobe"); err != nil {
		logger.Warnf("ffprobe unavailable, metadata extraction skipped item_uuid=%s error=%s", itemUUID, err.Error())
		s.ledger.Warn(ctx, itemUUID, vo.JobKindMetadata, "ffprobe unavailable, metadata extraction skipped", nil)
		return
	}

	sourceAbs := s.store.AbsPath(item.OriginalPath())
	probe, err := s.prober.Probe(ctx, sourceAbs)
	if err != nil {
		logger.Warnf("probe source failed item_uuid=%s error=%s", itemUUID, err.Error())
		s.ledger.Error(ctx, itemUUID, vo.JobKindMetadata, "probe source failed: "+err.Error(), nil)
		return
	}

	item.SetProbe(probe)
	if !probe.HasDuration() {
		s.ledger.Warn(ctx, itemUUID, vo.JobKindMetadata, "source duration unknown", nil)
	}

	s.capturePoster(ctx, item, probe)

	if err := s.itemRepo.SaveMediaItem(ctx, item); err != nil {
		logger.Errorf("save metadata failed item_uuid=%s error=%s", itemUUID, err.Error())
		s.ledger.Error(ctx, itemUUID, vo.JobKindMetadata, "save metadata failed: "+err.Error(), nil)
		return
	}

	s.ledger.Info(ctx, itemUUID, vo.JobKindMetadata, "metadata extracted", map[string]interface{}{
		"duration_seconds": probe.DurationSeconds,
		"width":            probe.Width,
		"height":           probe.Height,
		"codec":            probe.CodecName,
	})
	logger.Infof("metadata extraction finished item_uuid=%s duration=%.2f resolution=%dx%d",
		itemUUID, probe.DurationSeconds, probe.Width, probe.Height)
}

// capturePoster 抓取封面帧；时长未知或工具缺失时跳过
func (s *metadataServiceImpl) capturePoster(ctx context.Context, item *entity.MediaItemEntity, probe vo.MediaProbe) {
	itemUUID := item.ItemUUID()

	ffmpeg, err := s.locator.Locate("ffmpeg")
	if err != nil {
		logger.Warnf("ffmpeg unavailable, poster skipped item_uuid=%s error=%s", itemUUID, err.Error())
		s.ledger.Warn(ctx, itemUUID, vo.JobKindMetadata, "ffmpeg unavailable, poster skipped", nil)
		return
	}

	if err := s.store.EnsureDir(artifactDir(itemUUID)); err != nil {
		logger.Warnf("create artifact dir failed item_uuid=%s error=%s", itemUUID, err.Error())
		return
	}

	posterRel := posterRelPath(itemUUID)
	posterAbs := s.store.AbsPath(posterRel)
	at := executor.PosterTimestamp(probe.DurationSeconds)

	spec := port.RunSpec{
		Binary: ffmpeg,
		Args:   s.builder.PosterArgs(s.store.AbsPath(item.OriginalPath()), posterAbs, at),
	}
	if err := s.runner.Run(ctx, spec); err != nil {
		logger.Warnf("poster capture failed item_uuid=%s error=%s", itemUUID, err.Error())
		s.ledger.Error(ctx, itemUUID, vo.JobKindMetadata, "poster capture failed: "+err.Error(), nil)
		return
	}

	if size, err := s.store.SizeOf(posterRel); err != nil || size == 0 {
		logger.Warnf("poster artifact missing or empty item_uuid=%s path=%s", itemUUID, posterRel)
		s.ledger.Error(ctx, itemUUID, vo.JobKindMetadata, "poster artifact missing or empty", nil)
		return
	}

	item.SetPosterPath(posterRel)
	if s.mirror != nil && s.mirror.Enabled() {
		if _, err := s.mirror.MirrorFile(ctx, posterAbs, posterRel, "image/jpeg"); err != nil {
			logger.Warnf("mirror poster failed item_uuid=%s error=%s", itemUUID, err.Error())
		}
	}
	s.ledger.Info(ctx, itemUUID, vo.JobKindMetadata, "poster captured", map[string]interface{}{
		"poster_path": posterRel,
		"at_seconds":  at,
	})
}
