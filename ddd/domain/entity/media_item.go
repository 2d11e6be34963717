package entity

import (
	"time"

	"github.com/google/uuid"

	"media-service/ddd/domain/vo"
)

// MediaItemEntity 媒体条目实体，处理管线的工作单元
type MediaItemEntity struct {
	itemUUID        string                            // 条目UUID
	slug            string                            // 对外短标识
	title           string                            // 标题
	originalPath    string                            // 原始上传文件路径，写入后不可变
	streamPath      string                            // 快速起播MP4路径
	hlsMasterPath   string                            // HLS主清单路径
	posterPath      string                            // 封面帧路径
	renditions      map[string]vo.RenditionDescriptor // 清晰度标签 -> 产物描述
	durationSeconds float64                           // 探测到的时长
	width           int                               // 源宽度
	height          int                               // 源高度
	state           vo.ProcessingState                // 处理状态
	progress        *int                              // 进度0-100，nil表示时长未知、进度按估算
	errorMessage    string                            // 失败原因
	queuedAt        *time.Time                        // 入队时间
	startedAt       *time.Time                        // 开始处理时间
	lastHeartbeatAt *time.Time                        // 最近心跳时间
	finishedAt      *time.Time                        // 结束时间（成功或失败）
	createdAt       time.Time                         // 创建时间
	updatedAt       time.Time                         // 更新时间
}

// NewMediaItemEntity 创建媒体条目；源路径即是可播放的最低保证
func NewMediaItemEntity(slug, title, originalPath string) *MediaItemEntity {
	now := time.Now()
	return &MediaItemEntity{
		itemUUID:     uuid.New().String(),
		slug:         slug,
		title:        title,
		originalPath: originalPath,
		renditions:   make(map[string]vo.RenditionDescriptor),
		state:        vo.StatePending,
		createdAt:    now,
		updatedAt:    now,
	}
}

// RebuildMediaItemEntity 从持久化记录还原实体，仅供基础设施层使用
func RebuildMediaItemEntity(
	itemUUID, slug, title, originalPath, streamPath, hlsMasterPath, posterPath string,
	renditions map[string]vo.RenditionDescriptor,
	durationSeconds float64, width, height int,
	state vo.ProcessingState, progress *int, errorMessage string,
	queuedAt, startedAt, lastHeartbeatAt, finishedAt *time.Time,
	createdAt, updatedAt time.Time,
) *MediaItemEntity {
	if renditions == nil {
		renditions = make(map[string]vo.RenditionDescriptor)
	}
	return &MediaItemEntity{
		itemUUID:        itemUUID,
		slug:            slug,
		title:           title,
		originalPath:    originalPath,
		streamPath:      streamPath,
		hlsMasterPath:   hlsMasterPath,
		posterPath:      posterPath,
		renditions:      renditions,
		durationSeconds: durationSeconds,
		width:           width,
		height:          height,
		state:           state,
		progress:        progress,
		errorMessage:    errorMessage,
		queuedAt:        queuedAt,
		startedAt:       startedAt,
		lastHeartbeatAt: lastHeartbeatAt,
		finishedAt:      finishedAt,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// Getters
func (m *MediaItemEntity) ItemUUID() string           { return m.itemUUID }
func (m *MediaItemEntity) Slug() string               { return m.slug }
func (m *MediaItemEntity) Title() string              { return m.title }
func (m *MediaItemEntity) OriginalPath() string       { return m.originalPath }
func (m *MediaItemEntity) StreamPath() string         { return m.streamPath }
func (m *MediaItemEntity) HLSMasterPath() string      { return m.hlsMasterPath }
func (m *MediaItemEntity) PosterPath() string         { return m.posterPath }
func (m *MediaItemEntity) DurationSeconds() float64   { return m.durationSeconds }
func (m *MediaItemEntity) Width() int                 { return m.width }
func (m *MediaItemEntity) Height() int                { return m.height }
func (m *MediaItemEntity) State() vo.ProcessingState  { return m.state }
func (m *MediaItemEntity) ErrorMessage() string       { return m.errorMessage }
func (m *MediaItemEntity) QueuedAt() *time.Time       { return m.queuedAt }
func (m *MediaItemEntity) StartedAt() *time.Time      { return m.startedAt }
func (m *MediaItemEntity) LastHeartbeatAt() *time.Time { return m.lastHeartbeatAt }
func (m *MediaItemEntity) FinishedAt() *time.Time     { return m.finishedAt }
func (m *MediaItemEntity) CreatedAt() time.Time       { return m.createdAt }
func (m *MediaItemEntity) UpdatedAt() time.Time       { return m.updatedAt }

// Progress 返回进度副本，nil表示估算中
func (m *MediaItemEntity) Progress() *int {
	if m.progress == nil {
		return nil
	}
	v := *m.progress
	return &v
}

// Renditions 返回清晰度映射的副本
func (m *MediaItemEntity) Renditions() map[string]vo.RenditionDescriptor {
	out := make(map[string]vo.RenditionDescriptor, len(m.renditions))
	for k, v := range m.renditions {
		out[k] = v
	}
	return out
}

// Rendition 按清晰度标签查找产物
func (m *MediaItemEntity) Rendition(quality string) (vo.RenditionDescriptor, bool) {
	d, ok := m.renditions[quality]
	return d, ok
}

// IsPlayable 源文件路径存在即可播放，与处理状态无关
func (m *MediaItemEntity) IsPlayable() bool {
	return m.originalPath != ""
}

// MarkQueued 入队：清除上次的错误、进度与心跳
func (m *MediaItemEntity) MarkQueued() error {
	if !m.state.CanTransitionTo(vo.StateQueued) {
		return NewDomainError("cannot enqueue media item in state: " + m.state.String())
	}
	now := time.Now()
	m.state = vo.StateQueued
	m.queuedAt = &now
	m.errorMessage = ""
	m.progress = nil
	m.lastHeartbeatAt = nil
	m.startedAt = nil
	m.finishedAt = nil
	m.updatedAt = now
	return nil
}

// MarkProcessing 由Worker在取到作业后调用，入队侧绝不直接置processing
func (m *MediaItemEntity) MarkProcessing() error {
	if !m.state.CanTransitionTo(vo.StateProcessing) {
		return NewDomainError("cannot start processing media item in state: " + m.state.String())
	}
	now := time.Now()
	m.state = vo.StateProcessing
	m.startedAt = &now
	m.lastHeartbeatAt = &now
	m.updatedAt = now
	return nil
}

// Heartbeat 刷新存活时间戳
func (m *MediaItemEntity) Heartbeat() error {
	if m.state != vo.StateProcessing {
		return NewDomainError("can only heartbeat while processing")
	}
	now := time.Now()
	m.lastHeartbeatAt = &now
	m.updatedAt = now
	return nil
}

// SetProgress 更新进度，单次处理内只增不减，99封顶
func (m *MediaItemEntity) SetProgress(percent int) error {
	if m.state != vo.StateProcessing {
		return NewDomainError("can only update progress while processing")
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}
	if m.progress != nil && percent < *m.progress {
		return nil
	}
	m.progress = &percent
	m.updatedAt = time.Now()
	return nil
}

// ClearProgress 时长未知时进入估算模式
func (m *MediaItemEntity) ClearProgress() {
	m.progress = nil
	m.updatedAt = time.Now()
}

// MarkReady 全部产物完成，进度置100
func (m *MediaItemEntity) MarkReady() error {
	if !m.state.CanTransitionTo(vo.StateReady) {
		return NewDomainError("cannot mark ready media item in state: " + m.state.String())
	}
	now := time.Now()
	full := 100
	m.state = vo.StateReady
	m.progress = &full
	m.errorMessage = ""
	m.finishedAt = &now
	m.updatedAt = now
	return nil
}

// MarkFailed 记录失败原因；不影响已发布条目的可播放性
func (m *MediaItemEntity) MarkFailed(reason string) error {
	if !m.state.CanTransitionTo(vo.StateFailed) {
		return NewDomainError("cannot fail media item in state: " + m.state.String())
	}
	now := time.Now()
	m.state = vo.StateFailed
	m.errorMessage = reason
	m.finishedAt = &now
	m.updatedAt = now
	return nil
}

// AddRendition 追加完成的清晰度，集合只增不减
func (m *MediaItemEntity) AddRendition(desc vo.RenditionDescriptor) {
	m.renditions[desc.Quality] = desc
	m.updatedAt = time.Now()
}

// SetProbe 写入探测到的源属性
func (m *MediaItemEntity) SetProbe(probe vo.MediaProbe) {
	m.durationSeconds = probe.DurationSeconds
	m.width = probe.Width
	m.height = probe.Height
	m.updatedAt = time.Now()
}

// SetPosterPath 写入封面帧路径
func (m *MediaItemEntity) SetPosterPath(path string) {
	m.posterPath = path
	m.updatedAt = time.Now()
}

// SetStreamPath 写入快速起播文件路径
func (m *MediaItemEntity) SetStreamPath(path string) {
	m.streamPath = path
	m.updatedAt = time.Now()
}

// SetHLSMasterPath 写入HLS主清单路径
func (m *MediaItemEntity) SetHLSMasterPath(path string) {
	m.hlsMasterPath = path
	m.updatedAt = time.Now()
}

// IsStale 判定卡死：queued超窗且未开跑，或processing心跳超窗
func (m *MediaItemEntity) IsStale(window time.Duration, now time.Time) bool {
	switch m.state {
	case vo.StateQueued:
		return m.queuedAt != nil && now.Sub(*m.queuedAt) > window
	case vo.StateProcessing:
		if m.lastHeartbeatAt != nil {
			return now.Sub(*m.lastHeartbeatAt) > window
		}
		return m.startedAt != nil && now.Sub(*m.startedAt) > window
	default:
		return false
	}
}

// InProgressWithin 幂等入队判定：窗口内queued或心跳仍新鲜的processing视为进行中
func (m *MediaItemEntity) InProgressWithin(window time.Duration, now time.Time) bool {
	switch m.state {
	case vo.StateQueued:
		return m.queuedAt != nil && now.Sub(*m.queuedAt) <= window
	case vo.StateProcessing:
		return m.lastHeartbeatAt != nil && now.Sub(*m.lastHeartbeatAt) <= window
	default:
		return false
	}
}

// DomainError 领域错误
type DomainError struct {
	message string
}

func NewDomainError(message string) *DomainError {
	return &DomainError{message: message}
}

func (e *DomainError) Error() string {
	return e.message
}
