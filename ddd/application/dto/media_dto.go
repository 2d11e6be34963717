package dto

import (
	"time"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/vo"
)

// RenditionDTO 单清晰度产物
type RenditionDTO struct {
	Quality     string `json:"quality"`
	Path        string `json:"path"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	BitrateKbps int    `json:"bitrate_kbps"`
	SizeBytes   int64  `json:"size_bytes"`
}

// MediaItemDTO 媒体条目完整视图
type MediaItemDTO struct {
	ItemUUID        string         `json:"item_uuid"`
	Slug            string         `json:"slug"`
	Title           string         `json:"title"`
	OriginalPath    string         `json:"original_path"`
	StreamPath      string         `json:"stream_path,omitempty"`
	HLSMasterPath   string         `json:"hls_master_path,omitempty"`
	PosterPath      string         `json:"poster_path,omitempty"`
	Renditions      []RenditionDTO `json:"renditions,omitempty"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
	Width           int            `json:"width,omitempty"`
	Height          int            `json:"height,omitempty"`
	State           string         `json:"state"`
	Progress        *int           `json:"progress,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewMediaItemDto 实体转DTO
func NewMediaItemDto(item *entity.MediaItemEntity) *MediaItemDTO {
	if item == nil {
		return nil
	}
	d := &MediaItemDTO{
		ItemUUID:        item.ItemUUID(),
		Slug:            item.Slug(),
		Title:           item.Title(),
		OriginalPath:    item.OriginalPath(),
		StreamPath:      item.StreamPath(),
		HLSMasterPath:   item.HLSMasterPath(),
		PosterPath:      item.PosterPath(),
		DurationSeconds: item.DurationSeconds(),
		Width:           item.Width(),
		Height:          item.Height(),
		State:           item.State().String(),
		Progress:        item.Progress(),
		ErrorMessage:    item.ErrorMessage(),
		CreatedAt:       item.CreatedAt(),
		UpdatedAt:       item.UpdatedAt(),
	}
	for _, r := range sortedRenditions(item.Renditions()) {
		d.Renditions = append(d.Renditions, RenditionDTO(r))
	}
	return d
}

// MediaStatusDTO 轮询状态视图：phase终态后前端停止轮询
type MediaStatusDTO struct {
	ItemUUID     string   `json:"item_uuid"`
	State        string   `json:"state"`
	Terminal     bool     `json:"terminal"`
	Progress     *int     `json:"progress,omitempty"` // nil表示估算中
	ErrorMessage string   `json:"error_message,omitempty"`
	PosterReady  bool     `json:"poster_ready"`
	StreamReady  bool     `json:"stream_ready"`
	HLSReady     bool     `json:"hls_ready"`
	Renditions   []string `json:"renditions,omitempty"`
}

// NewMediaStatusDto 实体转状态视图；hotPercent来自Redis热数据，优先于落库值
func NewMediaStatusDto(item *entity.MediaItemEntity, hotPercent *int) *MediaStatusDTO {
	if item == nil {
		return nil
	}
	progress := item.Progress()
	if hotPercent != nil && item.State() == vo.StateProcessing {
		progress = hotPercent
	}
	d := &MediaStatusDTO{
		ItemUUID:     item.ItemUUID(),
		State:        item.State().String(),
		Terminal:     item.State().IsTerminal(),
		Progress:     progress,
		ErrorMessage: item.ErrorMessage(),
		PosterReady:  item.PosterPath() != "",
		StreamReady:  item.StreamPath() != "",
		HLSReady:     item.HLSMasterPath() != "",
	}
	for _, r := range sortedRenditions(item.Renditions()) {
		d.Renditions = append(d.Renditions, r.Quality)
	}
	return d
}

// EnqueueResultDTO 入队结果
type EnqueueResultDTO struct {
	ItemUUID string `json:"item_uuid"`
	Kind     string `json:"kind"`
	Queue    string `json:"queue"`
	State    string `json:"state"`
}

// ProcessingLogDTO 处理日志条目
type ProcessingLogDTO struct {
	JobKind   string                 `json:"job_kind"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Percent   *int                   `json:"percent,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewProcessingLogDto 实体转DTO
func NewProcessingLogDto(e *entity.ProcessingLogEntry) *ProcessingLogDTO {
	if e == nil {
		return nil
	}
	return &ProcessingLogDTO{
		JobKind:   e.JobKind().String(),
		Severity:  string(e.Severity()),
		Message:   e.Message(),
		Context:   e.Context(),
		Percent:   e.Percent(),
		CreatedAt: e.CreatedAt(),
	}
}

// sortedRenditions 按档位表顺序输出，保证响应稳定
func sortedRenditions(m map[string]vo.RenditionDescriptor) []vo.RenditionDescriptor {
	var out []vo.RenditionDescriptor
	for _, tier := range vo.QualityLadder() {
		if d, ok := m[tier.Label]; ok {
			out = append(out, d)
		}
	}
	return out
}
