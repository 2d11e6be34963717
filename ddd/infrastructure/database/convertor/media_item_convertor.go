package convertor

import (
	"encoding/json"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/po"
)

type MediaItemConvertor struct{}

func NewMediaItemConvertor() *MediaItemConvertor { return &MediaItemConvertor{} }

func (c *MediaItemConvertor) ToEntity(p *po.MediaItem) *entity.MediaItemEntity {
	if p == nil {
		return nil
	}

	renditions := make(map[string]vo.RenditionDescriptor)
	if p.RenditionsJSON != nil && *p.RenditionsJSON != "" {
		// 损坏的JSON按空集处理，不拦截读取
		_ = json.Unmarshal([]byte(*p.RenditionsJSON), &renditions)
	}

	return entity.RebuildMediaItemEntity(
		p.ItemUUID, p.Slug, p.Title, p.OriginalPath,
		deref(p.StreamPath), deref(p.HLSMasterPath), deref(p.PosterPath),
		renditions,
		p.DurationSeconds, p.Width, p.Height,
		vo.ProcessingState(p.State), p.Progress, p.ErrorMessage,
		p.QueuedAt, p.StartedAt, p.LastHeartbeatAt, p.FinishedAt,
		p.CreatedAt, p.UpdatedAt,
	)
}

func (c *MediaItemConvertor) ToPO(e *entity.MediaItemEntity) *po.MediaItem {
	if e == nil {
		return nil
	}

	var renditionsJSON *string
	if rends := e.Renditions(); len(rends) > 0 {
		if raw, err := json.Marshal(rends); err == nil {
			s := string(raw)
			renditionsJSON = &s
		}
	}

	return &po.MediaItem{
		BaseModel:       po.BaseModel{CreatedAt: e.CreatedAt(), UpdatedAt: e.UpdatedAt()},
		ItemUUID:        e.ItemUUID(),
		Slug:            e.Slug(),
		Title:           e.Title(),
		OriginalPath:    e.OriginalPath(),
		StreamPath:      optional(e.StreamPath()),
		HLSMasterPath:   optional(e.HLSMasterPath()),
		PosterPath:      optional(e.PosterPath()),
		RenditionsJSON:  renditionsJSON,
		DurationSeconds: e.DurationSeconds(),
		Width:           e.Width(),
		Height:          e.Height(),
		State:           e.State().String(),
		Progress:        e.Progress(),
		ErrorMessage:    e.ErrorMessage(),
		QueuedAt:        e.QueuedAt(),
		StartedAt:       e.StartedAt(),
		LastHeartbeatAt: e.LastHeartbeatAt(),
		FinishedAt:      e.FinishedAt(),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
