package convertor

import (
	"encoding/json"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/po"
)

type ProcessingLogConvertor struct{}

func NewProcessingLogConvertor() *ProcessingLogConvertor { return &ProcessingLogConvertor{} }

func (c *ProcessingLogConvertor) ToEntity(p *po.ProcessingLog) *entity.ProcessingLogEntry {
	if p == nil {
		return nil
	}

	context := make(map[string]interface{})
	if p.ContextJSON != nil && *p.ContextJSON != "" {
		_ = json.Unmarshal([]byte(*p.ContextJSON), &context)
	}

	return entity.RebuildProcessingLogEntry(
		p.Id, p.ItemUUID,
		vo.JobKind(p.JobKind), vo.LogSeverity(p.Severity),
		p.Message, context, p.Percent, p.CreatedAt,
	)
}

func (c *ProcessingLogConvertor) ToPO(e *entity.ProcessingLogEntry) *po.ProcessingLog {
	if e == nil {
		return nil
	}

	var contextJSON *string
	if ctx := e.Context(); len(ctx) > 0 {
		if raw, err := json.Marshal(ctx); err == nil {
			s := string(raw)
			contextJSON = &s
		}
	}

	return &po.ProcessingLog{
		BaseModel:   po.BaseModel{Id: e.ID(), CreatedAt: e.CreatedAt(), UpdatedAt: e.CreatedAt()},
		ItemUUID:    e.ItemUUID(),
		JobKind:     e.JobKind().String(),
		Severity:    string(e.Severity()),
		Message:     e.Message(),
		ContextJSON: contextJSON,
		Percent:     e.Percent(),
	}
}
