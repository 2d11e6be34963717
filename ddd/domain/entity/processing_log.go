package entity

import (
	"time"

	"media-service/ddd/domain/vo"
)

// ProcessingLogEntry 处理日志条目，只追加，仅保留期裁剪可删除
type ProcessingLogEntry struct {
	id        int64
	itemUUID  string
	jobKind   vo.JobKind
	severity  vo.LogSeverity
	message   string
	context   map[string]interface{}
	percent   *int
	createdAt time.Time
}

// NewProcessingLogEntry 创建日志条目
func NewProcessingLogEntry(itemUUID string, kind vo.JobKind, severity vo.LogSeverity, message string) *ProcessingLogEntry {
	return &ProcessingLogEntry{
		itemUUID:  itemUUID,
		jobKind:   kind,
		severity:  severity,
		message:   message,
		context:   make(map[string]interface{}),
		createdAt: time.Now(),
	}
}

// RebuildProcessingLogEntry 从持久化记录还原
func RebuildProcessingLogEntry(id int64, itemUUID string, kind vo.JobKind, severity vo.LogSeverity,
	message string, context map[string]interface{}, percent *int, createdAt time.Time) *ProcessingLogEntry {
	if context == nil {
		context = make(map[string]interface{})
	}
	return &ProcessingLogEntry{
		id:        id,
		itemUUID:  itemUUID,
		jobKind:   kind,
		severity:  severity,
		message:   message,
		context:   context,
		percent:   percent,
		createdAt: createdAt,
	}
}

func (e *ProcessingLogEntry) ID() int64                       { return e.id }
func (e *ProcessingLogEntry) ItemUUID() string                { return e.itemUUID }
func (e *ProcessingLogEntry) JobKind() vo.JobKind             { return e.jobKind }
func (e *ProcessingLogEntry) Severity() vo.LogSeverity        { return e.severity }
func (e *ProcessingLogEntry) Message() string                 { return e.message }
func (e *ProcessingLogEntry) Context() map[string]interface{} { return e.context }
func (e *ProcessingLogEntry) CreatedAt() time.Time            { return e.createdAt }

// Percent 返回进度副本，未携带时为nil
func (e *ProcessingLogEntry) Percent() *int {
	if e.percent == nil {
		return nil
	}
	v := *e.percent
	return &v
}

// WithContext 附加结构化上下文
func (e *ProcessingLogEntry) WithContext(key string, value interface{}) *ProcessingLogEntry {
	e.context[key] = value
	return e
}

// WithPercent 附加进度
func (e *ProcessingLogEntry) WithPercent(percent int) *ProcessingLogEntry {
	e.percent = &percent
	return e
}
