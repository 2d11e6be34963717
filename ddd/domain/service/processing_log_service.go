package service

import (
	"context"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/pkg/logger"
)

// ProcessingLogService 处理日志台账服务
// 台账写入失败只记录告警，绝不反向阻塞处理管线
type ProcessingLogService interface {
	// Info 记录一条信息级日志
	Info(ctx context.Context, itemUUID string, kind vo.JobKind, message string, fields map[string]interface{})
	// Warn 记录一条告警级日志
	Warn(ctx context.Context, itemUUID string, kind vo.JobKind, message string, fields map[string]interface{})
	// Error 记录一条错误级日志
	Error(ctx context.Context, itemUUID string, kind vo.JobKind, message string, fields map[string]interface{})
	// Progress 记录带进度百分比的状态行
	Progress(ctx context.Context, itemUUID string, kind vo.JobKind, percent int, message string)
	// List 按条目倒序拉取日志
	List(ctx context.Context, itemUUID string, limit int) ([]*entity.ProcessingLogEntry, error)
	// Cleanup 作业结束后按种类裁剪，保留最近keep条
	Cleanup(ctx context.Context, itemUUID string, kind vo.JobKind) error
}

type processingLogServiceImpl struct {
	logRepo repo.ProcessingLogRepository
	keep    int
}

// NewProcessingLogService 创建处理日志台账服务
func NewProcessingLogService(logRepo repo.ProcessingLogRepository, keep int) ProcessingLogService {
	if keep <= 0 {
		keep = 200
	}
	return &processingLogServiceImpl{logRepo: logRepo, keep: keep}
}

func (s *processingLogServiceImpl) Info(ctx context.Context, itemUUID string, kind vo.JobKind, message string, fields map[string]interface{}) {
	s.append(ctx, itemUUID, kind, vo.SeverityInfo, message, fields, nil)
}

func (s *processingLogServiceImpl) Warn(ctx context.Context, itemUUID string, kind vo.JobKind, message string, fields map[string]interface{}) {
	s.append(ctx, itemUUID, kind, vo.SeverityWarn, message, fields, nil)
}

func (s *processingLogServiceImpl) Error(ctx context.Context, itemUUID string, kind vo.JobKind, message string, fields map[string]interface{}) {
	s.append(ctx, itemUUID, kind, vo.SeverityError, message, fields, nil)
}

func (s *processingLogServiceImpl) Progress(ctx context.Context, itemUUID string, kind vo.JobKind, percent int, message string) {
	s.append(ctx, itemUUID, kind, vo.SeverityInfo, message, nil, &percent)
}

func (s *processingLogServiceImpl) List(ctx context.Context, itemUUID string, limit int) ([]*entity.ProcessingLogEntry, error) {
	return s.logRepo.ListByItem(ctx, itemUUID, limit)
}

func (s *processingLogServiceImpl) Cleanup(ctx context.Context, itemUUID string, kind vo.JobKind) error {
	return s.logRepo.TrimOld(ctx, itemUUID, kind, s.keep)
}

func (s *processingLogServiceImpl) append(ctx context.Context, itemUUID string, kind vo.JobKind,
	severity vo.LogSeverity, message string, fields map[string]interface{}, percent *int) {
	entry := entity.NewProcessingLogEntry(itemUUID, kind, severity, message)
	for k, v := range fields {
		entry.WithContext(k, v)
	}
	if percent != nil {
		entry.WithPercent(*percent)
	}
	if err := s.logRepo.Append(ctx, entry); err != nil {
		logger.Warnf("append processing log failed item_uuid=%s kind=%s error=%s", itemUUID, kind, err.Error())
	}
}
