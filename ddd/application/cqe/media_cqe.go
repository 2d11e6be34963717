package cqe

import (
	"media-service/ddd/domain/vo"
	"media-service/pkg/errno"
)

// RegisterMediaReq 登记媒体条目请求
type RegisterMediaReq struct {
	Slug         string `json:"slug" binding:"required"`          // 对外短标识
	Title        string `json:"title"`                            // 标题
	OriginalPath string `json:"original_path" binding:"required"` // 原始上传文件相对路径
}

func (req *RegisterMediaReq) Validate() error {
	if req.Slug == "" {
		return errno.ErrSlugRequired
	}
	if req.OriginalPath == "" {
		return errno.ErrOriginalPathMissing
	}
	return nil
}

// EnqueueProcessingReq 触发后台处理请求
type EnqueueProcessingReq struct {
	ItemUUID string `uri:"item_uuid" binding:"required"`
	Kind     string `json:"kind" binding:"required"` // metadata|prepare_stream|build_renditions|hls
	Reason   string `json:"reason"`                  // 触发原因，用于台账
}

func (req *EnqueueProcessingReq) Validate() error {
	if req.ItemUUID == "" {
		return errno.ErrItemUUIDRequired
	}
	if _, ok := vo.ParseJobKind(req.Kind); !ok {
		return errno.ErrInvalidJobKind
	}
	return nil
}

// RetryProcessingReq 重试请求
type RetryProcessingReq struct {
	ItemUUID string `uri:"item_uuid" binding:"required"`
	Kind     string `json:"kind"` // 为空时重试多清晰度转码
}

func (req *RetryProcessingReq) Validate() error {
	if req.ItemUUID == "" {
		return errno.ErrItemUUIDRequired
	}
	if req.Kind == "" {
		req.Kind = vo.JobKindBuildRenditions.String()
	}
	if _, ok := vo.ParseJobKind(req.Kind); !ok {
		return errno.ErrInvalidJobKind
	}
	return nil
}

// QueryStatusReq 状态轮询请求
type QueryStatusReq struct {
	ItemUUID string `uri:"item_uuid" binding:"required"`
}

func (req *QueryStatusReq) Validate() error {
	if req.ItemUUID == "" {
		return errno.ErrItemUUIDRequired
	}
	return nil
}

// ListLogsReq 处理日志查询请求
type ListLogsReq struct {
	ItemUUID string `uri:"item_uuid" binding:"required"`
	Limit    int    `form:"limit"`
}

func (req *ListLogsReq) Validate() error {
	if req.ItemUUID == "" {
		return errno.ErrItemUUIDRequired
	}
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}
	return nil
}
