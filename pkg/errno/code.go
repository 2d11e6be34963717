package errno

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 媒体处理错误码
	ErrMediaItemNotFound   = &Errno{Code: 21001, Message: "Media item not found"}
	ErrItemUUIDRequired    = &Errno{Code: 21002, Message: "Item UUID is required"}
	ErrOriginalPathMissing = &Errno{Code: 21003, Message: "Original path is required"}
	ErrSourceFileNotFound  = &Errno{Code: 21004, Message: "Source video file not found"}
	ErrToolNotFound        = &Errno{Code: 21005, Message: "Transcoding tool not found"}
	ErrFeatureDisabled     = &Errno{Code: 21006, Message: "Processing disabled by configuration"}
	ErrAlreadyInProgress   = &Errno{Code: 21007, Message: "Processing already in progress"}
	ErrInvalidJobKind      = &Errno{Code: 21008, Message: "Invalid job kind"}
	ErrInvalidTransition   = &Errno{Code: 21009, Message: "Invalid processing state transition"}
	ErrQueueDispatch       = &Errno{Code: 21010, Message: "Failed to dispatch background job"}
	ErrRenditionNotFound   = &Errno{Code: 21011, Message: "Requested rendition not found"}
	ErrMediaFileNotFound   = &Errno{Code: 21012, Message: "Media file not found"}
	ErrSlugRequired        = &Errno{Code: 21013, Message: "Slug is required"}
)
