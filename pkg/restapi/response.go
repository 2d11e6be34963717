package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"media-service/pkg/errno"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Failed 根据错误类型返回响应
func Failed(c *gin.Context, err error) {
	var e *errno.Errno
	if errors.As(err, &e) {
		c.JSON(httpStatus(e.Code), Response{
			Code:    e.Code,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{
		Code:    errno.ErrInternalServer.Code,
		Message: err.Error(),
	})
}

// httpStatus 业务码映射到HTTP状态码
func httpStatus(code int) int {
	switch {
	case code == 200:
		return http.StatusOK
	case code >= 400 && code < 500:
		return code
	case code >= 500 && code < 600:
		return http.StatusInternalServerError
	case code == errno.ErrMediaItemNotFound.Code,
		code == errno.ErrRenditionNotFound.Code,
		code == errno.ErrMediaFileNotFound.Code:
		return http.StatusNotFound
	case code == errno.ErrAlreadyInProgress.Code:
		return http.StatusConflict
	case code >= 21000 && code < 22000:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
