package response

import (
	"net/http"

	"wallet-custody/pkg/errno"

	"github.com/gin-gonic/gin"
)

// Response defines the standard JSON structure
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success returns a success response with data
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // Return empty object instead of null
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error returns an error response, 业务错误统一 HTTP 200，由 code 区分
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    gin.H{},
	})
}

// Abort 中间件使用：带 HTTP 状态码并终止后续 handler
func Abort(c *gin.Context, status int, err error) {
	code, msg := errno.Decode(err)
	c.AbortWithStatusJSON(status, Response{
		Code:    code,
		Message: msg,
		Data:    gin.H{},
	})
}
