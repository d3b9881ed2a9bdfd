package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error always answers with http 200; the failure is carried by code.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}

type pageBody struct {
	Items      interface{} `json:"items"`
	NextCursor *string     `json:"next_cursor"`
}

// Page writes a cursor page; an empty cursor is rendered as null.
func Page(c *gin.Context, items interface{}, nextCursor string) {
	body := pageBody{Items: items}
	if nextCursor != "" {
		body.NextCursor = &nextCursor
	}
	proxyutil.SuccessJson(c, body)
}
