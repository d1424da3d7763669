package response

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/xxxsen/mephisto/internal/pkg/errcode"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
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

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}

// Invalid reports every rejected field in one message, e.g.
// "filename can't be blank; size is too big".
func Invalid(c *gin.Context, verr *appErr.ValidationError) {
	Error(c, errcode.ErrInvalid, strings.Join(verr.Messages(), "; "))
}
