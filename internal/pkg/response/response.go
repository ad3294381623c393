package response

import (
	"net/http"

	"repairhub/internal/pkg/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindAuthorization: http.StatusForbidden,
	apperr.KindNotFound:      http.StatusNotFound,
	apperr.KindConflict:      http.StatusConflict,
	apperr.KindValidation:    http.StatusBadRequest,
}

var kindCode = map[apperr.Kind]string{
	apperr.KindAuthorization: "FORBIDDEN",
	apperr.KindNotFound:      "NOT_FOUND",
	apperr.KindConflict:      "CONFLICT",
	apperr.KindValidation:    "VALIDATION_ERROR",
}

// FromError writes the envelope for a service error. Unclassified and
// internal errors are logged and answered with a generic 500; their text
// never reaches the client.
func FromError(c *gin.Context, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		if log != nil {
			log.Error("request failed",
				zap.String("request_id", c.GetString("request_id")),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", apperr.Message(err))
		return
	}

	if details := apperr.Details(err); len(details) > 0 {
		ErrorWithDetails(c, status, kindCode[kind], apperr.Message(err), details)
		return
	}
	Error(c, status, kindCode[kind], apperr.Message(err))
}
