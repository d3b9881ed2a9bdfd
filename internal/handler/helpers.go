package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/middleware"
	"github.com/xxxsen/mfeed/internal/pkg/errcode"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
	"github.com/xxxsen/mfeed/internal/pkg/response"
)

func getIdentityID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextIdentityIDKey)
	identityID, _ := value.(string)
	return identityID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("identity_id", getIdentityID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		logger.Info("request rejected")
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		logger.Info("request rejected")
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrDimensionMismatch):
		logger.Warn("request rejected")
		response.Error(c, errcode.ErrDimensionMismatch, err.Error())
	case errors.Is(err, appErr.ErrInvalid):
		logger.Info("request rejected")
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, appErr.ErrUpstreamUnavailable):
		logger.Error("upstream unavailable")
		response.Error(c, errcode.ErrUpstreamUnavailable, "upstream unavailable")
	default:
		logger.Error("request failed")
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

func invalidRequest(c *gin.Context, msg string) {
	response.Error(c, errcode.ErrInvalid, msg)
}
