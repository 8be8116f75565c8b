package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/move-league/move-league-backend/internal/service"
	"github.com/move-league/move-league-backend/pkg/logger"
)

var statusByKind = map[service.ErrorKind]int{
	service.KindAuthentication: http.StatusUnauthorized,
	service.KindAuthorization:  http.StatusForbidden,
	service.KindInvalidState:   http.StatusConflict,
	service.KindValidation:     http.StatusUnprocessableEntity,
	service.KindConsensus:      http.StatusConflict,
	service.KindConflict:       http.StatusConflict,
	service.KindNotFound:       http.StatusNotFound,
	service.KindLedger:         http.StatusInternalServerError,
	service.KindInternal:       http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind service.ErrorKind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": {"kind", "message"}}. Causes of internal
// errors are logged, never returned.
func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		svcErr = &service.Error{Kind: service.KindInternal, Message: "unexpected error", Err: err}
	}

	status := StatusFor(svcErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			"path", c.FullPath(),
			"kind", svcErr.Kind,
			"error", err,
		)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"kind":    svcErr.Kind,
			"message": svcErr.Message,
		},
	})
}

func badRequest(message string) error {
	return &service.Error{Kind: service.KindValidation, Message: message}
}
