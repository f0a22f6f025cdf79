package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"trackApply/internal/api/middleware"
	"trackApply/internal/errcode"
)

var statusByKind = map[errcode.Kind]int{
	errcode.Validation:         http.StatusBadRequest,
	errcode.Conflict:           http.StatusConflict,
	errcode.InvalidCredentials: http.StatusBadRequest,
	errcode.Unauthorized:       http.StatusUnauthorized,
	errcode.Forbidden:          http.StatusForbidden,
	errcode.NotFound:           http.StatusNotFound,
	errcode.InvalidOrExpired:   http.StatusBadRequest,
	errcode.RateLimited:        http.StatusTooManyRequests,
	errcode.Unavailable:        http.StatusServiceUnavailable,
	errcode.Internal:           http.StatusInternalServerError,
}

type errorResponse struct {
	Error  string            `json:"error"`
	Code   errcode.Kind      `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondError writes the single error shape every endpoint uses. Server-side
// failures are logged with their cause and returned without detail.
func respondError(c *gin.Context, err error) {
	kind := errcode.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		kind, status = errcode.Internal, http.StatusInternalServerError
	}

	body := errorResponse{Code: kind}
	var e *errcode.Error
	if errors.As(err, &e) {
		body.Error = e.Message
		body.Fields = e.Fields
	}

	switch kind {
	case errcode.Internal:
		middleware.LoggerFromContext(c).Error("request failed", slog.Any("error", err))
		body = errorResponse{Error: "Server error.", Code: kind}
	case errcode.Unavailable:
		middleware.LoggerFromContext(c).Warn("request timed out", slog.Any("error", err))
		body = errorResponse{Error: "Service temporarily unavailable.", Code: kind}
	}

	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, errcode.New(errcode.Validation, msg))
}

type messageResponse struct {
	Message string `json:"message"`
}
