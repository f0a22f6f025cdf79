package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trackApply/internal/api/middleware"
	"trackApply/internal/errcode"
	"trackApply/internal/jobs"
)

// ObjectStore holds resume attachments; *storage.ResumeBucket implements it.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// JobHandler 处理求职申请记录的增删改查。
type JobHandler struct {
	jobs    *jobs.Service
	objects ObjectStore
}

// NewJobHandler objects may be nil when attachments are disabled.
func NewJobHandler(jobService *jobs.Service, objects ObjectStore) *JobHandler {
	return &JobHandler{jobs: jobService, objects: objects}
}

var errNoSession = errcode.New(errcode.Unauthorized, "Authentication required.")

// Create 新建一条记录，owner 总是当前用户。
func (h *JobHandler) Create(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, errNoSession)
		return
	}

	var fields jobs.Fields
	typeErrs, ok := bindJSON(c, &fields)
	if !ok {
		return
	}
	if typeErrs != nil {
		_, err := fields.Validate()
		respondError(c, withTypeErrors(typeErrs, err))
		return
	}

	record, err := h.jobs.Create(c.Request.Context(), ownerID, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *JobHandler) List(c *gin.Context) {
	ownerID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, errNoSession)
		return
	}

	records, err := h.jobs.List(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *JobHandler) Get(c *gin.Context) {
	ownerID, id, ok := jobTarget(c)
	if !ok {
		return
	}

	record, err := h.jobs.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Update 以完整字段集替换记录。
func (h *JobHandler) Update(c *gin.Context) {
	ownerID, id, ok := jobTarget(c)
	if !ok {
		return
	}

	var fields jobs.Fields
	typeErrs, ok := bindJSON(c, &fields)
	if !ok {
		return
	}
	if typeErrs != nil {
		_, err := fields.Validate()
		respondError(c, withTypeErrors(typeErrs, err))
		return
	}

	record, err := h.jobs.Update(c.Request.Context(), ownerID, id, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type deleteJobResponse struct {
	Message string       `json:"message"`
	Job     *jobs.Record `json:"job"`
}

// Delete 删除记录并尽力清理其附件。
func (h *JobHandler) Delete(c *gin.Context) {
	ownerID, id, ok := jobTarget(c)
	if !ok {
		return
	}

	record, err := h.jobs.Delete(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	if key := record.ResumeKey(); key != nil && h.objects != nil {
		if err := h.objects.Remove(c.Request.Context(), *key); err != nil {
			middleware.LoggerFromContext(c).Warn("delete resume object failed",
				slog.String("object_key", *key),
				slog.Any("error", err),
			)
		}
	}

	c.JSON(http.StatusOK, deleteJobResponse{Message: "Job application deleted", Job: record})
}

// jobTarget resolves the caller and :id, answering the request itself on failure.
func jobTarget(c *gin.Context) (ownerID, id uint, ok bool) {
	ownerID, ok = userIDFromContext(c)
	if !ok {
		respondError(c, errNoSession)
		return 0, 0, false
	}
	id, ok = jobIDParam(c)
	if !ok {
		respondError(c, errcode.New(errcode.NotFound, "Job application not found."))
		return 0, 0, false
	}
	return ownerID, id, true
}
