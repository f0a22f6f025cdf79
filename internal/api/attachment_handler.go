package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trackApply/internal/api/middleware"
	"trackApply/internal/errcode"
	"trackApply/internal/jobs"
	"trackApply/internal/storage"
)

const (
	maxResumeSize     = 5 << 20
	resumeLinkTTL     = 5 * time.Minute
	multipartOverhead = 1 << 20
)

var resumeContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// AttachmentHandler 负责简历附件的上传与访问。
type AttachmentHandler struct {
	jobs    *jobs.Service
	objects ObjectStore
	scanner storage.VirusScanner
}

// NewAttachmentHandler scanner may be nil to skip virus scanning.
func NewAttachmentHandler(jobService *jobs.Service, objects ObjectStore, scanner storage.VirusScanner) *AttachmentHandler {
	return &AttachmentHandler{jobs: jobService, objects: objects, scanner: scanner}
}

// UploadResume 处理简历上传，并在上传前扫描病毒。
func (h *AttachmentHandler) UploadResume(c *gin.Context) {
	ownerID, id, ok := jobTarget(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	if _, err := h.jobs.Get(ctx, ownerID, id); err != nil {
		respondError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxResumeSize+multipartOverhead)
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, fileError("is required"))
		return
	}
	if file.Size > maxResumeSize {
		respondError(c, fileError("must be at most 5 MiB"))
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, allowed := resumeContentTypes[ext]
	if !allowed {
		respondError(c, fileError("must be a PDF, DOC or DOCX file"))
		return
	}

	if h.scanner != nil {
		if err := h.scan(file); err != nil {
			if errors.Is(err, storage.ErrInfected) {
				logger.Warn("infected upload rejected", slog.Any("error", err))
				respondError(c, errcode.New(errcode.Validation, "Malicious file detected."))
				return
			}
			respondError(c, errcode.Wrap(errcode.Internal, "failed to scan file", err))
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		respondError(c, errcode.Wrap(errcode.Internal, "failed to open file", err))
		return
	}
	defer reader.Close()

	objectKey := fmt.Sprintf("resumes/%d/%d/%s%s", ownerID, id, uuid.NewString(), ext)
	if err := h.objects.Put(ctx, objectKey, reader, file.Size, contentType); err != nil {
		respondError(c, errcode.Wrap(errcode.Internal, "failed to upload file", err))
		return
	}

	previous, err := h.jobs.SetResume(ctx, ownerID, id, objectKey)
	if err != nil {
		h.discard(c, objectKey)
		respondError(c, err)
		return
	}
	if previous != nil && *previous != objectKey {
		h.discard(c, *previous)
	}

	record, err := h.jobs.Get(ctx, ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("resume attached", slog.Uint64("job_id", uint64(id)), slog.String("object_key", objectKey))
	c.JSON(http.StatusCreated, record)
}

// ResumeLink 返回附件的临时预签名 URL。
func (h *AttachmentHandler) ResumeLink(c *gin.Context) {
	ownerID, id, ok := jobTarget(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	record, err := h.jobs.Get(ctx, ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	key := record.ResumeKey()
	if key == nil {
		respondError(c, errcode.New(errcode.NotFound, "No resume attached to this job application."))
		return
	}

	signedURL, err := h.objects.PresignGet(ctx, *key, resumeLinkTTL)
	if err != nil {
		respondError(c, errcode.Wrap(errcode.Internal, "failed to generate url", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signedURL, "expires_in": int(resumeLinkTTL.Seconds())})
}

func (h *AttachmentHandler) scan(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return err
	}
	defer reader.Close()
	return h.scanner.Scan(reader)
}

// discard removes an object that is no longer referenced. Failures only leave
// an orphan behind, so they are logged and otherwise ignored.
func (h *AttachmentHandler) discard(c *gin.Context, objectKey string) {
	if err := h.objects.Remove(c.Request.Context(), objectKey); err != nil {
		middleware.LoggerFromContext(c).Warn("delete resume object failed",
			slog.String("object_key", objectKey),
			slog.Any("error", err),
		)
	}
}

func fileError(msg string) *errcode.Error {
	return errcode.ValidationFailed(map[string]string{"file": msg})
}
