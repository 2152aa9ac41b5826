package devapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/advisorapi"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
)

const defaultMaxUploadBytes = 10 << 20

// Handler serves the advisor endpoints on top of a Service.
type Handler struct {
	svc            *Service
	limiter        *pollLimiter
	maxUploadBytes int64
}

// NewHandler constructs a Handler. Status reads are limited to one per
// pollWindow for each job.
func NewHandler(svc *Service, pollWindow time.Duration, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		svc:            svc,
		limiter:        newPollLimiter(pollWindow, nil),
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes attaches the advisor routes. Paths are absolute.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST(advisorapi.UploadsPath, h.upload)
	r.GET(advisorapi.UploadStatusPath, h.status)
	r.GET(advisorapi.DocumentSessionPath, h.session)
}

func (h *Handler) upload(c *gin.Context) {
	// Multipart overhead is small next to the file limit.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+64<<10)

	fh, err := c.FormFile(advisorapi.FileField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fh.Size > h.maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", gin.H{
			"maxBytes": h.maxUploadBytes,
		})
		return
	}

	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read file", nil)
		return
	}
	defer f.Close()

	job, err := h.svc.Submit(c.Request.Context(), middleware.UserIDFromContext(c), fh.Filename, f)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", ErrUnsupportedType.Error(), nil)
		case errors.Is(err, ErrClosed):
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", "server is shutting down", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		}
		return
	}

	c.Set("jobId", job.ID)
	respond.JSON(c, http.StatusAccepted, advisorapi.UploadAccepted{JobID: job.ID})
}

func (h *Handler) status(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	jobID := c.Param("jobId")
	c.Set("jobId", jobID)

	if !h.limiter.Allow(ownerID, jobID) {
		retryAfter := h.limiter.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "status polled too often", gin.H{
			"retryAfterMs": retryAfter * 1000,
		})
		return
	}

	job, err := h.svc.Job(c.Request.Context(), ownerID, jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "upload job not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch upload status", nil)
		return
	}
	if job.Terminal() {
		h.limiter.Forget(ownerID, jobID)
	}

	respond.OK(c, advisorapi.UploadStatusBody{
		JobID:            job.ID,
		Status:           job.Status,
		ResultDocumentID: job.DocumentID,
		ErrorDetail:      job.ErrorDetail,
	})
}

func (h *Handler) session(c *gin.Context) {
	documentID := c.Param("documentId")
	c.Set("documentId", documentID)

	session, err := h.svc.Session(c.Request.Context(), middleware.UserIDFromContext(c), documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document session", nil)
		return
	}
	respond.OK(c, session)
}
