package bridge

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/uploadsession"
)

// SessionHeader carries the browser session id.
const SessionHeader = "X-Session-Id"

// Handler serves the upload session routes.
type Handler struct {
	reg            *Registry
	maxUploadBytes int64
}

// NewHandler builds a handler over reg.
func NewHandler(reg *Registry, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{reg: reg, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches the routes under /upload-session.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/upload-session")
	g.GET("", h.state)
	g.POST("/upload", h.upload)
	g.POST("/reset", h.reset)
	g.POST("/documents/:id/hydrate", h.hydrate)
	g.POST("/resume-last", h.resumeLast)
	g.DELETE("", h.close)
}

func (h *Handler) controller(c *gin.Context) (*uploadsession.Controller, bool) {
	sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_session", "X-Session-Id header is required", nil)
		return nil, false
	}
	c.Set("sessionId", sessionID)

	ctrl, err := h.reg.Get(c.Request.Context(), sessionID, identityFrom(c))
	switch {
	case err == nil:
		return ctrl, true
	case errors.Is(err, ErrSessionOwner):
		respond.Error(c, http.StatusForbidden, "forbidden", "session belongs to another identity", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "could not open upload session", nil)
	}
	return nil, false
}

func (h *Handler) state(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	writeState(c, http.StatusOK, ctrl.State())
}

func (h *Handler) upload(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file", "multipart field \"file\" is required", nil)
		return
	}
	if fh.Size > h.maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", gin.H{"maxBytes": h.maxUploadBytes})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file", "could not read upload", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file", "could not read upload", nil)
		return
	}

	err = ctrl.StartUpload(c.Request.Context(), uploadsession.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(c, ctrl, err)
		return
	}
	writeState(c, http.StatusAccepted, ctrl.State())
}

func (h *Handler) reset(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	// A marker clear failure is logged by the controller; the state is Idle regardless.
	if err := ctrl.Reset(c.Request.Context()); errors.Is(err, uploadsession.ErrClosed) {
		writeError(c, ctrl, err)
		return
	}
	writeState(c, http.StatusOK, ctrl.State())
}

func (h *Handler) hydrate(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	documentID := strings.TrimSpace(c.Param("id"))
	c.Set("documentId", documentID)
	if _, err := ctrl.HydrateExisting(c.Request.Context(), uploadsession.DocumentID(documentID)); err != nil {
		writeError(c, ctrl, err)
		return
	}
	writeState(c, http.StatusOK, ctrl.State())
}

func (h *Handler) resumeLast(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	_, found, err := ctrl.ResumeLastDocument(c.Request.Context())
	if err != nil {
		writeError(c, ctrl, err)
		return
	}
	if !found {
		respond.Error(c, http.StatusNotFound, "not_found", "no previous document", nil)
		return
	}
	writeState(c, http.StatusOK, ctrl.State())
}

func (h *Handler) close(c *gin.Context) {
	sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_session", "X-Session-Id header is required", nil)
		return
	}
	c.Set("sessionId", sessionID)
	if _, err := h.reg.Close(sessionID, middleware.UserIDFromContext(c)); err != nil {
		respond.Error(c, http.StatusForbidden, "forbidden", "session belongs to another identity", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func identityFrom(c *gin.Context) Identity {
	return Identity{
		OwnerID: middleware.UserIDFromContext(c),
		Token:   middleware.BearerTokenFromContext(c),
		GuestID: middleware.GuestIDFromContext(c),
	}
}

func writeState(c *gin.Context, status int, s uploadsession.State) {
	view := RenderState(s)
	if view.JobID != "" {
		c.Set("jobId", view.JobID)
	}
	if view.DocumentID != "" {
		c.Set("documentId", view.DocumentID)
	}
	c.Set("statusTransition", view.State)
	respond.JSON(c, status, view)
}

func writeError(c *gin.Context, ctrl *uploadsession.Controller, err error) {
	view := RenderState(ctrl.State())
	switch {
	case errors.Is(err, uploadsession.ErrBusy):
		respond.Error(c, http.StatusConflict, "busy", "an upload is already in progress", view)
	case errors.Is(err, uploadsession.ErrClosed):
		respond.Error(c, http.StatusGone, "closed", "upload session was closed", nil)
	case errors.Is(err, uploadsession.ErrSuperseded):
		respond.Error(c, http.StatusConflict, "superseded", "upload session was reset", view)
	default:
		switch uploadsession.KindOf(err) {
		case uploadsession.KindValidation:
			respond.Error(c, http.StatusBadRequest, "invalid_file", err.Error(), nil)
		case uploadsession.KindUpload:
			respond.Error(c, http.StatusBadGateway, "upload_failed", err.Error(), view)
		case uploadsession.KindSessionFetch:
			respond.Error(c, http.StatusBadGateway, "session_fetch_failed", err.Error(), view)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal", "unexpected upload session error", nil)
		}
	}
}
