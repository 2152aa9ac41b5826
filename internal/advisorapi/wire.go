package advisorapi

import (
	"github.com/go-playground/validator/v10"

	"resume-builder/internal/documents"
)

// Route templates served by the advisor backend.
const (
	UploadsPath         = "/api/v1/resumes/uploads"
	UploadStatusPath    = "/api/v1/resumes/uploads/:jobId"
	DocumentSessionPath = "/api/v1/resumes/:documentId/session"

	// FileField is the multipart field carrying the uploaded document.
	FileField = "file"
	// GuestHeader identifies an anonymous caller.
	GuestHeader = "X-Guest-Id"
)

// UploadAccepted is the 202 body of an upload.
type UploadAccepted struct {
	JobID string `json:"jobId" validate:"required"`
}

// UploadStatusBody is the body of a status poll.
type UploadStatusBody struct {
	JobID            string `json:"jobId" validate:"required"`
	Status           string `json:"status" validate:"required,oneof=uploaded parsing parsed failed"`
	ResultDocumentID string `json:"resultDocumentId,omitempty" validate:"required_if=Status parsed"`
	ErrorDetail      string `json:"errorDetail,omitempty"`
}

// SessionBody is the body of a document session fetch.
type SessionBody = documents.Session

// ErrorEnvelope is the error shape shared by every endpoint.
type ErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details,omitempty"`
	} `json:"error"`
}

var validate = validator.New()
