package uploadsession

import (
	"context"

	"resume-builder/internal/documents"
)

// API is the remote backend the controller drives.
type API interface {
	UploadDocument(ctx context.Context, file File) (JobID, error)
	GetUploadStatus(ctx context.Context, job JobID) (UploadStatus, error)
	GetDocumentSession(ctx context.Context, document DocumentID) (documents.Session, error)
}

// MarkerStore persists the pending job for one session. It is the only
// storage the controller touches for in-flight work.
type MarkerStore interface {
	LoadMarker(ctx context.Context) (JobID, bool, error)
	SaveMarker(ctx context.Context, job JobID) error
	ClearMarker(ctx context.Context) error
}

// LastDocumentStore remembers the last hydrated document across sessions.
type LastDocumentStore interface {
	LastDocument(ctx context.Context) (DocumentID, bool, error)
	SaveLastDocument(ctx context.Context, document DocumentID) error
}
