// Package markers persists the pending upload job of each browser session and
// the last document each owner worked on.
package markers

import (
	"context"
	"errors"
	"time"

	"resume-builder/internal/uploadsession"
)

// ErrInvalidKey is returned for blank session or owner ids.
var ErrInvalidKey = errors.New("invalid marker key")

// Store holds at most one marker per session and one last document per owner.
type Store interface {
	LoadMarker(ctx context.Context, sessionID string) (uploadsession.JobID, bool, error)
	SaveMarker(ctx context.Context, sessionID string, job uploadsession.JobID) error
	ClearMarker(ctx context.Context, sessionID string) error
	LastDocument(ctx context.Context, ownerID string) (uploadsession.DocumentID, bool, error)
	SaveLastDocument(ctx context.Context, ownerID string, document uploadsession.DocumentID) error
	// PurgeMarkers drops markers not written since olderThan and returns how many.
	PurgeMarkers(ctx context.Context, olderThan time.Time) (int, error)
}

// Binding narrows a Store to one session and owner.
type Binding struct {
	store     Store
	sessionID string
	ownerID   string
}

// Bind returns the controller-facing view of store for sessionID and ownerID.
// An empty ownerID disables the last document key.
func Bind(store Store, sessionID, ownerID string) *Binding {
	return &Binding{store: store, sessionID: sessionID, ownerID: ownerID}
}

func (b *Binding) LoadMarker(ctx context.Context) (uploadsession.JobID, bool, error) {
	return b.store.LoadMarker(ctx, b.sessionID)
}

func (b *Binding) SaveMarker(ctx context.Context, job uploadsession.JobID) error {
	return b.store.SaveMarker(ctx, b.sessionID, job)
}

func (b *Binding) ClearMarker(ctx context.Context) error {
	return b.store.ClearMarker(ctx, b.sessionID)
}

func (b *Binding) LastDocument(ctx context.Context) (uploadsession.DocumentID, bool, error) {
	if b.ownerID == "" {
		return "", false, nil
	}
	return b.store.LastDocument(ctx, b.ownerID)
}

func (b *Binding) SaveLastDocument(ctx context.Context, document uploadsession.DocumentID) error {
	if b.ownerID == "" {
		return nil
	}
	return b.store.SaveLastDocument(ctx, b.ownerID, document)
}

var (
	_ uploadsession.MarkerStore       = (*Binding)(nil)
	_ uploadsession.LastDocumentStore = (*Binding)(nil)
)
