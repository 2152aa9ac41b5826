package documents

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Session
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Session),
		now:  time.Now,
	}
}

// Save stores or overwrites the session for its document id.
func (r *MemoryRepo) Save(ctx context.Context, session Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session.DocumentID == "" {
		return ErrInvalidInput
	}
	session = session.Normalize()
	session.UpdatedAt = r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[session.DocumentID] = session
	return nil
}

// Get returns a copy of the stored session.
func (r *MemoryRepo) Get(ctx context.Context, documentID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.data[documentID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session.Normalize(), nil
}

// AppendTranscript adds chat entries to an existing session.
func (r *MemoryRepo) AppendTranscript(ctx context.Context, documentID string, entries ...TranscriptEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	now := r.now().UTC()
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		session.Transcript = append(session.Transcript, e)
	}
	session.UpdatedAt = now
	r.data[documentID] = session.Normalize()
	return nil
}
