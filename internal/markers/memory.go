package markers

import (
	"context"
	"strings"
	"sync"
	"time"

	"resume-builder/internal/uploadsession"
)

type markerRecord struct {
	job       uploadsession.JobID
	updatedAt time.Time
}

// MemoryStore keeps markers in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	markers map[string]markerRecord
	last    map[string]uploadsession.DocumentID
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markers: map[string]markerRecord{},
		last:    map[string]uploadsession.DocumentID{},
		now:     time.Now,
	}
}

func (s *MemoryStore) LoadMarker(ctx context.Context, sessionID string) (uploadsession.JobID, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", false, ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.markers[sessionID]
	return rec.job, ok, nil
}

func (s *MemoryStore) SaveMarker(ctx context.Context, sessionID string, job uploadsession.JobID) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[sessionID] = markerRecord{job: job, updatedAt: s.now()}
	return nil
}

func (s *MemoryStore) ClearMarker(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, sessionID)
	return nil
}

func (s *MemoryStore) LastDocument(ctx context.Context, ownerID string) (uploadsession.DocumentID, bool, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", false, ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.last[ownerID]
	return doc, ok, nil
}

func (s *MemoryStore) SaveLastDocument(ctx context.Context, ownerID string, document uploadsession.DocumentID) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[ownerID] = document
	return nil
}

func (s *MemoryStore) PurgeMarkers(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.markers {
		if rec.updatedAt.Before(olderThan) {
			delete(s.markers, id)
			n++
		}
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
