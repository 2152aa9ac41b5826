// Package devapi is a development implementation of the advisor backend:
// it accepts PDF uploads, parses them in the background and serves the
// resulting document sessions.
package devapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-builder/internal/documents"
	"resume-builder/internal/extract"
	"resume-builder/internal/shared/storage/object"
	"resume-builder/internal/shared/telemetry"
)

// Job statuses, as reported to pollers.
const (
	StatusUploaded = "uploaded"
	StatusParsing  = "parsing"
	StatusParsed   = "parsed"
	StatusFailed   = "failed"
)

const defaultConcurrency = 2

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedType = errors.New("only PDF uploads are supported")
	ErrClosed          = errors.New("service closed")
)

// Job is one upload and its parse progress.
type Job struct {
	ID          string
	OwnerID     string
	FileName    string
	StorageKey  string
	Status      string
	DocumentID  string
	ErrorDetail string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether the job will not change again.
func (j Job) Terminal() bool {
	return j.Status == StatusParsed || j.Status == StatusFailed
}

type jobRecord struct {
	job  Job
	done chan struct{}
}

// Service stores uploads and parses them with bounded concurrency.
type Service struct {
	Store object.ObjectStore
	Docs  documents.Repo

	now func() time.Time

	life   context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup

	mu        sync.RWMutex
	jobs      map[string]*jobRecord
	docOwners map[string]string
	closed    bool
}

// NewService constructs a Service running at most concurrency parses at once.
func NewService(store object.ObjectStore, docs documents.Repo, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	life, cancel := context.WithCancel(context.Background())
	return &Service{
		Store:     store,
		Docs:      docs,
		now:       time.Now,
		life:      life,
		cancel:    cancel,
		sem:       make(chan struct{}, concurrency),
		jobs:      make(map[string]*jobRecord),
		docOwners: make(map[string]string),
	}
}

// Submit stores the upload and schedules parsing. The returned job is in
// the uploaded status.
func (s *Service) Submit(ctx context.Context, ownerID, fileName string, r io.Reader) (Job, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return Job{}, ErrClosed
	}

	head, body, err := object.Sniff(r)
	if err != nil {
		return Job{}, fmt.Errorf("read upload: %w", err)
	}
	if mimeType := object.DetectType(head); mimeType != "application/pdf" {
		return Job{}, fmt.Errorf("%w: got %s", ErrUnsupportedType, mimeType)
	}

	key, size, _, err := s.Store.Save(ctx, ownerID, fileName, body)
	if err != nil {
		return Job{}, fmt.Errorf("store upload: %w", err)
	}

	now := s.now().UTC()
	rec := &jobRecord{
		job: Job{
			ID:         uuid.NewString(),
			OwnerID:    ownerID,
			FileName:   fileName,
			StorageKey: key,
			Status:     StatusUploaded,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Job{}, ErrClosed
	}
	s.jobs[rec.job.ID] = rec
	s.wg.Add(1)
	s.mu.Unlock()

	telemetry.Info("devapi.upload.accepted", map[string]any{
		"job_id":     rec.job.ID,
		"user_id":    ownerID,
		"size_bytes": size,
	})

	go func() {
		defer s.wg.Done()
		select {
		case s.sem <- struct{}{}:
		case <-s.life.Done():
			s.finish(rec.job.ID, StatusFailed, "", "processing cancelled")
			return
		}
		defer func() { <-s.sem }()
		s.process(rec.job.ID)
	}()

	return rec.job, nil
}

func (s *Service) process(jobID string) {
	job, ok := s.update(jobID, func(j *Job) { j.Status = StatusParsing })
	if !ok {
		return
	}
	fields := map[string]any{"job_id": job.ID, "user_id": job.OwnerID}
	start := s.now()

	text, err := extract.FromStore(s.life, s.Store, job.StorageKey)
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Error("devapi.parse.failed", fields)
		detail := "could not read text from the PDF"
		if errors.Is(err, extract.ErrNoText) {
			detail = "the PDF has no readable text; scanned documents are not supported"
		}
		s.finish(jobID, StatusFailed, "", detail)
		return
	}

	documentID := uuid.NewString()
	session := documents.Session{
		DocumentID: documentID,
		Form:       extract.ParseForm(text),
		Transcript: []documents.TranscriptEntry{{
			Role:      documents.RoleAssistant,
			Content:   fmt.Sprintf("I imported %s. Review the fields and tell me what to improve.", job.FileName),
			CreatedAt: s.now().UTC(),
		}},
	}
	if err := s.Docs.Save(s.life, session); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("devapi.parse.save_failed", fields)
		s.finish(jobID, StatusFailed, "", "could not save the parsed document")
		return
	}

	s.mu.Lock()
	s.docOwners[documentID] = job.OwnerID
	s.mu.Unlock()

	s.finish(jobID, StatusParsed, documentID, "")
	fields["document_id"] = documentID
	fields["duration_ms"] = s.now().Sub(start).Milliseconds()
	telemetry.Info("devapi.parse.completed", fields)
}

func (s *Service) finish(jobID, status, documentID, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok || rec.job.Terminal() {
		return
	}
	rec.job.Status = status
	rec.job.DocumentID = documentID
	rec.job.ErrorDetail = detail
	rec.job.UpdatedAt = s.now().UTC()
	close(rec.done)
}

func (s *Service) update(jobID string, fn func(*Job)) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok || rec.job.Terminal() {
		return Job{}, false
	}
	fn(&rec.job)
	rec.job.UpdatedAt = s.now().UTC()
	return rec.job, true
}

// Job returns the job if it belongs to ownerID.
func (s *Service) Job(ctx context.Context, ownerID, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[jobID]
	if !ok || rec.job.OwnerID != ownerID {
		return Job{}, ErrNotFound
	}
	return rec.job, nil
}

// Session returns the parsed document session if it belongs to ownerID.
func (s *Service) Session(ctx context.Context, ownerID, documentID string) (documents.Session, error) {
	s.mu.RLock()
	owner, ok := s.docOwners[documentID]
	s.mu.RUnlock()
	if !ok || owner != ownerID {
		return documents.Session{}, ErrNotFound
	}
	session, err := s.Docs.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return documents.Session{}, ErrNotFound
		}
		return documents.Session{}, err
	}
	return session, nil
}

// Wait blocks until the job is terminal or ctx ends.
func (s *Service) Wait(ctx context.Context, jobID string) (Job, error) {
	s.mu.RLock()
	rec, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return Job{}, ErrNotFound
	}
	select {
	case <-rec.done:
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rec.job, nil
}

// Close stops accepting uploads and waits for in-flight parses, up to ctx.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
