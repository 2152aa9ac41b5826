package uploadsession

import (
	"context"
	"strings"
	"sync"

	"resume-builder/internal/documents"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/telemetry"
)

// Controller drives one document at a time through upload, asynchronous
// parse and hydration, and survives restarts through the session marker.
//
// Every job, fetch or upload runs under a generation number. Responses are
// applied only while their generation is current, so Reset, Teardown and a
// newer subject silently discard late results.
type Controller struct {
	api     API
	markers MarkerStore
	opts    options

	life       context.Context
	lifeCancel context.CancelFunc

	// notifyMu serializes listener delivery. It is never acquired while mu is held.
	notifyMu sync.Mutex

	mu       sync.Mutex
	state    State
	changed  chan struct{}
	pending  []State
	gen      uint64
	subject  context.CancelFunc
	closed   bool
	inflight bool
	failures int
}

// New builds a controller and resumes polling for any job left in the marker store.
func New(ctx context.Context, api API, markers MarkerStore, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	life, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:        api,
		markers:    markers,
		opts:       o,
		life:       life,
		lifeCancel: cancel,
		state:      Idle{},
		changed:    make(chan struct{}),
	}
	c.ResumeIfPending(ctx)
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until no upload, poll or fetch is in flight.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		st, ch, closed := c.state, c.changed, c.closed
		c.mu.Unlock()
		if !busy(st) {
			return st, nil
		}
		if closed {
			return st, ErrClosed
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ch:
		}
	}
}

// ResumeIfPending re-enters polling for a persisted job without uploading again.
// It reports whether polling was resumed.
func (c *Controller) ResumeIfPending(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || busy(c.state) {
		c.mu.Unlock()
		return false
	}
	job, ok, err := c.markers.LoadMarker(ctx)
	if err != nil {
		c.mu.Unlock()
		telemetry.Error("uploadsession.marker.load_failed", c.fields(map[string]any{"error": err}))
		return false
	}
	if !ok || job == "" {
		c.mu.Unlock()
		return false
	}
	gen, subj := c.beginSubjectLocked()
	telemetry.Info("uploadsession.resume", c.fields(map[string]any{"job_id": job}))
	c.commitAndUnlock(c.pollingLocked(subj, gen, job))
	return true
}

// StartUpload validates file synchronously, uploads it and starts polling the
// returned job. Validation failures never reach the network and leave the
// state unchanged.
func (c *Controller) StartUpload(ctx context.Context, file File) error {
	if err := validateFile(file, c.opts.maxUploadBytes); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if busy(c.state) {
		c.mu.Unlock()
		return ErrBusy
	}
	gen, subj := c.beginSubjectLocked()
	c.commitAndUnlock(Uploading{FileName: file.Name})
	metrics.IncUploadStarted()

	reqCtx, cancel := joinContext(subj, ctx)
	job, err := c.api.UploadDocument(reqCtx, file)
	cancel()
	if err == nil && job == "" {
		err = errMissingJobID
	}

	c.mu.Lock()
	if stale := c.staleLocked(gen); stale != nil {
		c.mu.Unlock()
		return stale
	}
	if err != nil {
		metrics.IncUploadFailed()
		failure := &Error{Kind: KindUpload, Err: err}
		c.endSubjectLocked()
		c.commitAndUnlock(Failed{Err: failure})
		return failure
	}
	if err := c.markers.SaveMarker(context.WithoutCancel(ctx), job); err != nil {
		telemetry.Error("uploadsession.marker.save_failed", c.fields(map[string]any{"job_id": job, "error": err}))
	}
	c.commitAndUnlock(c.pollingLocked(subj, gen, job))
	return nil
}

// HydrateExisting loads the session for a document the caller already has,
// skipping upload and polling. A job being polled is abandoned and its marker cleared.
func (c *Controller) HydrateExisting(ctx context.Context, document DocumentID) (documents.Session, error) {
	if strings.TrimSpace(string(document)) == "" {
		return documents.Session{}, validationError("document id is required")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return documents.Session{}, ErrClosed
	}
	if _, polling := c.state.(Polling); polling {
		c.clearMarkerLocked(ctx)
	}
	gen, subj := c.beginSubjectLocked()
	c.commitAndUnlock(Fetching{Document: document})

	reqCtx, cancel := joinContext(subj, ctx)
	defer cancel()
	return c.fetchSession(reqCtx, gen, document)
}

// ResumeLastDocument hydrates the last document recorded by a previous
// session. It reports false when none is recorded.
func (c *Controller) ResumeLastDocument(ctx context.Context) (documents.Session, bool, error) {
	if c.opts.last == nil {
		return documents.Session{}, false, nil
	}
	document, ok, err := c.opts.last.LastDocument(ctx)
	if err != nil {
		return documents.Session{}, false, err
	}
	if !ok || document == "" {
		return documents.Session{}, false, nil
	}
	session, err := c.HydrateExisting(ctx, document)
	return session, true, err
}

// Reset returns to Idle from any state, clearing the marker. A job on the
// server is not cancelled; its responses are ignored from now on.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.abandonLocked()
	err := c.clearMarkerLocked(ctx)
	c.commitAndUnlock(Idle{})
	return err
}

// Teardown stops polling and aborts in-flight requests. The marker is kept so
// a later controller can resume the job.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.abandonLocked()
	c.lifeCancel()
	close(c.changed)
	c.changed = make(chan struct{})
	telemetry.Info("uploadsession.teardown", c.fields(map[string]any{"state": c.state.Phase()}))
}

func (c *Controller) fetchSession(ctx context.Context, gen uint64, document DocumentID) (documents.Session, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.requestTimeout)
	session, err := c.api.GetDocumentSession(reqCtx, document)
	cancel()
	if err == nil && session.DocumentID != "" && DocumentID(session.DocumentID) != document {
		err = mismatchError("session", session.DocumentID, string(document))
	}

	c.mu.Lock()
	if stale := c.staleLocked(gen); stale != nil {
		c.mu.Unlock()
		telemetry.Info("uploadsession.session.discarded", c.fields(map[string]any{"document_id": document}))
		return documents.Session{}, stale
	}
	c.endSubjectLocked()
	if err != nil {
		failure := &Error{Kind: KindSessionFetch, Document: document, Err: err}
		c.commitAndUnlock(Failed{Err: failure})
		return documents.Session{}, failure
	}

	session = session.Normalize()
	session.DocumentID = string(document)
	metrics.IncHydration()
	c.rememberDocumentLocked(document)
	c.commitAndUnlock(Hydrated{Document: document, Session: session})
	return session, nil
}

func (c *Controller) rememberDocumentLocked(document DocumentID) {
	if c.opts.last == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.requestTimeout)
	defer cancel()
	if err := c.opts.last.SaveLastDocument(ctx, document); err != nil {
		telemetry.Error("uploadsession.last_document.save_failed", c.fields(map[string]any{"document_id": document, "error": err}))
	}
}

// beginSubjectLocked abandons the current subject and opens a new generation.
func (c *Controller) beginSubjectLocked() (uint64, context.Context) {
	c.abandonLocked()
	ctx, cancel := context.WithCancel(c.life)
	c.subject = cancel
	return c.gen, ctx
}

func (c *Controller) abandonLocked() {
	c.endSubjectLocked()
	c.gen++
	c.inflight = false
	c.failures = 0
}

func (c *Controller) endSubjectLocked() {
	if c.subject != nil {
		c.subject()
		c.subject = nil
	}
}

func (c *Controller) staleLocked(gen uint64) error {
	if c.closed {
		return ErrClosed
	}
	if gen != c.gen {
		return ErrSuperseded
	}
	return nil
}

func (c *Controller) clearMarkerLocked(ctx context.Context) error {
	if err := c.markers.ClearMarker(context.WithoutCancel(ctx)); err != nil {
		telemetry.Error("uploadsession.marker.clear_failed", c.fields(map[string]any{"error": err}))
		return err
	}
	return nil
}

// commitAndUnlock stores next, releases mu and then notifies the listener.
// Callers must hold mu and must not unlock it themselves.
func (c *Controller) commitAndUnlock(next State) {
	prev := c.state
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})
	c.logTransition(prev, next)

	if c.opts.onChange == nil {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, next)
	c.mu.Unlock()
	c.deliver()
}

// deliver hands queued transitions to the listener in commit order. When it
// returns, every transition committed before the call has been delivered.
func (c *Controller) deliver() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return
		}
		next := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
		c.mu.Unlock()
		c.opts.onChange(next)
	}
}

func (c *Controller) logTransition(prev, next State) {
	fields := map[string]any{
		"status_transition": string(prev.Phase()) + "->" + string(next.Phase()),
	}
	switch s := next.(type) {
	case Polling:
		fields["job_id"] = s.Job
	case Fetching:
		fields["document_id"] = s.Document
	case Hydrated:
		fields["document_id"] = s.Document
		fields["transcript_len"] = len(s.Session.Transcript)
	case Failed:
		fields["error_kind"] = s.Err.Kind
		fields["error"] = s.Err.Error()
		telemetry.Error("uploadsession.transition", c.fields(fields))
		return
	}
	telemetry.Info("uploadsession.transition", c.fields(fields))
}

func (c *Controller) fields(extra map[string]any) map[string]any {
	return telemetry.Merge(c.opts.logFields, extra)
}

// joinContext returns a context cancelled when either parent is done.
// Values come from base only.
func joinContext(base, extra context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(base)
	stop := context.AfterFunc(extra, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
