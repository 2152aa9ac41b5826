package uploadsession

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"resume-builder/internal/documents"
	"resume-builder/internal/shared/telemetry"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func pdfFile(name string) File {
	return File{Name: name, ContentType: "application/pdf", Data: pdfBytes}
}

type statusReply struct {
	status UploadStatus
	err    error
}

// fakeAPI serves scripted replies. The last status reply repeats.
type fakeAPI struct {
	mu sync.Mutex

	uploadJob JobID
	uploadErr error
	uploads   []string
	// uploadGate, when set, holds each upload until a value is received or
	// the request context ends. uploadEntered is signalled as each starts.
	uploadGate    chan struct{}
	uploadEntered chan struct{}

	statuses    []statusReply
	statusJobs  []JobID
	statusCalls int
	// gate, when set, holds every status request until a value is received.
	gate chan struct{}
	// entered, when set, is signalled as each status request starts.
	entered chan struct{}

	sessions     map[DocumentID]documents.Session
	sessionErr   error
	sessionCalls []DocumentID
	// sessionGate and sessionEntered work like the upload pair. The context
	// error seen by each held session request is kept in sessionCtxErrs.
	sessionGate    chan struct{}
	sessionEntered chan struct{}
	sessionCtxErrs []error
}

func (f *fakeAPI) UploadDocument(ctx context.Context, file File) (JobID, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, file.Name)
	gate, entered := f.uploadGate, f.uploadEntered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadJob, f.uploadErr
}

func (f *fakeAPI) GetUploadStatus(ctx context.Context, job JobID) (UploadStatus, error) {
	f.mu.Lock()
	f.statusCalls++
	f.statusJobs = append(f.statusJobs, job)
	idx := f.statusCalls - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	var reply statusReply
	if idx >= 0 {
		reply = f.statuses[idx]
	} else {
		reply = statusReply{status: UploadStatus{Job: job, Status: StatusParsing}}
	}
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return reply.status, reply.err
}

func (f *fakeAPI) GetDocumentSession(ctx context.Context, document DocumentID) (documents.Session, error) {
	f.mu.Lock()
	f.sessionCalls = append(f.sessionCalls, document)
	gate, entered := f.sessionGate, f.sessionEntered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		var ctxErr error
		select {
		case <-gate:
		case <-ctx.Done():
			ctxErr = ctx.Err()
		}
		f.mu.Lock()
		f.sessionCtxErrs = append(f.sessionCtxErrs, ctxErr)
		f.mu.Unlock()
		if ctxErr != nil {
			return documents.Session{}, ctxErr
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return documents.Session{}, f.sessionErr
	}
	session, ok := f.sessions[document]
	if !ok {
		return documents.Session{}, errors.New("document not found")
	}
	return session, nil
}

func (f *fakeAPI) counts() (uploads, statuses, sessions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads), f.statusCalls, len(f.sessionCalls)
}

type fakeMarkers struct {
	mu      sync.Mutex
	job     JobID
	saves   int
	clears  int
	loadErr error
	saveErr error
}

func (m *fakeMarkers) LoadMarker(ctx context.Context) (JobID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return "", false, m.loadErr
	}
	return m.job, m.job != "", nil
}

func (m *fakeMarkers) SaveMarker(ctx context.Context, job JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.job = job
	return nil
}

func (m *fakeMarkers) ClearMarker(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.job = ""
	return nil
}

func (m *fakeMarkers) current() JobID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job
}

type fakeLast struct {
	mu       sync.Mutex
	document DocumentID
}

func (l *fakeLast) LastDocument(ctx context.Context) (DocumentID, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.document, l.document != "", nil
}

func (l *fakeLast) SaveLastDocument(ctx context.Context, document DocumentID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.document = document
	return nil
}

// manualTicker delivers ticks only when the test sends them.
type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) option() Option {
	return WithTicker(func(time.Duration) (<-chan time.Time, func()) { return m.ch, func() {} })
}

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("poll loop did not accept tick")
	}
}

// afterEachPoll signals once per finished status request.
func afterEachPoll(ch chan<- struct{}) Option {
	return func(o *options) {
		o.afterPoll = func() { ch <- struct{}{} }
	}
}

func waitEntered(t *testing.T, api *fakeAPI) {
	t.Helper()
	select {
	case <-api.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("status request did not start")
	}
}

// waitSignal fails the test unless ch fires within two seconds.
func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not happen", what)
	}
}

func waitPolled(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("status request did not finish")
	}
}

type recorder struct {
	mu     sync.Mutex
	phases []Phase
}

func (r *recorder) option() Option {
	return WithOnChange(func(s State) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.phases = append(r.phases, s.Phase())
	})
}

func (r *recorder) snapshot() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

func settle(t *testing.T, c *Controller) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := c.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v (state %s)", err, st.Phase())
	}
	return st
}

func quietLogs(t *testing.T) {
	t.Helper()
	t.Cleanup(telemetry.SetOutput(io.Discard))
}
