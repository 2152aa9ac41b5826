// Package bridge exposes one upload session controller per browser session
// over HTTP, so a UI can drive uploads and read state without owning the
// polling loop itself.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"resume-builder/internal/markers"
	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/uploadsession"
)

var (
	// ErrSessionOwner is returned when a session id is reused by another identity.
	ErrSessionOwner = errors.New("session belongs to another identity")
	// ErrMissingSession is returned for a blank session id.
	ErrMissingSession = errors.New("session id is required")
)

// Identity is the caller a session is created for.
type Identity struct {
	OwnerID string
	Token   string
	GuestID string
}

// ClientFactory builds the advisor API client used by one identity.
type ClientFactory func(id Identity) (uploadsession.API, error)

// Options configures a Registry.
type Options struct {
	Markers markers.Store
	Clients ClientFactory
	// IdleTTL evicts sessions not touched for this long.
	IdleTTL           time.Duration
	ControllerOptions []uploadsession.Option
	Now               func() time.Time
}

type entry struct {
	ctrl     *uploadsession.Controller
	ownerID  string
	lastSeen time.Time
}

// Registry owns the live controllers, keyed by session id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	opts     Options
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Markers == nil {
		opts.Markers = markers.NewMemoryStore()
	}
	return &Registry{sessions: map[string]*entry{}, opts: opts}
}

// Get returns the controller for sessionID, creating it on first use. A new
// controller resumes polling for any job its marker records.
func (r *Registry) Get(ctx context.Context, sessionID string, id Identity) (*uploadsession.Controller, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	if ctrl, ok, err := r.lookup(sessionID, id.OwnerID); ok || err != nil {
		return ctrl, err
	}

	// The controller is built without r.mu held since resuming reads its marker.
	api, err := r.opts.Clients(id)
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}
	binding := markers.Bind(r.opts.Markers, markerKey(id.OwnerID, sessionID), id.OwnerID)
	opts := append([]uploadsession.Option{}, r.opts.ControllerOptions...)
	opts = append(opts,
		uploadsession.WithLastDocumentStore(binding),
		uploadsession.WithLogFields(map[string]any{"session_id": sessionID, "user_id": id.OwnerID}),
	)
	ctrl := uploadsession.New(ctx, api, binding, opts...)

	r.mu.Lock()
	if e, ok := r.sessions[sessionID]; ok {
		e.lastSeen = r.opts.Now()
		winner, owner := e.ctrl, e.ownerID
		r.mu.Unlock()
		ctrl.Teardown()
		if owner != id.OwnerID {
			return nil, ErrSessionOwner
		}
		return winner, nil
	}
	r.sessions[sessionID] = &entry{ctrl: ctrl, ownerID: id.OwnerID, lastSeen: r.opts.Now()}
	r.mu.Unlock()

	metrics.AddActiveSessions(1)
	telemetry.Info("bridge.session.created", map[string]any{
		"session_id": sessionID,
		"user_id":    id.OwnerID,
		"state":      ctrl.State().Phase(),
	})
	return ctrl, nil
}

// lookup returns the live controller of sessionID and touches it.
func (r *Registry) lookup(sessionID, ownerID string) (*uploadsession.Controller, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return nil, false, nil
	}
	if e.ownerID != ownerID {
		return nil, false, ErrSessionOwner
	}
	e.lastSeen = r.opts.Now()
	return e.ctrl, true, nil
}

// Close tears down the controller of sessionID. Its marker is kept.
func (r *Registry) Close(sessionID string, ownerID string) (bool, error) {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if ok && e.ownerID != ownerID {
		r.mu.Unlock()
		return false, ErrSessionOwner
	}
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	e.ctrl.Teardown()
	metrics.AddActiveSessions(-1)
	telemetry.Info("bridge.session.closed", map[string]any{"session_id": sessionID})
	return true, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep tears down sessions idle longer than the TTL and purges markers
// older than twice the TTL. It returns the number of evicted sessions.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.opts.Now()
	cutoff := now.Add(-r.opts.IdleTTL)

	r.mu.Lock()
	var idle []string
	var ctrls []*uploadsession.Controller
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, id)
			ctrls = append(ctrls, e.ctrl)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for i, ctrl := range ctrls {
		ctrl.Teardown()
		metrics.AddActiveSessions(-1)
		telemetry.Info("bridge.session.evicted", map[string]any{"session_id": idle[i]})
	}

	purged, err := r.opts.Markers.PurgeMarkers(ctx, now.Add(-2*r.opts.IdleTTL))
	if err != nil {
		telemetry.Error("bridge.markers.purge_failed", map[string]any{"error": err.Error()})
	} else if purged > 0 {
		telemetry.Info("bridge.markers.purged", map[string]any{"count": purged})
	}
	return len(ctrls)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Shutdown tears down every session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*entry{}
	r.mu.Unlock()
	for _, e := range sessions {
		e.ctrl.Teardown()
		metrics.AddActiveSessions(-1)
	}
}

// markerKey scopes a browser session id to its owner.
func markerKey(ownerID, sessionID string) string {
	return ownerID + "|" + sessionID
}
