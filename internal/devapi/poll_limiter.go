package devapi

import (
	"sync"
	"time"
)

const pollLimitWindow = 1 * time.Second

// pollLimiter allows one status read per owner and job within window.
type pollLimiter struct {
	mu      sync.Mutex
	lastHit map[string]time.Time
	now     func() time.Time
	window  time.Duration
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{
		lastHit: make(map[string]time.Time),
		now:     now,
		window:  window,
	}
}

func (l *pollLimiter) Allow(ownerID, jobID string) bool {
	if l == nil {
		return true
	}
	key := ownerID + "|" + jobID
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastHit[key]; ok && now.Sub(last) < l.window {
		return false
	}
	l.lastHit[key] = now
	return true
}

// Forget drops the entry for a job that reached a terminal status.
func (l *pollLimiter) Forget(ownerID, jobID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.lastHit, ownerID+"|"+jobID)
	l.mu.Unlock()
}

func (l *pollLimiter) RetryAfterSeconds() int {
	window := pollLimitWindow
	if l != nil {
		window = l.window
	}
	secs := int((window + time.Second - 1) / time.Second)
	return max(1, secs)
}
