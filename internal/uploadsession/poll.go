package uploadsession

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-builder/internal/shared/metrics"
	"resume-builder/internal/shared/telemetry"
)

const genericParseFailure = "the document could not be parsed"

// pollingLocked builds the Polling state for job and starts its poll loop.
// The loop waits on mu, so it observes the state once the caller commits it.
func (c *Controller) pollingLocked(subj context.Context, gen uint64, job JobID) State {
	st := Polling{Job: job, Since: c.opts.now()}
	go c.pollLoop(subj, gen, st)
	return st
}

func (c *Controller) pollLoop(ctx context.Context, gen uint64, st Polling) {
	ticks, stop := c.opts.ticker(c.opts.pollInterval)
	defer stop()

	if !c.tick(ctx, gen, st) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if !c.tick(ctx, gen, st) {
				return
			}
		}
	}
}

// tick issues one status request unless one is outstanding. It reports false
// once the loop's subject is no longer being polled.
func (c *Controller) tick(ctx context.Context, gen uint64, st Polling) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		return false
	}
	if cur, ok := c.state.(Polling); !ok || cur.Job != st.Job {
		return false
	}
	if c.inflight {
		metrics.IncPollSkipped()
		return true
	}
	c.inflight = true
	metrics.IncPollRequest()
	go c.pollOnce(ctx, gen, st)
	return true
}

func (c *Controller) pollOnce(ctx context.Context, gen uint64, st Polling) {
	if c.opts.afterPoll != nil {
		defer c.opts.afterPoll()
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.requestTimeout)
	status, err := c.api.GetUploadStatus(reqCtx, st.Job)
	cancel()
	if err == nil {
		err = checkStatus(st.Job, status)
	}

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		telemetry.Info("uploadsession.poll.discarded", c.fields(map[string]any{"job_id": st.Job}))
		return
	}
	c.inflight = false

	if err != nil {
		c.failures++
		metrics.IncPollFailure()
		if c.failures < c.opts.maxFailures {
			failures := c.failures
			c.mu.Unlock()
			telemetry.Warn("uploadsession.poll.failed", c.fields(map[string]any{
				"job_id":   st.Job,
				"failures": failures,
				"error":    err,
			}))
			return
		}
		failure := &Error{
			Kind:   KindPollingExhausted,
			Job:    st.Job,
			Detail: fmt.Sprintf("%d consecutive status checks failed", c.failures),
			Err:    err,
		}
		c.finishJobLocked(st)
		c.endSubjectLocked()
		c.commitAndUnlock(Failed{Err: failure})
		return
	}
	c.failures = 0

	switch status.Status {
	case StatusParsed:
		c.finishJobLocked(st)
		document := status.ResultDocument
		c.commitAndUnlock(Fetching{Document: document})
		go c.fetchSession(ctx, gen, document)
	case StatusFailed:
		metrics.IncParseFailed()
		detail := strings.TrimSpace(status.ErrorDetail)
		if detail == "" {
			detail = genericParseFailure
		}
		failure := &Error{Kind: KindParseFailed, Job: st.Job, Detail: detail}
		c.finishJobLocked(st)
		c.endSubjectLocked()
		c.commitAndUnlock(Failed{Err: failure})
	default:
		c.mu.Unlock()
	}
}

// finishJobLocked clears the marker of a job that reached a terminal outcome.
func (c *Controller) finishJobLocked(st Polling) {
	_ = c.clearMarkerLocked(c.life)
	metrics.ObserveParseWaitMs(float64(c.opts.now().Sub(st.Since).Milliseconds()))
}

// checkStatus rejects responses that cannot be applied to job. Such
// responses count as transient poll failures.
func checkStatus(job JobID, status UploadStatus) error {
	if status.Job != "" && status.Job != job {
		return mismatchError("status", string(status.Job), string(job))
	}
	if !status.Status.Known() {
		return fmt.Errorf("unknown upload status %q", status.Status)
	}
	if status.Status == StatusParsed && status.ResultDocument == "" {
		return errors.New("parsed status without result document id")
	}
	return nil
}
