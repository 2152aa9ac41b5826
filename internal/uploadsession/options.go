package uploadsession

import "time"

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollFailures = 5
	DefaultRequestTimeout  = 30 * time.Second
)

// TickerFunc returns a tick channel and a stop func.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

type options struct {
	pollInterval   time.Duration
	maxFailures    int
	requestTimeout time.Duration
	maxUploadBytes int64
	onChange       func(State)
	last           LastDocumentStore
	ticker         TickerFunc
	logFields      map[string]any
	now            func() time.Time

	// afterPoll runs once per finished status request, applied or discarded.
	afterPoll func()
}

// Option configures a Controller.
type Option func(*options)

// WithPollInterval overrides the 2 second poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxPollFailures sets how many consecutive transient poll errors are fatal.
func WithMaxPollFailures(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFailures = n
		}
	}
}

// WithRequestTimeout bounds each status and session request.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

// WithMaxUploadBytes caps accepted file size.
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// WithOnChange registers the caller-visible state listener. Transitions are
// delivered in commit order after the controller lock is released, so the
// listener may call State but must not call Controller mutators.
func WithOnChange(fn func(State)) Option {
	return func(o *options) { o.onChange = fn }
}

// WithLastDocumentStore enables remembering and resuming the last document.
func WithLastDocumentStore(store LastDocumentStore) Option {
	return func(o *options) { o.last = store }
}

// WithTicker replaces the poll ticker.
func WithTicker(fn TickerFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.ticker = fn
		}
	}
}

// WithLogFields adds fields to every log line, e.g. session_id.
func WithLogFields(fields map[string]any) Option {
	return func(o *options) { o.logFields = fields }
}

func defaultOptions() options {
	return options{
		pollInterval:   DefaultPollInterval,
		maxFailures:    DefaultMaxPollFailures,
		requestTimeout: DefaultRequestTimeout,
		maxUploadBytes: defaultMaxUploadBytes,
		ticker:         realTicker,
		now:            time.Now,
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
