package querycache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Status is the lifecycle state of a cache entry.
type Status int

// Entry states. An entry moves idle → pending → (success | error); from
// success it re-enters pending in the background when read past its
// staleness deadline or invalidated.
const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

// String returns the lowercase state name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "invalid"
	}
}

// FetchFunc loads the value for a key from the store. The context carries
// the cache's per-fetch timeout.
type FetchFunc func(ctx context.Context) (any, error)

// Options tunes a Cache instance. Zero fields fall back to the defaults
// noted on each field.
type Options struct {
	StaleAfter   time.Duration // freshness window (default 30s)
	GCAfter      time.Duration // retention past fetch before eviction (default 5m)
	MaxRetries   int           // retry attempts for retryable fetch errors (default 3)
	RetryBase    time.Duration // first backoff delay (default 500ms)
	RetryCap     time.Duration // backoff ceiling (default 10s)
	FetchTimeout time.Duration // per-attempt deadline (default 30s)
	Logger       zerolog.Logger

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.StaleAfter <= 0 {
		o.StaleAfter = 30 * time.Second
	}
	if o.GCAfter <= 0 {
		o.GCAfter = 5 * time.Minute
	}
	if o.GCAfter < o.StaleAfter {
		o.GCAfter = o.StaleAfter
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 500 * time.Millisecond
	}
	if o.RetryCap < o.RetryBase {
		o.RetryCap = 10 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
	if o.now == nil {
		o.now = time.Now
	}
}

// Entry is a read-only snapshot of one cache slot, exposed for tests and
// introspection endpoints.
type Entry struct {
	Key        Key
	Status     Status
	Data       any
	Err        error
	FetchedAt  time.Time
	StaleAt    time.Time
	GCAt       time.Time
	RetryCount int
	Observers  int
}

// slot is the mutable per-key state. All fields are guarded by Cache.mu.
type slot struct {
	key        Key
	status     Status
	data       any
	err        error
	fetchedAt  time.Time
	staleAt    time.Time
	gcAt       time.Time
	retryCount int
	observers  int

	fetch    FetchFunc     // last fetcher, reused by invalidation refetch
	fetching bool          // one in-flight fetch per key
	done     chan struct{} // closed when the current fetch settles
}

// Cache is the shared query result cache. It is safe for concurrent use and
// deliberately not a package global: construct one per process (or per test)
// and inject it.
type Cache struct {
	opts Options

	mu    chMutex
	slots map[string]*slot
}

// chMutex is a channel-based mutex so fetch completion can be awaited
// without holding the lock. It behaves like sync.Mutex.
type chMutex struct{ ch chan struct{} }

func (m *chMutex) Lock() {
	if m.ch == nil {
		panic("querycache: cache not constructed with New")
	}
	m.ch <- struct{}{}
}
func (m *chMutex) Unlock() { <-m.ch }

// New constructs a Cache with the given options.
func New(opts Options) *Cache {
	opts.applyDefaults()
	return &Cache{
		opts:  opts,
		slots: make(map[string]*slot),
		mu:    chMutex{ch: make(chan struct{}, 1)},
	}
}

// Get returns the cached value for key, fetching it with fetch when absent.
//
// Behavior by entry state:
//   - fresh success: returns the cached value, no store call.
//   - stale success: returns the cached value immediately and revalidates in
//     the background (stale-while-revalidate); a failing revalidation never
//     blanks out the previously displayed data.
//   - idle/error/pending: joins (or starts) the in-flight fetch and blocks
//     until it settles or ctx is done. N concurrent callers for the same key
//     share exactly one store call.
//
// Cancelling ctx abandons the wait but not the underlying fetch; the result
// still lands in the cache for other observers.
func (c *Cache) Get(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	s := c.slot(key)
	s.fetch = fetch
	now := c.opts.now()

	if s.status == StatusSuccess {
		data := s.data
		if !now.Before(s.staleAt) {
			c.startFetchLocked(s)
		}
		c.mu.Unlock()
		return data, nil
	}

	done := c.startFetchLocked(s)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s.status == StatusSuccess {
		return s.data, nil
	}
	return nil, s.err
}

// Observe registers a live observer for key (a mounted UI context).
// Observed entries are refetched eagerly on invalidation and are never
// garbage collected. The returned release function is idempotent and must
// be called on unmount.
func (c *Cache) Observe(key Key) func() {
	c.mu.Lock()
	s := c.slot(key)
	s.observers++
	c.mu.Unlock()

	released := false
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !released {
			released = true
			s.observers--
		}
	}
}

// Invalidate marks every entry matching any of the patterns as stale and
// returns the number of entries touched. Observed entries refetch
// immediately in the background; unobserved entries refetch lazily on next
// read. Invalidation is idempotent: applying the same pattern twice leaves
// the cache in the same state as applying it once.
func (c *Cache) Invalidate(patterns ...Pattern) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.now()
	n := 0
	for _, s := range c.slots {
		if !matchesAny(s.key, patterns) {
			continue
		}
		n++
		if s.status == StatusSuccess {
			s.staleAt = now
		}
		if s.observers > 0 && s.fetch != nil {
			c.startFetchLocked(s)
		}
	}
	if n > 0 {
		c.opts.Logger.Debug().Int("entries", n).Msg("cache invalidated")
	}
	return n
}

// Snapshot returns a copy of the entry state for key, if present.
func (c *Cache) Snapshot(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key.String()]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Key:        s.key,
		Status:     s.status,
		Data:       s.data,
		Err:        s.err,
		FetchedAt:  s.fetchedAt,
		StaleAt:    s.staleAt,
		GCAt:       s.gcAt,
		RetryCount: s.retryCount,
		Observers:  s.observers,
	}, true
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Sweep evicts settled, unobserved entries whose retention window has
// passed and returns the eviction count.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.now()
	n := 0
	for id, s := range c.slots {
		if s.observers > 0 || s.fetching {
			continue
		}
		if s.status == StatusIdle || s.gcAt.IsZero() || now.Before(s.gcAt) {
			continue
		}
		delete(c.slots, id)
		n++
	}
	return n
}

// Run drives periodic garbage collection until ctx is cancelled. Interval
// defaults to half the retention window when non-positive.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.opts.GCAfter / 2
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.Sweep(); n > 0 {
				c.opts.Logger.Debug().Int("evicted", n).Msg("cache sweep")
			}
		}
	}
}

// slot returns (creating if needed) the slot for key. Caller holds mu.
func (c *Cache) slot(key Key) *slot {
	id := key.String()
	s, ok := c.slots[id]
	if !ok {
		s = &slot{key: key}
		c.slots[id] = s
	}
	return s
}

// startFetchLocked begins a fetch for s unless one is already in flight,
// returning the channel that closes when the fetch settles. Caller holds mu.
func (c *Cache) startFetchLocked(s *slot) chan struct{} {
	if s.fetching {
		return s.done
	}
	if s.fetch == nil {
		// Nothing to run; leave the entry stale until the next read supplies
		// a fetcher.
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	s.fetching = true
	if s.status != StatusSuccess {
		s.status = StatusPending
	}
	s.done = make(chan struct{})
	done := s.done
	go c.runFetch(s, s.fetch, done)
	return done
}

// runFetch executes fetch with the configured retry schedule and settles
// the slot. Exactly one runFetch per slot is live at a time.
func (c *Cache) runFetch(s *slot, fetch FetchFunc, done chan struct{}) {
	var (
		data any
		err  error
	)
	for attempt := 0; ; attempt++ {
		fctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
		data, err = fetch(fctx)
		cancel()
		if err == nil || IsNonRetryable(err) || attempt >= c.opts.MaxRetries {
			break
		}
		c.mu.Lock()
		s.retryCount = attempt + 1
		c.mu.Unlock()
		time.Sleep(Backoff(attempt, c.opts.RetryBase, c.opts.RetryCap))
	}

	c.mu.Lock()
	now := c.opts.now()
	if err == nil {
		s.status = StatusSuccess
		s.data = data
		s.err = nil
		s.fetchedAt = now
		s.staleAt = now.Add(c.opts.StaleAfter)
		s.gcAt = now.Add(c.opts.GCAfter)
		s.retryCount = 0
	} else if s.status == StatusSuccess {
		// Failed revalidation: keep serving the stale value, record the
		// error alongside it.
		s.err = err
		s.gcAt = now.Add(c.opts.GCAfter)
		c.opts.Logger.Warn().Err(err).Str("key", s.key.String()).Msg("background refetch failed")
	} else {
		s.status = StatusError
		s.err = err
		s.gcAt = now.Add(c.opts.GCAfter)
	}
	s.fetching = false
	s.done = nil
	c.mu.Unlock()
	close(done)
}

func matchesAny(k Key, patterns []Pattern) bool {
	for _, p := range patterns {
		if p.Matches(k) {
			return true
		}
	}
	return false
}

// GetAs is a typed wrapper over Cache.Get for callers with concrete result
// types. A cached value of the wrong dynamic type yields the zero value,
// which only happens if two operations share a key, a programmer error the
// key scheme is designed to exclude.
func GetAs[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
