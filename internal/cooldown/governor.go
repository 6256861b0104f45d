package cooldown

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/logging"
)

// Common action keys.
const (
	ActionClick = "click"
)

type Window struct {
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
}

type entry struct {
	expiresAt time.Time
	timer     *time.Timer
	gen       uint64
}

// Governor is a client-side throttle mirroring server rate limits. Each key
// is either idle (no entry) or cooling (one entry, one pending timer). It is
// advisory: the server still has the final word.
type Governor struct {
	mu       sync.Mutex
	now      func() time.Time
	local    map[string]time.Duration
	def      time.Duration
	fallback time.Duration
	keys     map[string]*entry
	gen      uint64
	onIdle   func(key string)
	log      *zap.Logger
}

type Option func(*Governor)

// WithWindow sets the local window armed by TryStart for key.
func WithWindow(key string, d time.Duration) Option {
	return func(g *Governor) { g.local[key] = d }
}

// WithDefaultWindow sets the local window for keys without WithWindow.
func WithDefaultWindow(d time.Duration) Option { return func(g *Governor) { g.def = d } }

// WithFallback sets the delay used when a throttling response has no
// retry hint.
func WithFallback(d time.Duration) Option { return func(g *Governor) { g.fallback = d } }

func WithIdleHook(fn func(key string)) Option { return func(g *Governor) { g.onIdle = fn } }

func WithClock(now func() time.Time) Option { return func(g *Governor) { g.now = now } }

func WithLogger(l *zap.Logger) Option { return func(g *Governor) { g.log = l } }

func New(opts ...Option) *Governor {
	g := &Governor{
		now:      time.Now,
		local:    map[string]time.Duration{},
		def:      500 * time.Millisecond,
		fallback: time.Second,
		keys:     map[string]*entry{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = logging.Or(g.log).Named("cooldown")
	return g
}

// TryStart reports whether key is idle. When it is, the key enters cooling
// for its local window before TryStart returns.
func (g *Governor) TryStart(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.activeLocked(key) {
		return false
	}
	d, ok := g.local[key]
	if !ok {
		d = g.def
	}
	g.armLocked(key, d)
	return true
}

// ApplyServerCooldown re-arms key for the duration the server asked for.
// Non-positive durations leave the current window alone.
func (g *Governor) ApplyServerCooldown(key string, d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	g.armLocked(key, d)
	g.mu.Unlock()
}

// ApplyRateLimit re-arms key after a throttling response. hasHint is false
// when the server gave no retry delay; the fallback delay is used then so
// the key always comes back to idle.
func (g *Governor) ApplyRateLimit(key string, retryAfter time.Duration, hasHint bool) {
	d := retryAfter
	if !hasHint || d <= 0 {
		d = g.fallback
	}
	g.log.Debug("rate limited", zap.String("key", key), zap.Duration("retry_after", d), zap.Bool("server_hint", hasHint))
	g.mu.Lock()
	g.armLocked(key, d)
	g.mu.Unlock()
}

func (g *Governor) IsActive(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeLocked(key)
}

func (g *Governor) Window(key string) Window {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.keys[key]
	if !ok {
		return Window{}
	}
	return Window{Active: g.now().Before(e.expiresAt), ExpiresAt: e.expiresAt}
}

// Snapshot returns the windows of every cooling key.
func (g *Governor) Snapshot() map[string]Window {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]Window, len(g.keys))
	now := g.now()
	for k, e := range g.keys {
		if now.Before(e.expiresAt) {
			out[k] = Window{Active: true, ExpiresAt: e.expiresAt}
		}
	}
	return out
}

// Stop cancels every pending timer. Keys go idle without firing the hook.
func (g *Governor) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, e := range g.keys {
		e.timer.Stop()
		delete(g.keys, k)
	}
}

func (g *Governor) activeLocked(key string) bool {
	e, ok := g.keys[key]
	return ok && g.now().Before(e.expiresAt)
}

func (g *Governor) armLocked(key string, d time.Duration) {
	if e, ok := g.keys[key]; ok {
		e.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.keys[key] = &entry{
		expiresAt: g.now().Add(d),
		gen:       gen,
		timer:     time.AfterFunc(d, func() { g.expire(key, gen) }),
	}
}

func (g *Governor) expire(key string, gen uint64) {
	g.mu.Lock()
	e, ok := g.keys[key]
	if !ok || e.gen != gen {
		// replaced by a newer window
		g.mu.Unlock()
		return
	}
	delete(g.keys, key)
	hook := g.onIdle
	g.mu.Unlock()

	if hook != nil {
		hook(key)
	}
}
