package views

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/api"
	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/cooldown"
	"github.com/DoyleJ11/arena-client/internal/i18n"
	"github.com/DoyleJ11/arena-client/internal/logging"
	"github.com/DoyleJ11/arena-client/internal/reconcile"
	"github.com/DoyleJ11/arena-client/internal/session"
)

var ErrBusy = errors.New("views: control busy")
var ErrCoolingDown = errors.New("views: action cooling down")

// Message is the inline text shown next to a control.
type Message struct {
	Text  string `json:"text,omitempty"`
	Error bool   `json:"error,omitempty"`
}

// Control is one triggering control (a button plus its inline message).
// While busy it rejects further commands.
type Control struct {
	mu   sync.Mutex
	busy bool
	msg  Message
}

func (c *Control) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Control) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Control) set(m Message) {
	c.mu.Lock()
	c.msg = m
	c.mu.Unlock()
}

func (c *Control) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Control) Message() Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msg
}

type Deps struct {
	API      *api.Client
	Cache    *cache.Store
	Rec      *reconcile.Reconciler
	Governor *cooldown.Governor
	Msgs     *i18n.Printer
	Log      *zap.Logger
	Device   string
}

// Env is what every view shares: the endpoint client, the listing cache and
// the reconciler that keeps it fresh.
type Env struct {
	api    *api.Client
	cache  *cache.Store
	rec    *reconcile.Reconciler
	gov    *cooldown.Governor
	msgs   *i18n.Printer
	log    *zap.Logger
	device string
	now    func() time.Time
}

func NewEnv(d Deps) *Env {
	e := &Env{
		api:    d.API,
		cache:  d.Cache,
		rec:    d.Rec,
		gov:    d.Governor,
		msgs:   d.Msgs,
		log:    logging.Or(d.Log).Named("views"),
		device: d.Device,
		now:    time.Now,
	}
	if e.gov == nil {
		e.gov = cooldown.New(cooldown.WithLogger(d.Log))
	}
	if e.msgs == nil {
		e.msgs = i18n.New("en")
	}
	if e.device == "" {
		e.device = "arena-client"
	}
	e.registerFetchers()

	// Nothing cached for one identity may be shown to the next.
	e.api.Player().OnChange(func(_ session.Identity, active bool) {
		if !active {
			e.cache.Reset()
		}
	})
	return e
}

func (e *Env) Cache() *cache.Store { return e.cache }

func (e *Env) Reconciler() *reconcile.Reconciler { return e.rec }

func (e *Env) Printer() *i18n.Printer { return e.msgs }

// run executes one command on ctl. The control is busy for the duration
// and always released; the inline message is cleared on success and set
// from err otherwise.
func (e *Env) run(ctx context.Context, ctl *Control, name string, fn func(ctx context.Context) error) error {
	if !ctl.acquire() {
		return ErrBusy
	}
	defer ctl.release()

	if err := fn(ctx); err != nil {
		ctl.set(Message{Text: e.describe(err), Error: true})
		e.log.Debug("command failed", zap.String("command", name), zap.Error(err))
		return err
	}
	ctl.set(Message{})
	return nil
}

// settle marks keys stale and waits for one reconciliation pass. Pass
// errors are logged by the reconciler and do not fail the command.
func (e *Env) settle(ctx context.Context, keys ...cache.Key) {
	if err := e.rec.Reconcile(ctx, keys...); err != nil {
		e.log.Debug("settle", zap.Error(err))
	}
}

// load refreshes keys that are missing or stale.
func (e *Env) load(ctx context.Context, keys ...cache.Key) error {
	var need []cache.Key
	seen := make(map[cache.Key]bool, len(keys))
	for _, k := range keys {
		if !seen[k] && e.cache.NeedsFetch(k) {
			need = append(need, k)
		}
		seen[k] = true
	}
	if len(need) == 0 {
		return nil
	}
	return e.rec.Refresh(ctx, need...)
}

func (e *Env) open(ctx context.Context, keys ...cache.Key) error {
	for _, k := range keys {
		if err := e.rec.Send(ctx, reconcile.Open{Key: k}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Env) close(ctx context.Context, keys ...cache.Key) error {
	for _, k := range keys {
		if err := e.rec.Send(ctx, reconcile.Close{Key: k}); err != nil {
			return err
		}
	}
	return nil
}

// patchGold applies an authoritative gold value returned by a command.
func (e *Env) patchGold(gold int64) {
	e.cache.Patch(cache.KeyPlayer, func(old any) any {
		if p, ok := old.(playerSnapshot); ok {
			return p.WithGold(gold)
		}
		return old
	})
}

func (e *Env) viewer() string {
	name, _ := e.api.Player().Username()
	return name
}

// describe picks the text for a failed command: the server's own message
// when it sent one, otherwise a localized fallback.
func (e *Env) describe(err error) string {
	switch {
	case errors.Is(err, api.ErrNoSession):
		return e.msgs.Sprintf(i18n.MsgNotLoggedIn)
	case errors.Is(err, ErrCoolingDown):
		return e.msgs.Sprintf(i18n.MsgCoolingDown)
	case errors.Is(err, ErrBusy):
		return e.msgs.Sprintf(i18n.MsgBusy)
	}
	ae, ok := api.AsError(err)
	if !ok {
		return e.msgs.Sprintf(i18n.MsgGeneric)
	}
	if ae.Message != "" {
		return ae.Message
	}
	switch ae.Kind {
	case api.KindTransport:
		if ae.Status != 0 {
			return e.msgs.Sprintf(i18n.MsgBadResponse)
		}
		return e.msgs.Sprintf(i18n.MsgNetwork)
	case api.KindUnauthorized:
		return e.msgs.Sprintf(i18n.MsgSessionExpired)
	case api.KindRateLimited:
		return e.msgs.Sprintf(i18n.MsgCoolingDown)
	}
	return e.msgs.Sprintf(i18n.MsgGeneric)
}
