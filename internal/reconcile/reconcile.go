package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/logging"
)

// Fetcher loads a fresh value for one cache key.
type Fetcher func(ctx context.Context) (any, error)

type Msg interface{ isReconcileMsg() }

type Register struct {
	Key   cache.Key
	Fetch Fetcher
}

func (Register) isReconcileMsg() {}

// Open marks a key as shown by some view. Open keys take part in every
// reconciliation pass; closed keys only get their stale flag.
type Open struct{ Key cache.Key }

func (Open) isReconcileMsg() {}

type Close struct{ Key cache.Key }

func (Close) isReconcileMsg() {}

// Invalidate marks keys stale and runs one pass over every stale open key.
// Done, if set, receives the pass result.
type Invalidate struct {
	Ctx  context.Context
	Keys []cache.Key
	Done chan error
}

func (Invalidate) isReconcileMsg() {}

// Refresh fetches the given keys whether or not they are open.
type Refresh struct {
	Ctx  context.Context
	Keys []cache.Key
	Done chan error
}

func (Refresh) isReconcileMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Update
}

func (Join) isReconcileMsg() {}

type Leave struct{ ClientID string }

func (Leave) isReconcileMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isReconcileMsg() {}

type Shutdown struct{}

func (Shutdown) isReconcileMsg() {}

type landed struct {
	key       cache.Key
	committed bool
}

func (landed) isReconcileMsg() {}

type Update struct {
	Key     cache.Key
	Version uint64
}

type View struct {
	Version    uint64      `json:"version"`
	NumClients int         `json:"num_clients"`
	Open       []cache.Key `json:"open"`
	Stale      []cache.Key `json:"stale"`
}

type Reconciler struct {
	inbox    chan Msg
	store    *cache.Store
	fetchers map[cache.Key]Fetcher
	open     map[cache.Key]int
	clients  map[string]chan Update
	version  uint64
	limit    int
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, store *cache.Store, log *zap.Logger) *Reconciler {
	ctx, cancel := context.WithCancel(parent)

	r := &Reconciler{
		inbox:    make(chan Msg, 64),
		store:    store,
		fetchers: make(map[cache.Key]Fetcher),
		open:     make(map[cache.Key]int),
		clients:  make(map[string]chan Update),
		limit:    4,
		log:      logging.Or(log).Named("reconcile"),
		ctx:      ctx,
		cancel:   cancel,
	}

	go r.loop()
	return r
}

func (r *Reconciler) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Register:
				r.fetchers[msg.Key] = msg.Fetch

			case Open:
				r.open[msg.Key]++

			case Close:
				if r.open[msg.Key] <= 1 {
					delete(r.open, msg.Key)
				} else {
					r.open[msg.Key]--
				}

			case Invalidate:
				r.store.MarkStale(msg.Keys...)
				r.broadcastAll(msg.Keys)
				r.startPass(msg.Ctx, r.openStale(), msg.Done)

			case Refresh:
				r.startPass(msg.Ctx, msg.Keys, msg.Done)

			case landed:
				if msg.committed {
					r.version++
					r.broadcast(Update{Key: msg.key, Version: r.version})
				}

			case Join:
				r.clients[msg.ClientID] = msg.Outbox

			case Leave:
				if ch, ok := r.clients[msg.ClientID]; ok {
					close(ch)
					delete(r.clients, msg.ClientID)
				}

			case GetState:
				open := make([]cache.Key, 0, len(r.open))
				for k := range r.open {
					open = append(open, k)
				}
				sort.Slice(open, func(i, j int) bool { return open[i] < open[j] })
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					Open:       open,
					Stale:      r.store.StaleKeys(),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Reconciler) openStale() []cache.Key {
	var keys []cache.Key
	for k := range r.open {
		if r.store.NeedsFetch(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// startPass fetches keys off the actor goroutine. Results come back through
// the inbox as landed messages.
func (r *Reconciler) startPass(ctx context.Context, keys []cache.Key, done chan error) {
	if ctx == nil {
		ctx = r.ctx
	}
	type job struct {
		key   cache.Key
		fetch Fetcher
	}
	var jobs []job
	var missing error
	for _, k := range keys {
		f, ok := r.fetchers[k]
		if !ok {
			missing = multierr.Append(missing, fmt.Errorf("no fetcher for %q", k))
			continue
		}
		jobs = append(jobs, job{key: k, fetch: f})
	}

	go func() {
		var (
			mu   sync.Mutex
			errs = missing
			g    errgroup.Group
		)
		g.SetLimit(r.limit)
		for _, j := range jobs {
			j := j
			g.Go(func() error {
				seq := r.store.Begin(j.key)
				data, err := j.fetch(ctx)
				if err != nil {
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("refresh %s: %w", j.key, err))
					mu.Unlock()
					return nil
				}
				committed := r.store.Commit(j.key, seq, data)
				r.send(landed{key: j.key, committed: committed})
				return nil
			})
		}
		_ = g.Wait()

		if errs != nil {
			r.log.Warn("reconciliation pass", zap.Error(errs))
		}
		if done != nil {
			done <- errs
		}
	}()
}

func (r *Reconciler) send(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

func (r *Reconciler) broadcastAll(keys []cache.Key) {
	for _, k := range keys {
		r.version++
		r.broadcast(Update{Key: k, Version: r.version})
	}
}

func (r *Reconciler) broadcast(u Update) {
	for id, ch := range r.clients {
		select {
		case ch <- u:
			//ok
		default:
			// Subscriber is slow/full - drop them.
			close(ch)
			delete(r.clients, id)
		}
	}
}

func (r *Reconciler) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}

// Expose the inbox so views and the push dispatcher can send messages.
func (r *Reconciler) Inbox() chan<- Msg { return r.inbox }

// Send delivers m unless ctx ends or the reconciler has shut down first.
func (r *Reconciler) Send(ctx context.Context, m Msg) error {
	select {
	case r.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

func (r *Reconciler) Register(key cache.Key, fetch Fetcher) { r.send(Register{Key: key, Fetch: fetch}) }

// Invalidate marks keys stale and refreshes the open ones in the background.
func (r *Reconciler) Invalidate(keys ...cache.Key) {
	r.send(Invalidate{Keys: keys})
}

// Reconcile marks keys stale and waits for the pass over open stale keys.
func (r *Reconciler) Reconcile(ctx context.Context, keys ...cache.Key) error {
	return r.await(ctx, func(done chan error) Msg { return Invalidate{Ctx: ctx, Keys: keys, Done: done} })
}

// Refresh fetches keys now, open or not, and waits for the result.
func (r *Reconciler) Refresh(ctx context.Context, keys ...cache.Key) error {
	return r.await(ctx, func(done chan error) Msg { return Refresh{Ctx: ctx, Keys: keys, Done: done} })
}

func (r *Reconciler) await(ctx context.Context, build func(chan error) Msg) error {
	done := make(chan error, 1)
	select {
	case r.inbox <- build(done):
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}
