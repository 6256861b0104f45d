package hub

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	KindAnnounce     = "announce"
	KindAuctionSold  = "auction_sold"
	KindFriendOnline = "friend_online"
	KindSession      = "session"
)

// Notice is a transient, toast-style message. It disappears from Recent
// once ExpiresAt passes.
type Notice struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type HubMsg interface{ isHubMsg() }

type Post struct {
	Notice Notice
}

type Join struct {
	ClientID string
	Outbox   chan Notice // receives live notices after the current backlog
}

type Leave struct {
	ClientID string
}

type Recent struct {
	Reply chan []Notice
}

type ShutdownHub struct{}

func (Post) isHubMsg()        {}
func (Join) isHubMsg()        {}
func (Leave) isHubMsg()       {}
func (Recent) isHubMsg()      {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	notices []Notice
	clients map[string]chan Notice
	ttl     time.Duration
	max     int
	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(*Hub)

func WithTTL(d time.Duration) Option { return func(h *Hub) { h.ttl = d } }

func WithCapacity(n int) Option { return func(h *Hub) { h.max = n } }

func WithClock(now func() time.Time) Option { return func(h *Hub) { h.now = now } }

func NewHub(parent context.Context, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		clients: make(map[string]chan Notice),
		ttl:     8 * time.Second,
		max:     20,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Send delivers m unless ctx ends or the hub has shut down first.
func (h *Hub) Send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

// Notify posts a notice of the given kind. It never blocks past shutdown.
func (h *Hub) Notify(kind, text string) {
	select {
	case h.inbox <- Post{Notice: Notice{Kind: kind, Text: text}}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Post:
				n := msg.Notice
				if n.ID == "" {
					n.ID = ulid.Make().String()
				}
				if n.At.IsZero() {
					n.At = h.now()
				}
				if n.ExpiresAt.IsZero() {
					n.ExpiresAt = n.At.Add(h.ttl)
				}
				h.prune()
				h.notices = append(h.notices, n)
				if len(h.notices) > h.max {
					h.notices = h.notices[len(h.notices)-h.max:]
				}
				h.broadcast(n)

			case Join:
				// Register client + send the live backlog immediately
				h.prune()
				h.clients[msg.ClientID] = msg.Outbox
				for _, n := range h.notices {
					select {
					case msg.Outbox <- n:
					default:
					}
				}

			case Leave:
				if ch, ok := h.clients[msg.ClientID]; ok {
					close(ch)
					delete(h.clients, msg.ClientID)
				}

			case Recent:
				h.prune()
				out := make([]Notice, len(h.notices))
				copy(out, h.notices)
				msg.Reply <- out

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) prune() {
	now := h.now()
	kept := h.notices[:0]
	for _, n := range h.notices {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	h.notices = kept
}

func (h *Hub) broadcast(n Notice) {
	for id, ch := range h.clients {
		select {
		case ch <- n:
		default:
			close(ch)
			delete(h.clients, id)
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	clear(h.notices)
	h.notices = nil
	h.cancel()
}
