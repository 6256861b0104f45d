package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/logging"
	pushtypes "github.com/DoyleJ11/arena-client/pkg/types"
)

var errAbsent = errors.New("push: no channel at origin")

// WS is a websocket push channel with capped reconnect backoff.
type WS struct {
	url        string
	header     http.Header
	minBackoff time.Duration
	maxBackoff time.Duration
	readLimit  int64
	log        *zap.Logger
	subs       subscribers
}

type Option func(*WS)

func WithLogger(l *zap.Logger) Option { return func(c *WS) { c.log = l } }

func WithBackoff(min, max time.Duration) Option {
	return func(c *WS) { c.minBackoff, c.maxBackoff = min, max }
}

func WithHeader(h http.Header) Option { return func(c *WS) { c.header = h } }

func NewWS(url string, opts ...Option) *WS {
	c := &WS{
		url:        url,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
		readLimit:  1 << 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.Or(c.log).Named("push")
	return c
}

func (c *WS) Subscribe(h Handler) func() { return c.subs.add(h) }

func (c *WS) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		delivered, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, errAbsent) {
			c.log.Info("push channel not served by origin", zap.String("url", c.url))
			return nil
		}
		if delivered > 0 {
			backoff = c.minBackoff
		}
		c.log.Warn("push disconnected",
			zap.Error(err),
			zap.Int("delivered", delivered),
			zap.Duration("retry_in", backoff),
		)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// session holds one connection and reports how many events it delivered.
func (c *WS) session(ctx context.Context) (int, error) {
	conn, resp, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{HTTPHeader: c.header})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest) {
			return 0, errAbsent
		}
		return 0, fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(c.readLimit)
	c.log.Info("push connected", zap.String("url", c.url))

	n := 0
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return n, fmt.Errorf("closed by server: %w", err)
			}
			return n, fmt.Errorf("read: %w", err)
		}

		var ev pushtypes.Envelope
		if err := json.Unmarshal(data, &ev); err != nil || ev.Event == "" {
			c.log.Debug("skip malformed frame", zap.Int("bytes", len(data)), zap.Error(err))
			continue
		}
		c.subs.emit(ev)
		n++
	}
}
