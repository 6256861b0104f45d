// Package push listens to the server's optional real-time channel.
//
// The channel is a capability: when it is disabled or the origin does not
// serve one, Select returns Nop and nothing else changes.
package push

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/logging"
	pushtypes "github.com/DoyleJ11/arena-client/pkg/types"
)

type Handler func(pushtypes.Envelope)

type Channel interface {
	// Subscribe registers h for every event and returns its unsubscribe func.
	Subscribe(h Handler) func()
	// Run listens until ctx is done. A missing channel is not an error.
	Run(ctx context.Context) error
}

// Nop is the channel used when push is unavailable.
type Nop struct{}

func (Nop) Subscribe(Handler) func()  { return func() {} }
func (Nop) Run(context.Context) error { return nil }

// Select picks the websocket channel when push is enabled and a URL is
// configured, Nop otherwise.
func Select(enabled bool, url string, log *zap.Logger, opts ...Option) Channel {
	if !enabled || url == "" {
		logging.Or(log).Named("push").Info("push channel disabled")
		return Nop{}
	}
	return NewWS(url, append([]Option{WithLogger(log)}, opts...)...)
}

type subscribers struct {
	mu   sync.Mutex
	next int
	hs   map[int]Handler
}

func (s *subscribers) add(h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hs == nil {
		s.hs = map[int]Handler{}
	}
	id := s.next
	s.next++
	s.hs[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.hs, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) emit(ev pushtypes.Envelope) {
	s.mu.Lock()
	hs := make([]Handler, 0, len(s.hs))
	for _, h := range s.hs {
		hs = append(hs, h)
	}
	s.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}
