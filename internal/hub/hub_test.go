package hub

import (
	"context"
	"sync"
	"testing"
	"time"
)

func recvNotice(t *testing.T, ch <-chan Notice, within time.Duration) Notice {
	t.Helper()
	select {
	case n, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		return n
	case <-time.After(within):
		t.Fatalf("timed out waiting for notice")
		return Notice{}
	}
}

func recent(t *testing.T, h *Hub) []Notice {
	t.Helper()
	reply := make(chan []Notice, 1)
	h.Inbox() <- Recent{Reply: reply}
	select {
	case ns := <-reply:
		return ns
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for recent notices")
		return nil
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestHub_Post_BroadcastsToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	out := make(chan Notice, 4)
	h.Inbox() <- Join{ClientID: "c1", Outbox: out}
	h.Notify(KindAnnounce, "server restarts at noon")

	n := recvNotice(t, out, 200*time.Millisecond)
	if n.Kind != KindAnnounce || n.Text != "server restarts at noon" {
		t.Fatalf("unexpected notice %+v", n)
	}
	if n.ID == "" || n.ExpiresAt.Sub(n.At) != 8*time.Second {
		t.Fatalf("defaults not applied: %+v", n)
	}
}

func TestHub_Join_ReceivesBacklog(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	h.Notify(KindFriendOnline, "trinity is online.")
	_ = recent(t, h) // drain ordering

	out := make(chan Notice, 4)
	h.Inbox() <- Join{ClientID: "late", Outbox: out}
	n := recvNotice(t, out, 200*time.Millisecond)
	if n.Text != "trinity is online." {
		t.Fatalf("unexpected backlog %+v", n)
	}
}

func TestHub_NoticesExpire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &clock{t: time.Unix(1000, 0)}
	h := NewHub(ctx, WithClock(c.now), WithTTL(5*time.Second))

	h.Notify(KindAuctionSold, "Auction #7 sold for 120 gold.")
	if got := len(recent(t, h)); got != 1 {
		t.Fatalf("want 1 notice, got %d", got)
	}

	c.advance(5 * time.Second)
	if got := len(recent(t, h)); got != 0 {
		t.Fatalf("want notice expired, got %d", got)
	}
}

func TestHub_CapacityKeepsNewest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, WithCapacity(2))

	for _, text := range []string{"a", "b", "c"} {
		h.Notify(KindAnnounce, text)
	}
	ns := recent(t, h)
	if len(ns) != 2 || ns[0].Text != "b" || ns[1].Text != "c" {
		t.Fatalf("unexpected notices %+v", ns)
	}
}

func TestHub_Leave_ClosesOutbox(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	out := make(chan Notice, 1)
	h.Inbox() <- Join{ClientID: "c1", Outbox: out}
	h.Inbox() <- Leave{ClientID: "c1"}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox")
		}
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed")
	}
}

func TestHub_SendAfterShutdownReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(ctx)
	cancel()

	done := make(chan error, 1)
	go func() {
		var last error
		for i := 0; i < 100; i++ {
			if err := h.Send(context.Background(), Recent{Reply: make(chan []Notice, 1)}); err != nil {
				last = err
			}
		}
		done <- last
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected a shutdown error once the inbox filled")
		}
	case <-time.After(time.Second):
		t.Fatalf("Send blocked on a stopped hub")
	}
}
