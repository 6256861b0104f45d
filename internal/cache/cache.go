package cache

import (
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Key string

const (
	KeyPlayer         Key = "player"
	KeyEquips         Key = "equips"
	KeyShop           Key = "shop"
	KeyInventory      Key = "inventory"
	KeyAuctions       Key = "auctions"
	KeyFriends        Key = "friends"
	KeyFriendRequests Key = "friend_requests"
	KeyRankPower      Key = "rank:power"
	KeyRankElo        Key = "rank:elo"
	KeyRankWeekly     Key = "rank:weekly"
)

type Entry struct {
	Data      any       `json:"data"`
	Seq       uint64    `json:"seq"`
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetched_at"`
}

type record struct {
	data      any
	seq       uint64
	stale     bool
	fetchedAt time.Time
}

// Store keeps the last fetched value per key. Values are only replaced
// wholesale. Every fetch takes a sequence number from Begin and Commit
// drops any response that is not for the latest issued sequence.
type Store struct {
	mu      sync.Mutex
	items   *gocache.Cache
	issued  map[Key]uint64
	version uint64
	maxAge  time.Duration
	now     func() time.Time
}

type Option func(*Store)

// WithMaxAge makes entries older than d read as stale.
func WithMaxAge(d time.Duration) Option { return func(s *Store) { s.maxAge = d } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(opts ...Option) *Store {
	s := &Store{
		items:  gocache.New(gocache.NoExpiration, 0),
		issued: map[Key]uint64{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin issues the next sequence number for key.
func (s *Store) Begin(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[key]++
	return s.issued[key]
}

// Commit stores data for key if seq is still the latest issued sequence.
// It reports whether the value was kept.
func (s *Store) Commit(key Key, seq uint64, data any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued[key] {
		return false
	}
	s.items.Set(string(key), &record{data: data, seq: seq, fetchedAt: s.now()}, gocache.NoExpiration)
	s.version++
	return true
}

// Patch replaces key's value with fn(old) and supersedes every fetch still
// in flight for it. It is used for authoritative values returned by a
// command (e.g. gold after a purchase). The stale flag is left untouched.
func (s *Store) Patch(key Key, fn func(old any) any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items.Get(string(key))
	if !ok {
		return false
	}
	r := v.(*record)
	s.issued[key]++
	s.items.Set(string(key), &record{
		data:      fn(r.data),
		seq:       s.issued[key],
		stale:     r.stale,
		fetchedAt: r.fetchedAt,
	}, gocache.NoExpiration)
	s.version++
	return true
}

func (s *Store) MarkStale(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		v, ok := s.items.Get(string(key))
		if !ok {
			continue
		}
		r := *v.(*record)
		if r.stale {
			continue
		}
		r.stale = true
		s.items.Set(string(key), &r, gocache.NoExpiration)
		s.version++
	}
}

func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items.Get(string(key))
	if !ok {
		return Entry{}, false
	}
	return s.entry(v.(*record)), true
}

// NeedsFetch reports whether key is missing or stale.
func (s *Store) NeedsFetch(key Key) bool {
	e, ok := s.Get(key)
	return !ok || e.Stale
}

func (s *Store) StaleKeys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Key
	for k, item := range s.items.Items() {
		if s.entry(item.Object.(*record)).Stale {
			out = append(out, Key(k))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Version increments on every change to the store.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Reset drops every entry and invalidates fetches still in flight, so a
// response for the previous session can never land after a logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Flush()
	for k := range s.issued {
		s.issued[k]++
	}
	s.version++
}

func (s *Store) entry(r *record) Entry {
	stale := r.stale
	if s.maxAge > 0 && s.now().Sub(r.fetchedAt) > s.maxAge {
		stale = true
	}
	return Entry{Data: r.data, Seq: r.seq, Stale: stale, FetchedAt: r.fetchedAt}
}

// Typed reads a key's value as T.
func Typed[T any](s *Store, key Key) (T, Entry, bool) {
	var zero T
	e, ok := s.Get(key)
	if !ok {
		return zero, e, false
	}
	v, ok := e.Data.(T)
	if !ok {
		return zero, e, false
	}
	return v, e, true
}
