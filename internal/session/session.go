package session

import (
	"errors"
	"strings"
	"sync"
)

var ErrEmptyToken = errors.New("session: empty token")
var ErrEmptyUsername = errors.New("session: empty username")

type Identity struct {
	Token    string
	Username string
	Root     bool // admin namespace only
}

// Store holds one credential namespace (player or admin). Token and username
// are only ever set together by Login and cleared together by Logout.
type Store struct {
	mu       sync.RWMutex
	id       *Identity
	gen      uint64
	onChange []func(Identity, bool)
}

func NewStore() *Store { return &Store{} }

func (s *Store) Login(token, username string) error {
	return s.login(Identity{Token: token, Username: username})
}

func (s *Store) LoginAdmin(token string, root bool) error {
	name := "admin"
	if root {
		name = "root"
	}
	return s.login(Identity{Token: token, Username: name, Root: root})
}

func (s *Store) login(id Identity) error {
	id.Token = strings.TrimSpace(id.Token)
	id.Username = strings.TrimSpace(id.Username)
	if id.Token == "" {
		return ErrEmptyToken
	}
	if id.Username == "" {
		return ErrEmptyUsername
	}

	s.mu.Lock()
	s.id = &id
	s.gen++
	hooks := s.onChange
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(id, true)
	}
	return nil
}

// Logout clears the identity. Safe to call when already logged out.
func (s *Store) Logout() {
	s.mu.Lock()
	if s.id == nil {
		s.mu.Unlock()
		return
	}
	prev := *s.id
	s.id = nil
	s.gen++
	hooks := s.onChange
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(prev, false)
	}
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id != nil
}

func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.id == nil {
		return Identity{}, false
	}
	return *s.id, true
}

// Token implements gateway.TokenSource.
func (s *Store) Token() (string, bool) {
	id, ok := s.Identity()
	return id.Token, ok
}

func (s *Store) Username() (string, bool) {
	id, ok := s.Identity()
	return id.Username, ok
}

// Generation increments on every login and logout. Callers compare it
// before and after a request to detect that the identity changed underneath.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// OnChange registers fn to run after every login (active=true) and logout
// (active=false). Hooks run outside the lock.
func (s *Store) OnChange(fn func(id Identity, active bool)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Expire logs out only if the identity is still the one observed at gen,
// so an auth failure for an old token cannot end a newer session.
func (s *Store) Expire(gen uint64) bool {
	s.mu.Lock()
	if s.id == nil || s.gen != gen {
		s.mu.Unlock()
		return false
	}
	prev := *s.id
	s.id = nil
	s.gen++
	hooks := s.onChange
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(prev, false)
	}
	return true
}
