// Package auth signs approved users in and tells interested parties when
// they sign in or out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/store"
)

var (
	// ErrNotApproved is returned for emails missing from the approved list
	ErrNotApproved = errors.New("email is not approved")
	// ErrInvalidToken is returned for unknown or signed-out tokens
	ErrInvalidToken = errors.New("invalid session token")
)

// EventKind says what happened to a user's session
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed in"
	case SignedOut:
		return "signed out"
	}
	return "unknown"
}

// Event is delivered to subscribers
type Event struct {
	Kind  EventKind
	User  models.User
	Token string
}

// Directory looks up approved users
type Directory interface {
	GetUser(ctx context.Context, email string) (models.User, error)
}

// Session tracks signed-in users by opaque token and owns its listeners
type Session struct {
	dir Directory

	mu        sync.RWMutex
	tokens    map[string]models.User
	listeners map[int]func(Event)
	nextID    int
}

// NewSession creates an authentication session backed by dir
func NewSession(dir Directory) *Session {
	return &Session{
		dir:       dir,
		tokens:    make(map[string]models.User),
		listeners: make(map[int]func(Event)),
	}
}

// SignIn checks the email against the approved list and issues a token
func (s *Session) SignIn(ctx context.Context, email string) (string, models.User, error) {
	key := store.NormalizeEmail(email)
	if key == "" {
		return "", models.User{}, fmt.Errorf("email is required")
	}

	user, err := s.dir.GetUser(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", models.User{}, fmt.Errorf("%w: %s", ErrNotApproved, key)
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = user
	s.mu.Unlock()

	log.Printf("User %s signed in", user.Email)
	s.emit(Event{Kind: SignedIn, User: user, Token: token})
	return token, user, nil
}

// SignOut drops the token
func (s *Session) SignOut(token string) error {
	s.mu.Lock()
	user, ok := s.tokens[token]
	delete(s.tokens, token)
	s.mu.Unlock()
	if !ok {
		return ErrInvalidToken
	}

	log.Printf("User %s signed out", user.Email)
	s.emit(Event{Kind: SignedOut, User: user, Token: token})
	return nil
}

// Lookup returns the user behind a token
func (s *Session) Lookup(token string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.tokens[token]
	if !ok {
		return models.User{}, ErrInvalidToken
	}
	return user, nil
}

// Subscribe registers fn for sign-in and sign-out events. Call the returned
// function to stop receiving them.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) emit(e Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
