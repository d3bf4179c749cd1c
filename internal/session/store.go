package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// API is the part of the marketplace client the session needs
type API interface {
	Login(ctx context.Context, role models.Role, email, password string) (*models.SessionResponse, error)
	Validate(ctx context.Context) (*models.SessionResponse, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error)
	TopUp(ctx context.Context, userID int64, amount models.Money) (*models.User, error)
}

// Store keeps the current identity. It is safe for concurrent use.
type Store struct {
	api API
	log *zap.Logger

	mu      sync.RWMutex
	current Identity
}

func NewStore(api API, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{api: api, log: log}
}

// Login authenticates and replaces the current identity
func (s *Store) Login(ctx context.Context, role models.Role, email, password string) (Identity, error) {
	resp, err := s.api.Login(ctx, role, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	id, err := identityFrom(role, resp)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.set(id)
	s.log.Info("signed in", zap.Stringer("role", role), zap.String("email", email))
	return id, nil
}

// Logout clears the identity. It is cleared even when the server call fails.
func (s *Store) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	s.set(nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Refresh reloads the profile behind the current token
func (s *Store) Refresh(ctx context.Context) (Identity, error) {
	cur, ok := s.Current()
	if !ok {
		return nil, ErrNotSignedIn
	}
	resp, err := s.api.Validate(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	id, err := identityFrom(cur.Role(), resp)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	s.set(id)
	return id, nil
}

// Update edits the client's profile. Blank fields keep their value on the server.
func (s *Store) Update(ctx context.Context, update models.ProfileUpdate) (Identity, error) {
	c, err := s.Client()
	if err != nil {
		return nil, err
	}
	update.ID = c.ID

	u, err := s.api.UpdateProfile(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	id := clientFrom(u)
	s.set(id)
	return id, nil
}

// TopUp adds amount to the client's balance
func (s *Store) TopUp(ctx context.Context, amount models.Money) (Identity, error) {
	c, err := s.Client()
	if err != nil {
		return nil, err
	}

	u, err := s.api.TopUp(ctx, c.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("top up: %w", err)
	}
	id := clientFrom(u)
	s.set(id)
	return id, nil
}

// Current returns the signed-in identity, if any
func (s *Store) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// Client returns the signed-in client or ErrNotClient
func (s *Store) Client() (Client, error) {
	id, ok := s.Current()
	if !ok {
		return Client{}, ErrNotSignedIn
	}
	c, ok := id.(Client)
	if !ok {
		return Client{}, ErrNotClient
	}
	return c, nil
}

func (s *Store) set(id Identity) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}
