// Package account implements signup and login over a credential store.
package account

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	// ErrAccountExists is returned when the username is already taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidInput is returned for an empty username or password.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedCharacter is returned for fields the credential file
	// format cannot represent (commas and line breaks).
	ErrUnsupportedCharacter = errors.New("unsupported character in credentials")
)

// CredentialStore loads and rewrites all accounts at once.
type CredentialStore interface {
	LoadAll() (map[string]string, error)
	SaveAll(users map[string]string) error
}

// Service authenticates users and creates accounts. Accounts are loaded
// once at construction and written through on every signup.
type Service struct {
	store  CredentialStore
	logger *slog.Logger

	mu    sync.RWMutex
	users map[string]string
}

// NewService loads all accounts from store.
func NewService(store CredentialStore, logger *slog.Logger) (*Service, error) {
	users, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return &Service{store: store, logger: logger, users: users}, nil
}

// Authenticate reports whether username exists with exactly this password.
func (s *Service) Authenticate(username, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.users[username]
	return ok && stored == password
}

// CreateAccount registers a new user and rewrites the credential file.
func (s *Service) CreateAccount(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if strings.ContainsAny(username, ",\r\n") || strings.ContainsAny(password, ",\r\n") {
		return fmt.Errorf("%w: commas and line breaks are not allowed", ErrUnsupportedCharacter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return ErrAccountExists
	}

	next := make(map[string]string, len(s.users)+1)
	for u, p := range s.users {
		next[u] = p
	}
	next[username] = password

	if err := s.store.SaveAll(next); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	s.users = next
	s.logger.Info("account created", "username", username)
	return nil
}
