package api

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken indicates a register attempt for an existing account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials covers both unknown email and wrong password, so
	// the response does not reveal which accounts exist.
	ErrBadCredentials = errors.New("invalid email or password")
)

type user struct {
	ID           string
	Email        string
	PasswordHash []byte
}

// userStore is the in-memory account registry backing the reference
// server. Emails are case-insensitive.
type userStore struct {
	mu    sync.RWMutex
	users map[string]*user
}

func newUserStore() *userStore {
	return &userStore{users: make(map[string]*user)}
}

// Register creates an account, hashing the password with bcrypt.
func (s *userStore) Register(email, password string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[key]; exists {
		return nil, ErrEmailTaken
	}

	u := &user{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	s.users[key] = u
	return u, nil
}

// Authenticate resolves email+password to an account.
func (s *userStore) Authenticate(email, password string) (*user, error) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}
