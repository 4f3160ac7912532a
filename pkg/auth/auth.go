// Package auth provides credential storage and verification for the HTTP
// server. Passwords are hashed with PBKDF2-SHA256 and compared in constant
// time.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidCredentials is returned when username or password is incorrect
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists is returned when trying to create a user that already exists
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when user is not found
	ErrUserNotFound = errors.New("user not found")
	// ErrPermissionDenied is returned when user lacks required permission
	ErrPermissionDenied = errors.New("permission denied")
)

const (
	saltLength     = 16
	iterationCount = 4096
	keyLength      = 32
)

// Role represents a user role with associated permissions.
type Role string

const (
	// RoleAdmin has full access to all operations
	RoleAdmin Role = "admin"
	// RoleReadWrite can read and write data
	RoleReadWrite Role = "readWrite"
	// RoleRead can only read data
	RoleRead Role = "read"
)

// rank orders roles for permission checks.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleReadWrite:
		return 2
	case RoleRead:
		return 1
	default:
		return 0
	}
}

// Allows reports whether the role grants at least the required role.
func (r Role) Allows(required Role) bool {
	return r.rank() >= required.rank()
}

// User is a stored credential with its role.
type User struct {
	Username string
	Role     Role
	salt     []byte
	hash     []byte
}

// UserStore holds users in memory.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]*User),
	}
}

// CreateUser adds a user with the given password and role.
func (s *UserStore) CreateUser(username, password string, role Role) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	s.users[username] = &User{
		Username: username,
		Role:     role,
		salt:     salt,
		hash:     pbkdf2.Key([]byte(password), salt, iterationCount, keyLength, sha256.New),
	}
	return nil
}

// Verify checks the password for the user and returns the user on success.
func (s *UserStore) Verify(username, password string) (*User, error) {
	s.mu.RLock()
	user, exists := s.users[username]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrInvalidCredentials
	}

	candidate := pbkdf2.Key([]byte(password), user.salt, iterationCount, keyLength, sha256.New)
	if !hmac.Equal(candidate, user.hash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns the user with the given name.
func (s *UserStore) Get(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
