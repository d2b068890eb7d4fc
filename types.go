package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the process-wide, read-only settings the core needs. It is
// constructed once at startup and shared freely across goroutines.
type Config interface {
	GetSigningKey() string
	GetTokenTTL() time.Duration
	GetBcryptCost() int
}

// TokenService issues and verifies signed, time-bounded identity tokens.
type TokenService interface {
	// Issue signs {subject, iat, exp}. A ttl <= 0 uses the configured
	// default.
	Issue(subject string, ttl time.Duration) (string, error)
	// Verify checks structure, signature, expiry and subject, returning
	// the subject on success.
	Verify(raw string) (string, error)
}

// IdentityLookup is the single read the Guard needs from the directory.
type IdentityLookup interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserDirectory is the narrow persistence surface the account operations
// consume. The Bun-backed Users repository implements it; tests substitute
// mocks.
type UserDirectory interface {
	IdentityLookup
	Register(ctx context.Context, user *User) (*User, error)
	ListAll(ctx context.Context) ([]*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	UpdateRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error)
	UpdateActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
