package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts exposes the caller-facing operations: registration, login,
// self-service updates, and the admin-gated user management calls. It holds
// no mutable state; everything it needs is resolved per call from the
// directory plus the immutable configuration captured at construction.
type Accounts struct {
	users      UserDirectory
	tokens     TokenService
	guard      *Guard
	logger     Logger
	bcryptCost int
}

// NewAccounts returns a new Accounts service wired to the given directory.
func NewAccounts(users UserDirectory, cfg Config) *Accounts {
	tokens := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenTTL(),
		defLogger{},
	)

	return &Accounts{
		users:      users,
		tokens:     tokens,
		guard:      NewGuard(tokens, users),
		logger:     defLogger{},
		bcryptCost: cfg.GetBcryptCost(),
	}
}

func (a *Accounts) WithLogger(logger Logger) *Accounts {
	if logger != nil {
		a.logger = logger
		a.guard.WithLogger(logger)
	}
	return a
}

// TokenService returns the TokenService instance used by this service
func (a *Accounts) TokenService() TokenService {
	return a.tokens
}

// Guard returns the authorization guard used by this service
func (a *Accounts) Guard() *Guard {
	return a.guard
}

// Register creates a new active account with the default role.
func (a *Accounts) Register(ctx context.Context, email, password string) (*User, error) {
	hash, err := HashPasswordWithCost(password, a.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		Active:       true,
	}

	created, err := a.users.Register(ctx, user)
	if err != nil {
		if IsDuplicateConstraintError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	return created, nil
}

// Login verifies the credentials and issues a token with the subject set to
// the account email. Unknown email, wrong password and deactivated account
// all produce the same answer.
func (a *Accounts) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			a.logger.Warn("login attempt for unknown email", "email", email)
			return "", ErrMismatchedHashAndPassword
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during login")
	}

	if !user.Active {
		a.logger.Warn("login attempt for deactivated account", "user_id", user.ID.String())
		return "", ErrMismatchedHashAndPassword
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return "", ErrMismatchedHashAndPassword
		}
		return "", err
	}

	if err := a.users.TrackSuccessfulLogin(ctx, user); err != nil {
		a.logger.Error("failed to track successful login", "error", err)
	}

	return a.tokens.Issue(user.Email, 0)
}

// Self resolves the token into the caller's principal.
func (a *Accounts) Self(ctx context.Context, rawToken string) (*Principal, error) {
	return a.guard.Authenticate(ctx, rawToken)
}

// UpdateEmail changes the caller's email, which is also the token subject:
// tokens issued before the change keep asserting the old address and stop
// resolving. The caller is expected to log in again. An empty or unchanged
// newEmail is a no-op returning the current record.
func (a *Accounts) UpdateEmail(ctx context.Context, rawToken, newEmail string) (*User, error) {
	principal, err := a.guard.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	if newEmail == "" || newEmail == principal.Email {
		return a.users.GetByEmail(ctx, principal.Email)
	}

	if _, err := a.users.GetByEmail(ctx, newEmail); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check email availability")
	}

	updated, err := a.users.UpdateEmail(ctx, principal.ID, newEmail)
	if err != nil {
		if IsDuplicateConstraintError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update email")
	}

	return updated, nil
}

// ChangePassword replaces the caller's password hash wholesale after
// verifying the current password. Already-issued tokens stay valid until
// expiry.
func (a *Accounts) ChangePassword(ctx context.Context, rawToken, currentPassword, newPassword string) error {
	principal, err := a.guard.Authenticate(ctx, rawToken)
	if err != nil {
		return err
	}

	user, err := a.users.GetByEmail(ctx, principal.Email)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to load user for password change")
	}

	if err := ComparePasswordAndHash(currentPassword, user.PasswordHash); err != nil {
		return err
	}

	hash, err := HashPasswordWithCost(newPassword, a.bcryptCost)
	if err != nil {
		return err
	}

	return a.users.UpdatePasswordHash(ctx, user.ID, hash)
}

// ListUsers returns every directory record. Admin only.
func (a *Accounts) ListUsers(ctx context.Context, rawToken string) ([]*User, error) {
	if _, err := a.guard.AuthenticateWithRole(ctx, rawToken, RoleAdmin); err != nil {
		return nil, err
	}

	return a.users.ListAll(ctx)
}

// SetRole changes the role of the target account. Admin only. Because role
// is not embedded in tokens, the change takes effect on the target's very
// next authenticated request.
func (a *Accounts) SetRole(ctx context.Context, rawToken string, targetID uuid.UUID, role UserRole) (*User, error) {
	if _, err := a.guard.AuthenticateWithRole(ctx, rawToken, RoleAdmin); err != nil {
		return nil, err
	}

	if !IsValidRole(role) {
		return nil, errors.New("unknown or invalid role", errors.CategoryValidation).
			WithTextCode(TextCodeInvalidRole).
			WithMetadata(map[string]any{"role": role})
	}

	updated, err := a.users.UpdateRole(ctx, targetID, role)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update role")
	}

	return updated, nil
}

// SetActive flips the activation flag of the target account. Admin only.
// Deactivation does not revoke outstanding tokens; the Guard simply stops
// resolving them.
func (a *Accounts) SetActive(ctx context.Context, rawToken string, targetID uuid.UUID, active bool) (*User, error) {
	if _, err := a.guard.AuthenticateWithRole(ctx, rawToken, RoleAdmin); err != nil {
		return nil, err
	}

	updated, err := a.users.UpdateActive(ctx, targetID, active)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update activation flag")
	}

	return updated, nil
}

// RegisterInTx mirrors Register but runs inside the provided transaction
// manager, for callers that need registration as part of a larger unit of
// work.
func RegisterInTx(ctx context.Context, repo RepositoryManager, cfg Config, email, password string) (*User, error) {
	hash, err := HashPasswordWithCost(password, cfg.GetBcryptCost())
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		Active:       true,
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := repo.Users().RegisterTx(ctx, tx, user)
		if err != nil {
			if IsDuplicateConstraintError(err) {
				return ErrDuplicateEmail
			}
			return errors.Wrap(err, errors.CategoryConflict, "could not create user")
		}
		user = created
		return nil
	})

	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}
