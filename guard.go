package identity

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Guard resolves a raw bearer token into a live, active Principal. Any
// failure along the chain, bad token, unknown subject, deactivated account,
// collapses into the same unauthenticated answer so callers cannot probe
// which emails are registered. The underlying cause is kept on the wrapped
// error for logs only.
type Guard struct {
	tokens TokenService
	users  IdentityLookup
	logger Logger
}

// NewGuard returns a new Guard
func NewGuard(tokens TokenService, users IdentityLookup) *Guard {
	return &Guard{
		tokens: tokens,
		users:  users,
		logger: defLogger{},
	}
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Authenticate verifies the token, resolves its subject in the directory,
// and confirms the account is active.
func (g *Guard) Authenticate(ctx context.Context, rawToken string) (*Principal, error) {
	subject, err := g.tokens.Verify(rawToken)
	if err != nil {
		g.logger.Warn("guard rejected token", "error", err)
		return nil, unauthenticated(err)
	}

	user, err := g.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.IsNotFound(err) {
			g.logger.Warn("guard resolved token for unknown subject", "subject", subject)
			return nil, unauthenticated(err)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve token subject")
	}

	if !user.Active {
		g.logger.Warn("guard rejected deactivated account", "subject", subject)
		return nil, unauthenticated(errors.New("account is deactivated", errors.CategoryAuth))
	}

	return user.Principal(), nil
}

// AuthenticateWithRole composes Authenticate with RequireRole. Role
// rejections surface as forbidden, never unauthenticated.
func (g *Guard) AuthenticateWithRole(ctx context.Context, rawToken string, required UserRole) (*Principal, error) {
	principal, err := g.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	if err := RequireRole(principal, required); err != nil {
		return nil, err
	}

	return principal, nil
}

// RequireRole checks the principal holds exactly the required role. A
// principal must already exist; this never runs before Authenticate.
func RequireRole(principal *Principal, required UserRole) error {
	if principal == nil {
		return ErrUnauthenticated
	}

	if principal.Role != required {
		return errors.Wrap(ErrForbidden, errors.CategoryAuthz, ErrForbidden.Message).
			WithTextCode(TextCodeForbidden).
			WithCode(errors.CodeForbidden).
			WithMetadata(map[string]any{
				"required_role": required,
				"actual_role":   principal.Role,
			})
	}

	return nil
}

// unauthenticated hides the specific failure behind the umbrella error
// while keeping it reachable for diagnostics.
func unauthenticated(cause error) error {
	return errors.Wrap(cause, errors.CategoryAuth, ErrUnauthenticated.Message).
		WithTextCode(TextCodeUnauthenticated).
		WithCode(errors.CodeUnauthorized)
}
