package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	defaultTTL time.Duration
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, defaultTTL time.Duration, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source used when issuing and verifying
// tokens. Tests use it to pin the expiry boundary.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Issue creates a signed token asserting subject until now+ttl.
func (ts *TokenServiceImpl) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrTokenClaims
	}

	if ttl <= 0 {
		ttl = ts.defaultTTL
	}

	now := ts.now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Verify parses and validates a raw token string, returning the subject.
// Every failure maps to exactly one of the token error kinds; none are
// swallowed. Expiry is exact: a token whose expiry equals the verification
// time is already expired.
func (ts *TokenServiceImpl) Verify(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, ErrTokenSignature
		}
		return ts.signingKey, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(ts.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidClaims), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return "", ErrTokenClaims
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenUnverifiable):
			return "", ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		default:
			return "", errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return "", ErrTokenClaims
	}

	if claims.Subject() == "" {
		return "", ErrTokenClaims
	}

	return claims.Subject(), nil
}
