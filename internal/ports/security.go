package ports

import (
	"context"

	"github.com/fixora/tasktrail/internal/domain"
)

// TokenClaims is what an access token proves about its bearer
type TokenClaims struct {
	UserID int64
	Role   domain.Role
}

// TokenService issues and validates access tokens
type TokenService interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)

	// VerifyPassword returns false without error on a mismatch
	VerifyPassword(password, hash string) (bool, error)
}

// LoginLimiter throttles repeated failed logins per key (ip or email)
type LoginLimiter interface {
	// Allow reports whether another attempt is permitted for key
	Allow(ctx context.Context, key string) (bool, error)

	// RecordFailure counts a failed attempt and blocks key once the
	// configured number of attempts is reached
	RecordFailure(ctx context.Context, key string) error

	// Reset clears the attempts of key after a successful login
	Reset(ctx context.Context, key string) error
}
