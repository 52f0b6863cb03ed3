package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "auth:revoked:"

// Denylist records revoked token IDs until their natural expiry. A nil
// Denylist (or one without a client) degrades to fully stateless
// validation: nothing is ever considered revoked and Revoke reports
// ErrRevocationUnavailable.
type Denylist struct {
	client *redis.Client
}

// ErrRevocationUnavailable signals that no denylist backend is configured.
var ErrRevocationUnavailable = errRevocationUnavailable{}

type errRevocationUnavailable struct{}

func (errRevocationUnavailable) Error() string { return "token revocation not configured" }

// NewDenylist wraps a redis client; client may be nil.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks the token ID revoked for its remaining lifetime.
func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if d == nil || d.client == nil {
		return ErrRevocationUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether the token ID was revoked. Lookup errors are
// surfaced so a broken denylist never silently accepts a revoked token.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.client == nil || jti == "" {
		return false, nil
	}
	_, err := d.client.Get(ctx, denylistKeyPrefix+jti).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
