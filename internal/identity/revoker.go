package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Revoker reports whether the identity provider has revoked a token.
type Revoker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisRevoker reads the revocation entries the identity provider writes to
// Redis ("<prefix>:<sha256(token)>" with a TTL matching the token lifetime).
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

func NewRedisRevoker(addr, password, prefix string) *RedisRevoker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevoker{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		prefix: prefix,
	}
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.Key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Key returns the Redis key under which token's revocation is stored.
func (r *RedisRevoker) Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + ":" + hex.EncodeToString(sum[:])
}

func (r *RedisRevoker) Close() error {
	return r.client.Close()
}
