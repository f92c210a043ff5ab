package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the presence mirror.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // online key validity, renewed while connected
}

// PresenceMirror publishes presence flips to Redis so sidecar services
// (push, user search) can see who is online without talking to the
// gateway. The in-process registry stays authoritative.
type PresenceMirror struct {
	rdb       *redis.Client
	gatewayID string
	ttl       time.Duration
}

// presence key: im:presence:<user>
// value: gateway id; TTL bounds staleness if the gateway dies hard.
func presenceKey(user string) string { return "im:presence:" + user }

func NewPresenceMirror(ctx context.Context, cfg RedisConfig, gatewayID string) (*PresenceMirror, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceMirror{rdb: rdb, gatewayID: gatewayID, ttl: ttl}, nil
}

// Online marks the user online and renews the TTL.
func (p *PresenceMirror) Online(ctx context.Context, user string) error {
	return p.rdb.Set(ctx, presenceKey(user), p.gatewayID, p.ttl).Err()
}

// Offline clears the online marker.
func (p *PresenceMirror) Offline(ctx context.Context, user string) error {
	return p.rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup reports whether the user is online anywhere and on which
// gateway.
func (p *PresenceMirror) Lookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (p *PresenceMirror) Close() error { return p.rdb.Close() }
