package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/insights/internal/pkg/config"
)

const sessionKeyPrefix = "insights:session:"

// SessionCache remembers the current session token of each user so the
// bearer middleware does not hit the users table on every request.
type SessionCache struct {
	client *redis.Client
}

// SetupCache connects to the Redis/Dragonfly server. A failed ping is only
// logged: callers fall back to the database when the cache misbehaves.
func SetupCache(ctx context.Context, cfg config.Cache) *SessionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("Could not connect to session cache: %v", err)
	} else {
		log.Infof("Successfully connected to session cache: %s", pong)
	}

	return NewSessionCache(client)
}

func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

func sessionKey(userID uint) string {
	return sessionKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// SetToken stores token as the user's current session for ttl.
func (c *SessionCache) SetToken(ctx context.Context, userID uint, token string, ttl time.Duration) error {
	return c.client.Set(ctx, sessionKey(userID), token, ttl).Err()
}

// GetToken returns the cached token and whether there was one.
func (c *SessionCache) GetToken(ctx context.Context, userID uint) (string, bool, error) {
	token, err := c.client.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (c *SessionCache) Close() error {
	return c.client.Close()
}
