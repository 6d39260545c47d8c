package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"greentea/internal/domain"
)

const sessionKeyPrefix = "greentea:session:"

// SessionCache stores verified login sessions in Redis until they expire.
type SessionCache struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient connects to the Redis server at url. It returns nil when
// url is empty, meaning the cache is disabled.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client, now: time.Now}
}

type cachedSession struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

func (c *SessionCache) Get(ctx context.Context, token string) (*domain.Session, error) {
	raw, err := c.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var cs cachedSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &domain.Session{
		ID:        cs.ID,
		AccountID: cs.AccountID,
		Token:     token,
		CreatedAt: cs.CreatedAt,
		ExpiredAt: cs.ExpiredAt,
	}, nil
}

func (c *SessionCache) Set(ctx context.Context, session *domain.Session) error {
	ttl := session.ExpiredAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(cachedSession{
		ID:        session.ID,
		AccountID: session.AccountID,
		CreatedAt: session.CreatedAt,
		ExpiredAt: session.ExpiredAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.client.Set(ctx, sessionKeyPrefix+session.Token, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}
