package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tvpanel/tvpanel/internal/security"
)

// DefaultRedisKeyPrefix namespaces session keys.
const DefaultRedisKeyPrefix = "tvpanel:session:"

// RedisStore keeps sessions in redis; expiry is enforced with key TTLs.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore constructs a RedisStore. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

type redisSession struct {
	AdminID   uint64    `json:"admin_id"`
	Username  string    `json:"username"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *RedisStore) key(token string) string {
	return s.prefix + security.HashToken(token)
}

// Create stores a new session and returns its token.
func (s *RedisStore) Create(ctx context.Context, p Principal, expiresAt time.Time, meta Meta) (string, error) {
	if !p.Valid() {
		return "", ErrInvalidPrincipal
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return "", fmt.Errorf("session: expiry %s is in the past", expiresAt)
	}
	token, err := security.NewSessionToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(redisSession{
		AdminID:   p.AdminID,
		Username:  p.Username,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	if errSet := s.client.Set(ctx, s.key(token), payload, ttl).Err(); errSet != nil {
		return "", fmt.Errorf("session: redis set: %w", errSet)
	}
	return token, nil
}

// Lookup resolves a token to its principal.
func (s *RedisStore) Lookup(ctx context.Context, token string) (Principal, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, false, nil
	}
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Principal{}, false, nil
		}
		return Principal{}, false, fmt.Errorf("session: redis get: %w", err)
	}
	var stored redisSession
	if errDecode := json.Unmarshal(raw, &stored); errDecode != nil {
		return Principal{}, false, fmt.Errorf("session: corrupted redis session: %w", errDecode)
	}
	p := Principal{AdminID: stored.AdminID, Username: stored.Username}
	return p, p.Valid(), nil
}

// Revoke deletes a session. Unknown tokens are ignored.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if errDel := s.client.Del(ctx, s.key(token)).Err(); errDel != nil {
		return fmt.Errorf("session: redis del: %w", errDel)
	}
	return nil
}
