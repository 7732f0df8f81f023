package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrSessionExpired = errors.New("session expired")

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

// GetSession returns the session behind the given token, or
// ErrSessionExpired if the session outlived the configured TTL
func (lc *LoginChecker) GetSession(ctx context.Context, token string) (*Session, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := lc.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(cmd.Val()), &session); err != nil {
		return nil, err
	}

	createdAt := time.Unix(session.CreatedAt, 0)
	if time.Since(createdAt) > lc.ttl {
		return nil, ErrSessionExpired
	}

	return &session, nil
}

func (lc *LoginChecker) IsLogged(ctx context.Context, token string) (bool, error) {
	session, err := lc.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return false, nil
		}
		return false, err
	}
	return session != nil, nil
}
