package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginChecker_GetSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	loginChecker := NewLoginChecker(time.Hour, db)
	require.NotNil(t, loginChecker)

	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	session, err := loginChecker.GetSession(ctx, "invalid token")
	require.Equal(t, "redis: nil", err.Error())
	assert.Nil(t, session)

	testToken := "test-token"
	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken

	mock.ExpectGet(sessionKey).SetVal(sessionJson(t, 42, now))
	session, err = loginChecker.GetSession(ctx, testToken)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, 42, session.UserID)

	// session older than the TTL
	mock.ExpectGet(sessionKey).SetVal(sessionJson(t, 42, now.Add(-2*time.Hour)))
	session, err = loginChecker.GetSession(ctx, testToken)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Nil(t, session)

	// garbage in redis
	mock.ExpectGet(sessionKey).SetVal("not json")
	session, err = loginChecker.GetSession(ctx, testToken)
	var jsonErr *json.SyntaxError
	assert.ErrorAs(t, err, &jsonErr)
	assert.Nil(t, session)
}

func TestLoginChecker_IsLogged(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	loginChecker := NewLoginChecker(time.Hour, db)
	require.NotNil(t, loginChecker)

	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	isLogged, err := loginChecker.IsLogged(ctx, "invalid token")
	require.Equal(t, "redis: nil", err.Error())
	assert.False(t, isLogged)

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	isLogged, err = loginChecker.IsLogged(ctx, "invalid token")
	require.Equal(t, "redis: nil", err.Error())
	assert.False(t, isLogged) // idempotent

	testToken := "test-token"
	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken

	mock.ExpectGet(sessionKey).SetVal(sessionJson(t, 1, now))
	isLogged, err = loginChecker.IsLogged(ctx, testToken)
	require.NoError(t, err)
	assert.True(t, isLogged)

	// expired session is not an error, just not logged
	mock.ExpectGet(sessionKey).SetVal(sessionJson(t, 1, now.Add(-2*time.Hour)))
	isLogged, err = loginChecker.IsLogged(ctx, testToken)
	require.NoError(t, err)
	assert.False(t, isLogged)
}
