package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oggyb/friender/internal/config"
)

func newManager(t *testing.T, secret string) *TokenManager {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = secret
	cfg.Auth.TokenTTL = time.Hour
	tm, err := NewTokenManager(cfg)
	require.NoError(t, err)
	return tm
}

func TestIssueAndParse(t *testing.T) {
	tm := newManager(t, "s3cret")

	token, err := tm.Issue(Identity{Username: "alice", IsAdmin: true})
	require.NoError(t, err)

	id, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Username: "alice", IsAdmin: true}, id)
}

func TestParseRejects(t *testing.T) {
	tm := newManager(t, "s3cret")
	token, err := tm.Issue(Identity{Username: "alice"})
	require.NoError(t, err)

	_, err = newManager(t, "other").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = tm.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManagerNeedsSecret(t *testing.T) {
	_, err := NewTokenManager(&config.Config{})
	assert.Error(t, err)
}

func TestCanActAs(t *testing.T) {
	assert.True(t, Identity{Username: "a"}.CanActAs("a"))
	assert.False(t, Identity{Username: "a"}.CanActAs("b"))
	assert.True(t, Identity{Username: "root", IsAdmin: true}.CanActAs("b"))
}

func TestUnaryInterceptor(t *testing.T) {
	tm := newManager(t, "s3cret")
	icpt := UnaryInterceptor(tm, "/svc/Public")

	var got Identity
	handler := func(ctx context.Context, req any) (any, error) {
		got, _ = FromContext(ctx)
		return "ok", nil
	}

	// public method without token
	_, err := icpt(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Public"}, handler)
	require.NoError(t, err)

	// private method without token
	_, err = icpt(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Private"}, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := tm.Issue(Identity{Username: "bob"})
	require.NoError(t, err)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	_, err = icpt(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Private"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
}
