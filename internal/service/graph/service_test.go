package graph_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/friender/internal/app"
	"github.com/oggyb/friender/internal/db"
	svcErr "github.com/oggyb/friender/internal/errors"
	"github.com/oggyb/friender/internal/logger"
	"github.com/oggyb/friender/internal/service/graph"
)

//
// Test helpers
//

// setupManager spins up an in-memory SQLite DB, applies migrations, seeds
// alice, bob and carol, and wires a graph Manager on top.
//
// Each test gets its own isolated DB.
func setupManager(t *testing.T) (*graph.Manager, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))
	for _, u := range []string{"alice", "bob", "carol"} {
		require.NoError(t, dbase.Create(&db.User{
			Username: u, PasswordHash: "x", FirstName: u, LastName: "Test", Email: u + "@test.com",
		}).Error)
	}

	appCtx := app.New(dbase, nil, nil, logger.Discard())
	return graph.NewManager(appCtx), dbase
}

//
// Tests
//

// TestRecordLikeAppearsOnce pins the duplicate policy: a repeated like keeps a
// single edge.
func TestRecordLikeAppearsOnce(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t)

	res, err := mgr.RecordLike(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Like.Liker)
	assert.Equal(t, "bob", res.Like.Liked)
	assert.False(t, res.Matched)

	_, err = mgr.RecordLike(ctx, "alice", "bob")
	require.NoError(t, err)

	p, err := mgr.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, p.Likes)
	assert.Empty(t, p.Matches)
	assert.Empty(t, p.Dislikes)
}

func TestRecordLikeMissingUserPersistsNothing(t *testing.T) {
	ctx := context.Background()
	mgr, dbase := setupManager(t)

	_, err := mgr.RecordLike(ctx, "ghost", "bob")
	require.Error(t, err)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
	assert.Contains(t, err.Error(), "ghost")

	_, err = mgr.RecordLike(ctx, "alice", "ghost")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
	assert.Contains(t, err.Error(), "ghost")

	_, err = mgr.RecordDislike(ctx, "alice", "phantom")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
	assert.Contains(t, err.Error(), "phantom")

	var likes, dislikes int64
	dbase.Model(&db.Like{}).Count(&likes)
	dbase.Model(&db.Dislike{}).Count(&dislikes)
	assert.Zero(t, likes)
	assert.Zero(t, dislikes)
}

func TestRecordLikeValidation(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t)

	_, err := mgr.RecordLike(ctx, "alice", "alice")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	_, err = mgr.RecordDislike(ctx, "", "bob")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))
}

func TestRecordDislike(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t)

	d, err := mgr.RecordDislike(ctx, "carol", "alice")
	require.NoError(t, err)
	assert.Equal(t, "carol", d.Disliker)

	p, err := mgr.GetProfile(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, p.Dislikes)
	assert.Empty(t, p.Likes)
}

// TestCreateMatchIsVisibleFromBothSides covers the explicit primitive.
func TestCreateMatchIsVisibleFromBothSides(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t)

	m, err := mgr.CreateMatch(ctx, "carol", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", m.UsernameFirst)
	assert.Equal(t, "carol", m.UsernameSecond)

	a, err := mgr.GetProfile(ctx, "alice")
	require.NoError(t, err)
	c, err := mgr.GetProfile(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, a.Matches)
	assert.Equal(t, []string{"alice"}, c.Matches)
}

// TestCreateMatchSkipsChecks documents that the primitive trusts its caller.
func TestCreateMatchSkipsChecks(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t)

	_, err := mgr.CreateMatch(ctx, "alice", "nobody")
	require.NoError(t, err)

	matches, err := mgr.Matches(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"nobody"}, matches)
}

// TestAliceAndBobScenario walks the reciprocal like flow end to end.
func TestAliceAndBobScenario(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t)

	res, err := mgr.RecordLike(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, res.Matched)

	res, err = mgr.RecordLike(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, res.Matched, "reverse like already present")

	// explicit match on an already matched pair changes nothing
	_, err = mgr.CreateMatch(ctx, "alice", "bob")
	require.NoError(t, err)

	a, err := mgr.GetProfile(ctx, "alice")
	require.NoError(t, err)
	b, err := mgr.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, a.Matches)
	assert.Equal(t, []string{"alice"}, b.Matches)
	assert.Equal(t, "alice@test.com", a.User.Email)
}

func TestGetProfileNotFound(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t)

	_, err := mgr.GetProfile(ctx, "ghost")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
	assert.EqualError(t, err, "no user: ghost")

	_, err = mgr.Matches(ctx, "ghost")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func TestMutuallyLiked(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setupManager(t)

	ok, err := mgr.MutuallyLiked(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = mgr.RecordLike(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = mgr.RecordLike(ctx, "bob", "alice")
	require.NoError(t, err)

	ok, err = mgr.MutuallyLiked(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}
