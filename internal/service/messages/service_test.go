package messages_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/friender/internal/app"
	"github.com/oggyb/friender/internal/auth"
	"github.com/oggyb/friender/internal/cache"
	"github.com/oggyb/friender/internal/config"
	"github.com/oggyb/friender/internal/db"
	svcErr "github.com/oggyb/friender/internal/errors"
	"github.com/oggyb/friender/internal/logger"
	"github.com/oggyb/friender/internal/service/graph"
	"github.com/oggyb/friender/internal/service/messages"
)

var (
	alice = auth.Identity{Username: "alice"}
	bob   = auth.Identity{Username: "bob"}
	carol = auth.Identity{Username: "carol"}
	admin = auth.Identity{Username: "root", IsAdmin: true}
)

type fixture struct {
	mgr   *messages.Manager
	graph *graph.Manager
	db    *gorm.DB
	redis *miniredis.Miniredis
	clock *time.Time
}

//
// Test helpers
//

// setup wires a messages Manager over in-memory SQLite and miniredis with
// users alice, bob, carol and root. alice and bob are matched through
// reciprocal likes; carol matches nobody. The clock only moves when a test
// moves it.
func setup(t *testing.T) *fixture {
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
	for _, u := range []string{"alice", "bob", "carol", "root"} {
		require.NoError(t, dbase.Create(&db.User{
			Username: u, PasswordHash: "x", FirstName: u, LastName: "Test", Email: u + "@test.com",
		}).Error)
	}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	appCtx := app.New(dbase, redisCache, nil, logger.Discard())
	appCtx.Now = func() time.Time { return clock }

	g := graph.NewManager(appCtx)
	ctx := context.Background()
	_, err = g.RecordLike(ctx, "alice", "bob")
	require.NoError(t, err)
	res, err := g.RecordLike(ctx, "bob", "alice")
	require.NoError(t, err)
	require.True(t, res.Matched)

	return &fixture{
		mgr:   messages.NewManager(appCtx, g),
		graph: g,
		db:    dbase,
		redis: mr,
		clock: &clock,
	}
}

func countMessages(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&db.Message{}).Count(&n).Error)
	return n
}

//
// Tests
//

func TestCreateMessageRequiresMatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.mgr.CreateMessage(ctx, "alice", "bob", "hey")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Nil(t, msg.ReadAt)
	assert.True(t, msg.SentAt.Equal(*f.clock))

	// matches are symmetric, so bob can answer
	_, err = f.mgr.CreateMessage(ctx, "bob", "alice", "hi!")
	require.NoError(t, err)

	_, err = f.mgr.CreateMessage(ctx, "alice", "carol", "psst")
	assert.True(t, svcErr.Is(err, svcErr.KindUnauthorized))
	assert.EqualError(t, err, "user not in matches")

	_, err = f.mgr.CreateMessage(ctx, "carol", "alice", "psst")
	assert.True(t, svcErr.Is(err, svcErr.KindUnauthorized))

	assert.Equal(t, int64(2), countMessages(t, f.db))
}

func TestCreateMessageAfterExplicitMatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.mgr.CreateMessage(ctx, "carol", "alice", "hello")
	require.Error(t, err)

	_, err = f.graph.CreateMatch(ctx, "alice", "carol")
	require.NoError(t, err)

	_, err = f.mgr.CreateMessage(ctx, "carol", "alice", "hello")
	require.NoError(t, err)
}

func TestCreateMessageValidationAndUnknownSender(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.mgr.CreateMessage(ctx, "alice", "bob", "   ")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	_, err = f.mgr.CreateMessage(ctx, "alice", "", "hi")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	_, err = f.mgr.CreateMessage(ctx, "ghost", "bob", "hi")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	assert.Zero(t, countMessages(t, f.db))
}

func TestCreateMessageToMissingRecipient(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	// the match primitive does not check users, so it can point at nobody
	_, err := f.graph.CreateMatch(ctx, "alice", "ghost")
	require.NoError(t, err)

	_, err = f.mgr.CreateMessage(ctx, "alice", "ghost", "anyone there?")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
	assert.EqualError(t, err, "no user: ghost")
	assert.Zero(t, countMessages(t, f.db))
}

func TestGetMessageOnlyForParties(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.mgr.CreateMessage(ctx, "alice", "bob", "hey")
	require.NoError(t, err)

	fromSender, err := f.mgr.GetMessage(ctx, alice, msg.ID)
	require.NoError(t, err)
	fromRecipient, err := f.mgr.GetMessage(ctx, bob, msg.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(fromSender, fromRecipient); diff != "" {
		t.Errorf("sender and recipient see different messages (-sender +recipient):\n%s", diff)
	}
	assert.Equal(t, messages.Summary{Username: "alice", FirstName: "alice", LastName: "Test", Email: "alice@test.com"}, fromSender.From)
	assert.Equal(t, "bob", fromSender.To.Username)
	assert.Equal(t, "hey", fromSender.Body)
	assert.Nil(t, fromSender.ReadAt)

	_, err = f.mgr.GetMessage(ctx, carol, msg.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindUnauthorized))

	// admins get no special access to other people's messages
	_, err = f.mgr.GetMessage(ctx, admin, msg.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindUnauthorized))

	_, err = f.mgr.GetMessage(ctx, alice, "does-not-exist")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func TestMarkReadOnceByRecipient(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	msg, err := f.mgr.CreateMessage(ctx, "alice", "bob", "hey")
	require.NoError(t, err)

	// sender cannot mark it read, and nothing changes
	_, err = f.mgr.MarkRead(ctx, alice, msg.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindUnauthorized))
	d, err := f.mgr.GetMessage(ctx, alice, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, d.ReadAt)

	*f.clock = f.clock.Add(time.Minute)
	first := *f.clock
	rr, err := f.mgr.MarkRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.True(t, rr.ReadAt.Equal(first))

	*f.clock = f.clock.Add(time.Hour)
	rr, err = f.mgr.MarkRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.True(t, rr.ReadAt.Equal(first), "second call must not move read_at, got %v", rr.ReadAt)

	d, err = f.mgr.GetMessage(ctx, bob, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, d.ReadAt)
	assert.True(t, d.ReadAt.Equal(first))

	_, err = f.mgr.MarkRead(ctx, bob, "nope")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func TestCountUnreadTracksWrites(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	n, err := f.mgr.CountUnread(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, f.redis.Exists("messages:unread:bob"), "count is cached")

	m1, err := f.mgr.CreateMessage(ctx, "alice", "bob", "one")
	require.NoError(t, err)
	_, err = f.mgr.CreateMessage(ctx, "alice", "bob", "two")
	require.NoError(t, err)
	assert.False(t, f.redis.Exists("messages:unread:bob"), "create invalidates")

	n, err = f.mgr.CountUnread(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.mgr.MarkRead(ctx, bob, m1.ID)
	require.NoError(t, err)

	n, err = f.mgr.CountUnread(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// served from cache
	cached, err := f.redis.Get("messages:unread:bob")
	require.NoError(t, err)
	assert.Equal(t, "1", cached)
}

func TestCountUnreadFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.mgr.CreateMessage(ctx, "alice", "bob", "one")
	require.NoError(t, err)

	f.redis.Close()
	n, err := f.mgr.CountUnread(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

type stubMatches []string

func (s stubMatches) Matches(context.Context, string) ([]string, error) { return s, nil }

// TestStoreFailureIsStorageError checks that driver failures are reported as
// Storage, not as a domain error.
func TestStoreFailureIsStorageError(t *testing.T) {
	ctx := context.Background()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	mgr := messages.NewManager(app.New(gdb, nil, nil, logger.Discard()), stubMatches{"bob"})

	boom := stderrors.New("connection reset by peer")
	mock.ExpectQuery("SELECT \\* FROM `messages`").WillReturnError(boom)
	_, err = mgr.GetMessage(ctx, alice, "m1")
	assert.True(t, svcErr.Is(err, svcErr.KindStorage))
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO `messages`").WillReturnError(boom)
	_, err = mgr.CreateMessage(ctx, "alice", "bob", "hi")
	assert.True(t, svcErr.Is(err, svcErr.KindStorage))

	assert.NoError(t, mock.ExpectationsWereMet())
}
