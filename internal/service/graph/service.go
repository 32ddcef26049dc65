// Package graph records like/dislike signals between users and materializes
// mutual matches.
package graph

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/oggyb/friender/internal/app"
	"github.com/oggyb/friender/internal/db"
	svcErr "github.com/oggyb/friender/internal/errors"
	"github.com/oggyb/friender/internal/metrics"
	"github.com/oggyb/friender/internal/repository"
)

// LikeResult is the stored like edge plus whether the pair is now matched.
type LikeResult struct {
	Like    db.Like
	Matched bool
}

// Profile is a user together with their outgoing signals and matches.
type Profile struct {
	User     *db.User
	Likes    []string
	Dislikes []string
	Matches  []string
}

// Manager owns like/dislike recording and match derivation.
// It keeps no state between calls; everything lives in the store.
type Manager struct {
	appCtx *app.AppContext
	rels   *repository.RelationshipRepository
	users  *repository.UserRepository
}

// NewManager creates a new graph Manager with dependencies from AppContext.
func NewManager(appCtx *app.AppContext) *Manager {
	return &Manager{
		appCtx: appCtx,
		rels:   repository.NewRelationshipRepository(appCtx.DB),
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// RecordLike stores liker -> liked.
//
// Behavior:
//   - Both usernames must exist; NotFound names the one that does not.
//   - Liking the same user twice keeps a single edge.
//   - If liked already likes liker, the match is created in the same
//     transaction and Matched is true.
//
// Example:
//
//	res, err := mgr.RecordLike(ctx, "alice", "bob")
func (m *Manager) RecordLike(ctx context.Context, liker, liked string) (*LikeResult, error) {
	m.appCtx.Logger.Debug("RecordLike called", "liker", liker, "liked", liked)

	if err := validatePair(liker, liked); err != nil {
		return nil, err
	}

	like, matched, err := m.rels.RecordLike(ctx, liker, liked)
	if err != nil {
		return nil, m.classify("record like", err)
	}

	metrics.LikesRecorded.Inc()
	if matched {
		metrics.MatchesCreated.WithLabelValues("reciprocal").Inc()
		m.appCtx.Logger.Info("match created", "first", liker, "second", liked)
	}
	return &LikeResult{Like: like, Matched: matched}, nil
}

// RecordDislike stores disliker -> disliked with the same preconditions as RecordLike.
// Dislikes never touch likes or matches.
func (m *Manager) RecordDislike(ctx context.Context, disliker, disliked string) (*db.Dislike, error) {
	m.appCtx.Logger.Debug("RecordDislike called", "disliker", disliker, "disliked", disliked)

	if err := validatePair(disliker, disliked); err != nil {
		return nil, err
	}

	dislike, err := m.rels.RecordDislike(ctx, disliker, disliked)
	if err != nil {
		return nil, m.classify("record dislike", err)
	}
	metrics.DislikesRecorded.Inc()
	return &dislike, nil
}

// CreateMatch inserts the match between userA and userB.
// It does not check that the users exist or like each other; callers decide
// that. The pair is unordered and inserting it twice is harmless.
func (m *Manager) CreateMatch(ctx context.Context, userA, userB string) (*db.Match, error) {
	m.appCtx.Logger.Debug("CreateMatch called", "a", userA, "b", userB)

	match, err := m.rels.InsertMatch(ctx, userA, userB)
	if err != nil {
		return nil, m.classify("create match", err)
	}
	metrics.MatchesCreated.WithLabelValues("explicit").Inc()
	return &match, nil
}

// MutuallyLiked reports whether userA and userB like each other. It is the
// check callers make before CreateMatch.
func (m *Manager) MutuallyLiked(ctx context.Context, userA, userB string) (bool, error) {
	ok, err := m.rels.MutualLikes(ctx, userA, userB)
	if err != nil {
		return false, m.classify("check mutual likes", err)
	}
	return ok, nil
}

// GetProfile returns the user plus who they liked, disliked and matched with.
// Lists are fetched concurrently and come back in insertion order.
func (m *Manager) GetProfile(ctx context.Context, username string) (*Profile, error) {
	m.appCtx.Logger.Debug("GetProfile called", "username", username)

	user, err := m.users.Get(ctx, username)
	if err != nil {
		return nil, m.classify("get profile", m.missing(username, err))
	}

	p := &Profile{User: user}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p.Likes, err = m.rels.Likes(gctx, username)
		return err
	})
	g.Go(func() (err error) {
		p.Dislikes, err = m.rels.Dislikes(gctx, username)
		return err
	})
	g.Go(func() (err error) {
		p.Matches, err = m.rels.Matches(gctx, username)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, m.classify("get profile", err)
	}
	return p, nil
}

// Matches returns the usernames matched with username. NotFound if the user
// does not exist.
func (m *Manager) Matches(ctx context.Context, username string) ([]string, error) {
	ok, err := m.users.Exists(ctx, username)
	if err != nil {
		return nil, m.classify("list matches", err)
	}
	if !ok {
		return nil, svcErr.NotFound("no user: %s", username)
	}

	matches, err := m.rels.Matches(ctx, username)
	if err != nil {
		return nil, m.classify("list matches", err)
	}
	return matches, nil
}

func (m *Manager) missing(username string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &repository.MissingUserError{Username: username}
	}
	return err
}

// classify turns repository errors into domain errors and logs store failures.
func (m *Manager) classify(op string, err error) error {
	if mu, ok := repository.IsMissingUser(err); ok {
		return svcErr.NotFound("no user: %s", mu.Username)
	}
	m.appCtx.Logger.Error(op+" failed", "err", err)
	return svcErr.Storage(op, err)
}

func validatePair(actor, target string) error {
	if strings.TrimSpace(actor) == "" || strings.TrimSpace(target) == "" {
		return svcErr.Validation("both usernames are required")
	}
	if actor == target {
		return svcErr.Validation("cannot decide on yourself")
	}
	return nil
}
