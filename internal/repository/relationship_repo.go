package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/friender/internal/db"
)

// MissingUserError reports which username failed an existence check.
type MissingUserError struct {
	Username string
}

func (e *MissingUserError) Error() string {
	return fmt.Sprintf("no user: %s", e.Username)
}

// RelationshipRepository provides data access for likes, dislikes and matches.
type RelationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository creates a new repository bound to the given DB connection.
func NewRelationshipRepository(database *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: database}
}

// RecordLike stores liker -> liked and materializes the match when the
// reverse edge already exists.
//
// Behavior:
//   - Runs in one transaction. Both user rows are locked (FOR UPDATE, in
//     username order) so two reciprocal likes on the same pair serialize and
//     exactly one of them observes the other's edge.
//   - Each username is checked independently; a missing one yields *MissingUserError
//     naming it and nothing is written.
//   - An existing (liker, liked) row is kept as is.
//   - matched is true when the pair is mutually liked after this call.
//
// Example:
//
//	like, matched, err := repo.RecordLike(ctx, "alice", "bob")
func (r *RelationshipRepository) RecordLike(
	ctx context.Context,
	liker, liked string,
) (like db.Like, matched bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUsers(tx, liker, liked); err != nil {
			return err
		}

		like = db.Like{Liker: liker, Liked: liked}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return err
		}
		if err := tx.Where("liker = ? AND liked = ?", liker, liked).First(&like).Error; err != nil {
			return err
		}

		var reverse int64
		if err := tx.Model(&db.Like{}).
			Where("liker = ? AND liked = ?", liked, liker).
			Count(&reverse).Error; err != nil {
			return err
		}
		if reverse == 0 {
			return nil
		}

		match := db.NewMatch(liker, liked)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&match).Error; err != nil {
			return err
		}
		matched = true
		return nil
	})
	return like, matched, err
}

// RecordDislike stores disliker -> disliked with the same existence checks as RecordLike.
func (r *RelationshipRepository) RecordDislike(
	ctx context.Context,
	disliker, disliked string,
) (dislike db.Dislike, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUsers(tx, disliker, disliked); err != nil {
			return err
		}

		dislike = db.Dislike{Disliker: disliker, Disliked: disliked}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&dislike).Error; err != nil {
			return err
		}
		return tx.Where("disliker = ? AND disliked = ?", disliker, disliked).First(&dislike).Error
	})
	return dislike, err
}

// InsertMatch writes the normalized match row for a and b. No existence or
// reciprocity checks; inserting an existing pair is a no-op.
func (r *RelationshipRepository) InsertMatch(ctx context.Context, a, b string) (db.Match, error) {
	match := db.NewMatch(a, b)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&match).Error; err != nil {
			return err
		}
		return tx.Where("username_first = ? AND username_second = ?", match.UsernameFirst, match.UsernameSecond).
			First(&match).Error
	})
	return match, err
}

// Likes returns the usernames the given user liked.
func (r *RelationshipRepository) Likes(ctx context.Context, username string) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("liker = ?", username).
		Order("created_at, liked").
		Pluck("liked", &out).Error
	return out, err
}

// Dislikes returns the usernames the given user disliked.
func (r *RelationshipRepository) Dislikes(ctx context.Context, username string) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&db.Dislike{}).
		Where("disliker = ?", username).
		Order("created_at, disliked").
		Pluck("disliked", &out).Error
	return out, err
}

// Matches returns the other party of every match the user appears in,
// whichever column holds them.
func (r *RelationshipRepository) Matches(ctx context.Context, username string) ([]string, error) {
	var rows []db.Match
	err := r.db.WithContext(ctx).
		Where("username_first = ? OR username_second = ?", username, username).
		Order("created_at, username_first, username_second").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.Other(username))
	}
	return out, nil
}

// HasMatch reports whether a and b are matched.
func (r *RelationshipRepository) HasMatch(ctx context.Context, a, b string) (bool, error) {
	m := db.NewMatch(a, b)
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Match{}).
		Where("username_first = ? AND username_second = ?", m.UsernameFirst, m.UsernameSecond).
		Count(&count).Error
	return count > 0, err
}

// MutualLikes reports whether a likes b and b likes a.
func (r *RelationshipRepository) MutualLikes(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("(liker = ? AND liked = ?) OR (liker = ? AND liked = ?)", a, b, b, a).
		Count(&count).Error
	return count == 2, err
}

// lockUsers loads both users FOR UPDATE and checks each one exists.
// SQLite ignores the locking clause; its write lock already serializes transactions.
func lockUsers(tx *gorm.DB, a, b string) error {
	var found []db.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("username").
		Where("username IN ?", []string{a, b}).
		Order("username").
		Find(&found).Error; err != nil {
		return err
	}

	seen := make(map[string]bool, len(found))
	for _, u := range found {
		seen[u.Username] = true
	}
	for _, name := range []string{a, b} {
		if !seen[name] {
			return &MissingUserError{Username: name}
		}
	}
	return nil
}

// IsMissingUser unwraps a *MissingUserError.
func IsMissingUser(err error) (*MissingUserError, bool) {
	var mu *MissingUserError
	if errors.As(err, &mu) {
		return mu, true
	}
	return nil, false
}
