package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/friender/internal/db"
)

// UserUpdate lists the profile fields a caller intends to change. Nil fields
// are left alone. Each field maps to exactly one column in Columns.
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Age          *int
	Bio          *string
	Interests    *string
	ImageURL     *string
	Location     *string
	Radius       *int
	IsAdmin      *bool
	PasswordHash *string
}

// Columns returns the column -> value assignments for the set fields.
func (u UserUpdate) Columns() map[string]any {
	cols := map[string]any{}
	set := func(col string, ok bool, v any) {
		if ok {
			cols[col] = v
		}
	}
	set("first_name", u.FirstName != nil, deref(u.FirstName))
	set("last_name", u.LastName != nil, deref(u.LastName))
	set("email", u.Email != nil, deref(u.Email))
	set("age", u.Age != nil, deref(u.Age))
	set("bio", u.Bio != nil, deref(u.Bio))
	set("interests", u.Interests != nil, deref(u.Interests))
	set("image_url", u.ImageURL != nil, deref(u.ImageURL))
	set("location", u.Location != nil, deref(u.Location))
	set("radius", u.Radius != nil, deref(u.Radius))
	set("is_admin", u.IsAdmin != nil, deref(u.IsAdmin))
	set("password_hash", u.PasswordHash != nil, deref(u.PasswordHash))
	return cols
}

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create inserts a new user. A duplicate username surfaces as the driver's
// constraint error; callers check Exists first for a friendlier message.
func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Get returns the user or gorm.ErrRecordNotFound.
func (r *UserRepository) Get(ctx context.Context, username string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user with that username is stored.
func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// List returns up to limit users ordered by username, starting after the
// given username (exclusive). Empty after means from the beginning.
func (r *UserRepository) List(ctx context.Context, after string, limit int) ([]db.User, error) {
	var users []db.User
	q := r.db.WithContext(ctx).Order("username").Limit(limit)
	if after != "" {
		q = q.Where("username > ?", after)
	}
	err := q.Find(&users).Error
	return users, err
}

// Update applies the set fields of upd and returns the stored row.
// Returns gorm.ErrRecordNotFound when the user does not exist.
func (r *UserRepository) Update(ctx context.Context, username string, upd UserUpdate) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
			return err
		}
		cols := upd.Columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&db.User{}).Where("username = ?", username).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("username = ?", username).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes the user and everything that references them: likes and
// dislikes in both directions, matches in either column, and messages sent or
// received. Returns gorm.ErrRecordNotFound when the user does not exist.
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			model any
			where string
		}{
			{&db.Message{}, "from_username = ? OR to_username = ?"},
			{&db.Match{}, "username_first = ? OR username_second = ?"},
			{&db.Like{}, "liker = ? OR liked = ?"},
			{&db.Dislike{}, "disliker = ? OR disliked = ?"},
		}
		for _, s := range steps {
			if err := tx.Where(s.where, username, username).Delete(s.model).Error; err != nil {
				return err
			}
		}

		res := tx.Where("username = ?", username).Delete(&db.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
