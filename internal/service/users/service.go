// Package users handles registration, login and profile maintenance. It is
// the local identity provider: successful logins return a signed token that
// the auth interceptor later turns back into an auth.Identity.
package users

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/friender/internal/app"
	"github.com/oggyb/friender/internal/auth"
	"github.com/oggyb/friender/internal/db"
	svcErr "github.com/oggyb/friender/internal/errors"
	"github.com/oggyb/friender/internal/repository"
	"github.com/oggyb/friender/internal/utils/pagination"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Registration is the data a new user signs up with.
type Registration struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Age       int
	Bio       string
	Interests string
	ImageURL  string
	Location  string
	Radius    int
}

// ProfileUpdate lists the fields to change; nil means keep.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	Age       *int
	Bio       *string
	Interests *string
	ImageURL  *string
	Location  *string
	Radius    *int
	IsAdmin   *bool
}

// Service implements user registration and maintenance on top of the user repository.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
}

// NewService creates a new users Service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// Register creates the user and returns it with a login token.
// Duplicate usernames are a Conflict. New users are never admins.
func (s *Service) Register(ctx context.Context, reg Registration) (*db.User, string, error) {
	s.appCtx.Logger.Debug("Register called", "username", reg.Username)

	if err := validateRegistration(reg); err != nil {
		return nil, "", err
	}

	exists, err := s.users.Exists(ctx, reg.Username)
	if err != nil {
		return nil, "", s.storage("register", err)
	}
	if exists {
		return nil, "", svcErr.Conflict("duplicate username: %s", reg.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.appCtx.BcryptCost)
	if err != nil {
		return nil, "", svcErr.Validation("unusable password: %v", err)
	}

	user := &db.User{
		Username:     reg.Username,
		PasswordHash: string(hash),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Email:        reg.Email,
		Age:          reg.Age,
		Bio:          reg.Bio,
		Interests:    reg.Interests,
		ImageURL:     reg.ImageURL,
		Location:     reg.Location,
		Radius:       reg.Radius,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", svcErr.Conflict("duplicate username: %s", reg.Username)
		}
		return nil, "", s.storage("register", err)
	}

	token, err := s.appCtx.Tokens.Issue(auth.Identity{Username: user.Username, IsAdmin: user.IsAdmin})
	if err != nil {
		return nil, "", s.storage("issue token", err)
	}
	s.appCtx.Logger.Info("user registered", "username", user.Username)
	return user, token, nil
}

// Authenticate checks username/password and returns a token.
// Unknown users and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	s.appCtx.Logger.Debug("Authenticate called", "username", username)

	user, err := s.users.Get(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", s.storage("authenticate", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", svcErr.Unauthorized("invalid username/password")
	}

	token, err := s.appCtx.Tokens.Issue(auth.Identity{Username: user.Username, IsAdmin: user.IsAdmin})
	if err != nil {
		return "", s.storage("issue token", err)
	}
	return token, nil
}

// Get returns the stored user. NotFound if missing.
func (s *Service) Get(ctx context.Context, username string) (*db.User, error) {
	user, err := s.users.Get(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("no user: %s", username)
	}
	if err != nil {
		return nil, s.storage("get user", err)
	}
	return user, nil
}

// List returns one page of users ordered by username and the token for the
// next page ("" when there is none).
func (s *Service) List(ctx context.Context, pageToken string, limit int) ([]db.User, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	cursor, err := pagination.Decode(pageToken)
	if err != nil {
		return nil, "", svcErr.Validation("%v", err)
	}

	users, err := s.users.List(ctx, cursor.After, limit+1)
	if err != nil {
		return nil, "", s.storage("list users", err)
	}

	users, next := pagination.Page(users, limit, func(u db.User) string { return u.Username })
	return users, next, nil
}

// Update changes the given fields of username's profile.
// The caller must be that user or an admin, and only admins may change IsAdmin.
func (s *Service) Update(ctx context.Context, caller auth.Identity, username string, upd ProfileUpdate) (*db.User, error) {
	s.appCtx.Logger.Debug("Update called", "caller", caller.Username, "username", username)

	if !caller.CanActAs(username) {
		return nil, svcErr.Unauthorized("cannot update %s", username)
	}
	if upd.IsAdmin != nil && !caller.IsAdmin {
		return nil, svcErr.Unauthorized("only admins may change admin status")
	}
	for field, v := range map[string]*string{"first_name": upd.FirstName, "last_name": upd.LastName, "email": upd.Email} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return nil, svcErr.Validation("%s cannot be blank", field)
		}
	}

	cols := repository.UserUpdate{
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
		Email:     upd.Email,
		Age:       upd.Age,
		Bio:       upd.Bio,
		Interests: upd.Interests,
		ImageURL:  upd.ImageURL,
		Location:  upd.Location,
		Radius:    upd.Radius,
		IsAdmin:   upd.IsAdmin,
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return nil, svcErr.Validation("password cannot be blank")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), s.appCtx.BcryptCost)
		if err != nil {
			return nil, svcErr.Validation("unusable password: %v", err)
		}
		h := string(hash)
		cols.PasswordHash = &h
	}

	user, err := s.users.Update(ctx, username, cols)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("no user: %s", username)
	}
	if err != nil {
		return nil, s.storage("update user", err)
	}
	return user, nil
}

// Remove deletes username together with their likes, dislikes, matches and
// messages. Same authorization as Update.
func (s *Service) Remove(ctx context.Context, caller auth.Identity, username string) error {
	s.appCtx.Logger.Debug("Remove called", "caller", caller.Username, "username", username)

	if !caller.CanActAs(username) {
		return svcErr.Unauthorized("cannot remove %s", username)
	}

	err := s.users.Delete(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("no user: %s", username)
	}
	if err != nil {
		return s.storage("remove user", err)
	}
	s.appCtx.Logger.Info("user removed", "username", username, "by", caller.Username)
	return nil
}

func (s *Service) storage(op string, err error) error {
	s.appCtx.Logger.Error(op+" failed", "err", err)
	return svcErr.Storage(op, err)
}

func validateRegistration(reg Registration) error {
	required := []struct{ name, value string }{
		{"username", reg.Username},
		{"password", reg.Password},
		{"first_name", reg.FirstName},
		{"last_name", reg.LastName},
		{"email", reg.Email},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return svcErr.Validation("%s is required", f.name)
		}
	}
	if len(reg.Username) > 64 {
		return svcErr.Validation("username is longer than 64 characters")
	}
	if !strings.Contains(reg.Email, "@") {
		return svcErr.Validation("email is invalid")
	}
	return nil
}
