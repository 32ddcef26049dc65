package app

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/friender/internal/auth"
	"github.com/oggyb/friender/internal/cache"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache // optional; nil disables counter caching
	Tokens     *auth.TokenManager
	Logger     *slog.Logger

	BcryptCost int
	Now        func() time.Time
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, tokens *auth.TokenManager, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Tokens:     tokens,
		Logger:     logger,
		BcryptCost: bcrypt.DefaultCost,
		Now:        UTCMillis,
	}
}

// UTCMillis is the default clock. Millisecond precision matches what the
// stores keep, so timestamps survive a round trip unchanged.
func UTCMillis() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
