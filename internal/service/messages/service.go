// Package messages creates direct messages between matched users and manages
// their read state.
package messages

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/friender/internal/app"
	"github.com/oggyb/friender/internal/auth"
	"github.com/oggyb/friender/internal/db"
	svcErr "github.com/oggyb/friender/internal/errors"
	"github.com/oggyb/friender/internal/metrics"
	"github.com/oggyb/friender/internal/repository"
)

// MatchLister is the slice of the graph Manager this package needs.
type MatchLister interface {
	Matches(ctx context.Context, username string) ([]string, error)
}

// Summary is the contact card shown for each end of a message.
type Summary struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// Detail is a message with both endpoints expanded.
type Detail struct {
	ID     string
	Body   string
	SentAt time.Time
	ReadAt *time.Time
	From   Summary
	To     Summary
}

// ReadReceipt reports when a message was read.
type ReadReceipt struct {
	ID     string
	ReadAt time.Time
}

// Manager owns message creation, retrieval and read state.
// Every operation takes the caller explicitly and checks it against the
// stored message or the current match graph.
type Manager struct {
	appCtx  *app.AppContext
	matches MatchLister
	msgs    *repository.MessageRepository
	users   *repository.UserRepository
}

// NewManager creates a new messages Manager. matches is normally the graph Manager.
func NewManager(appCtx *app.AppContext, matches MatchLister) *Manager {
	return &Manager{
		appCtx:  appCtx,
		matches: matches,
		msgs:    repository.NewMessageRepository(appCtx.DB),
		users:   repository.NewUserRepository(appCtx.DB),
	}
}

// CreateMessage sends body from sender to recipient.
//
// Behavior:
//   - body must not be blank.
//   - recipient must be in the sender's current match list, else Unauthorized.
//   - NotFound if the sender or the recipient does not exist.
//   - Stored with a fresh id, sent_at = now and read_at = NULL.
//
// Example:
//
//	msg, err := mgr.CreateMessage(ctx, "alice", "bob", "hey")
func (m *Manager) CreateMessage(ctx context.Context, sender, recipient, body string) (*db.Message, error) {
	m.appCtx.Logger.Debug("CreateMessage called", "from", sender, "to", recipient)

	if strings.TrimSpace(recipient) == "" {
		return nil, svcErr.Validation("to_username is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, svcErr.Validation("body is required")
	}

	matches, err := m.matches.Matches(ctx, sender)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(matches, recipient) {
		return nil, svcErr.Unauthorized("user not in matches")
	}
	// matches are not tied to user rows, so the recipient is checked on its own
	ok, err := m.users.Exists(ctx, recipient)
	if err != nil {
		return nil, m.storage("create message", err)
	}
	if !ok {
		return nil, svcErr.NotFound("no user: %s", recipient)
	}

	msg := &db.Message{
		ID:           uuid.NewString(),
		FromUsername: sender,
		ToUsername:   recipient,
		Body:         body,
		SentAt:       m.appCtx.Now(),
	}
	if err := m.msgs.Create(ctx, msg); err != nil {
		return nil, m.storage("create message", err)
	}

	metrics.MessagesSent.Inc()
	m.invalidateUnread(ctx, recipient)
	return msg, nil
}

// GetMessage returns the message with both endpoints expanded.
// Only its sender or recipient may read it; anyone else gets Unauthorized.
func (m *Manager) GetMessage(ctx context.Context, caller auth.Identity, id string) (*Detail, error) {
	m.appCtx.Logger.Debug("GetMessage called", "caller", caller.Username, "id", id)

	msg, err := m.msgs.GetWithUsers(ctx, id)
	if err != nil {
		return nil, m.lookup(id, err)
	}
	if caller.Username != msg.FromUsername && caller.Username != msg.ToUsername {
		return nil, svcErr.Unauthorized("not a party to this message")
	}

	return &Detail{
		ID:     msg.ID,
		Body:   msg.Body,
		SentAt: msg.SentAt,
		ReadAt: msg.ReadAt,
		From:   summarize(msg.FromUsername, msg.FromUser),
		To:     summarize(msg.ToUsername, msg.ToUser),
	}, nil
}

// MarkRead records that the recipient has read the message.
//
// Behavior:
//   - Only the recipient may call it; anyone else gets Unauthorized and the
//     message is untouched.
//   - The first call sets read_at; later calls return that same timestamp.
func (m *Manager) MarkRead(ctx context.Context, caller auth.Identity, id string) (*ReadReceipt, error) {
	m.appCtx.Logger.Debug("MarkRead called", "caller", caller.Username, "id", id)

	msg, err := m.msgs.Get(ctx, id)
	if err != nil {
		return nil, m.lookup(id, err)
	}
	if caller.Username != msg.ToUsername {
		return nil, svcErr.Unauthorized("only the recipient can mark a message read")
	}
	if msg.ReadAt != nil {
		return &ReadReceipt{ID: msg.ID, ReadAt: *msg.ReadAt}, nil
	}

	readAt, changed, err := m.msgs.MarkRead(ctx, id, m.appCtx.Now())
	if err != nil {
		return nil, m.lookup(id, err)
	}
	if changed {
		metrics.MessagesRead.Inc()
		m.invalidateUnread(ctx, msg.ToUsername)
	}
	return &ReadReceipt{ID: msg.ID, ReadAt: readAt}, nil
}

// CountUnread returns how many messages addressed to the caller are unread.
// Cache-first strategy:
//  1. Attempts to read from Redis (messages:unread:<username>).
//  2. On a miss or cache error, counts in the DB.
//  3. Stores the DB count with a 1h TTL.
//
// Writes that change the count delete the key instead of adjusting it.
func (m *Manager) CountUnread(ctx context.Context, caller auth.Identity) (int64, error) {
	m.appCtx.Logger.Debug("CountUnread called", "caller", caller.Username)

	rc := m.appCtx.RedisCache
	var key string
	if rc != nil {
		key = rc.KeyForUnreadCount(caller.Username)
		n, ok, err := rc.GetCounter(ctx, key)
		if err != nil {
			metrics.CacheErrors.WithLabelValues("get").Inc()
			m.appCtx.Logger.Warn("unread cache read failed", "err", err)
		} else if ok {
			return n, nil
		}
	}

	n, err := m.msgs.CountUnread(ctx, caller.Username)
	if err != nil {
		return 0, m.storage("count unread", err)
	}

	if rc != nil {
		if err := rc.SetCounter(ctx, key, n); err != nil {
			metrics.CacheErrors.WithLabelValues("set").Inc()
		}
	}
	return n, nil
}

func (m *Manager) invalidateUnread(ctx context.Context, username string) {
	rc := m.appCtx.RedisCache
	if rc == nil {
		return
	}
	if err := rc.Del(ctx, rc.KeyForUnreadCount(username)); err != nil {
		metrics.CacheErrors.WithLabelValues("del").Inc()
		m.appCtx.Logger.Warn("unread cache invalidation failed", "username", username, "err", err)
	}
}

func (m *Manager) lookup(id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("no message: %s", id)
	}
	return m.storage("get message", err)
}

func (m *Manager) storage(op string, err error) error {
	m.appCtx.Logger.Error(op+" failed", "err", err)
	return svcErr.Storage(op, err)
}

func summarize(username string, u db.User) Summary {
	// a dangling reference still reports the stored username
	return Summary{
		Username:  username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}
