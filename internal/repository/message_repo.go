package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/friender/internal/db"
)

// MessageRepository provides data access methods for the Message model.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create inserts msg as is. The FromUser/ToUser associations are never written.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error
}

// Get returns the bare message row or gorm.ErrRecordNotFound.
func (r *MessageRepository) Get(ctx context.Context, id string) (*db.Message, error) {
	var msg db.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetWithUsers is Get with FromUser and ToUser loaded.
func (r *MessageRepository) GetWithUsers(ctx context.Context, id string) (*db.Message, error) {
	var msg db.Message
	err := r.db.WithContext(ctx).
		Preload("FromUser").
		Preload("ToUser").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead sets read_at = at only while it is still NULL.
//
// Behavior:
//   - Single conditional UPDATE, so concurrent duplicate calls cannot
//     overwrite an earlier timestamp.
//   - changed is false when the message was already read (or does not exist).
//   - Returns the read_at value stored after the update.
func (r *MessageRepository) MarkRead(ctx context.Context, id string, at time.Time) (readAt time.Time, changed bool, err error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at)
	if res.Error != nil {
		return time.Time{}, false, res.Error
	}

	msg, err := r.Get(ctx, id)
	if err != nil {
		return time.Time{}, false, err
	}
	if msg.ReadAt == nil {
		return time.Time{}, false, gorm.ErrRecordNotFound
	}
	return *msg.ReadAt, res.RowsAffected > 0, nil
}

// CountUnread counts messages addressed to username that are still unread.
func (r *MessageRepository) CountUnread(ctx context.Context, username string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("to_username = ? AND read_at IS NULL", username).
		Count(&count).Error
	return count, err
}
