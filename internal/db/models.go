package db

import (
	"time"
)

// User table. Username is the natural key every edge references.
type User struct {
	Username     string `gorm:"primaryKey;size:64"`
	PasswordHash string `gorm:"size:255;not null"`
	FirstName    string `gorm:"size:64;not null"`
	LastName     string `gorm:"size:64;not null"`
	Email        string `gorm:"size:128;not null"`
	Age          int
	Bio          string `gorm:"type:text"`
	Interests    string `gorm:"type:text"`
	ImageURL     string `gorm:"size:512"`
	Location     string `gorm:"size:128"`
	Radius       int
	IsAdmin      bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Like is a directed affinity edge liker -> liked.
//
// Composite PK: (Liker, Liked)
//   - At most one row per ordered pair; re-liking is a no-op.
//
// Indexes:
//   - idx_likes_liked(liked) serves the reverse-edge lookup in mutual like checks
//     and cascade deletes.
type Like struct {
	Liker     string    `gorm:"primaryKey;size:64"`
	Liked     string    `gorm:"primaryKey;size:64;index:idx_likes_liked"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Dislike mirrors Like. The two edge sets are independent.
type Dislike struct {
	Disliker  string    `gorm:"primaryKey;size:64"`
	Disliked  string    `gorm:"primaryKey;size:64;index:idx_dislikes_disliked"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Match is an undirected pair stored with UsernameFirst < UsernameSecond.
// Use NewMatch to build one so both orderings land on the same row.
type Match struct {
	UsernameFirst  string    `gorm:"primaryKey;size:64"`
	UsernameSecond string    `gorm:"primaryKey;size:64;index:idx_matches_second"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// NewMatch normalizes the pair ordering.
func NewMatch(a, b string) Match {
	if b < a {
		a, b = b, a
	}
	return Match{UsernameFirst: a, UsernameSecond: b}
}

// Other returns the party of the match that is not username.
func (m Match) Other(username string) string {
	if m.UsernameFirst == username {
		return m.UsernameSecond
	}
	return m.UsernameFirst
}

// Message is a direct message inside a match.
// ReadAt is nil until the recipient marks it read and never changes after.
type Message struct {
	ID           string     `gorm:"primaryKey;size:36"`
	FromUsername string     `gorm:"size:64;not null;index:idx_messages_from"`
	ToUsername   string     `gorm:"size:64;not null;index:idx_messages_to_read,priority:1"`
	Body         string     `gorm:"type:text;not null"`
	SentAt       time.Time  `gorm:"not null"`
	ReadAt       *time.Time `gorm:"index:idx_messages_to_read,priority:2"`

	FromUser User `gorm:"foreignKey:FromUsername;references:Username"`
	ToUser   User `gorm:"foreignKey:ToUsername;references:Username"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&User{}, &Like{}, &Dislike{}, &Match{}, &Message{}}
}
