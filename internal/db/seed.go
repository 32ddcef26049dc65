package db

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/friender/internal/logger"
)

// SeedTestData resets the database and populates it with demo users, likes,
// dislikes, matches and a few messages.
//
// Behavior:
//  1. Clears messages, matches, dislikes, likes and users.
//  2. Creates 20 users (user1..user20, password "password") with fake profiles.
//  3. Each user likes or dislikes ~8 others; every 3rd like is reciprocated,
//     and every reciprocal pair gets a match plus an opening message.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	faker := gofakeit.New(time.Now().UnixNano())

	if err := clearAll(db); err != nil {
		return err
	}
	logger.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	const userCount = 20
	for i := 1; i <= userCount; i++ {
		person := faker.Person()
		user := User{
			Username:     fmt.Sprintf("user%d", i),
			PasswordHash: string(hash),
			FirstName:    person.FirstName,
			LastName:     person.LastName,
			Email:        fmt.Sprintf("user%d@example.com", i),
			Age:          faker.Number(18, 60),
			Bio:          faker.Sentence(12),
			Interests:    strings.Join([]string{faker.Hobby(), faker.Hobby(), faker.Hobby()}, ","),
			ImageURL:     faker.ImageURL(300, 300),
			Location:     faker.City(),
			Radius:       faker.Number(5, 100),
			IsAdmin:      i == 1,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	logger.Info("seeded users", "count", userCount)

	counter := 0
	for a := 1; a <= userCount; a++ {
		for j := 0; j < 8; j++ {
			b := r.Intn(userCount) + 1
			if a == b {
				continue
			}
			actor, target := fmt.Sprintf("user%d", a), fmt.Sprintf("user%d", b)

			// like probability 70%
			if r.Intn(100) >= 70 {
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&Dislike{Disliker: actor, Disliked: target}).Error; err != nil {
					return fmt.Errorf("failed to seed dislike: %w", err)
				}
				continue
			}

			if err := db.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&Like{Liker: actor, Liked: target}).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				if err := seedMatch(db, faker, actor, target); err != nil {
					return err
				}
			}
			counter++
		}
	}
	logger.Info("seeded likes", "count", counter)

	return nil
}

func seedMatch(db *gorm.DB, faker *gofakeit.Faker, a, b string) error {
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Like{Liker: b, Liked: a}).Error; err != nil {
		return fmt.Errorf("failed to seed reciprocal like: %w", err)
	}
	match := NewMatch(a, b)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match).Error; err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}
	msg := Message{
		ID:           uuid.NewString(),
		FromUsername: a,
		ToUsername:   b,
		Body:         faker.Sentence(6),
		SentAt:       time.Now().UTC(),
	}
	if err := db.Omit(clause.Associations).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to seed message: %w", err)
	}
	return nil
}

func clearAll(db *gorm.DB) error {
	for _, table := range []string{"messages", "matches", "dislikes", "likes", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
