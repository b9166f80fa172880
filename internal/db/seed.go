package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMatchTypes is the reference catalog seeded at startup.
var DefaultMatchTypes = []string{"friend", "romantic", "business"}

// SeedCatalog idempotently seeds the match-type catalog: find-or-create
// per row, safe to run on every startup.
func SeedCatalog(db *gorm.DB) error {
	for _, name := range DefaultMatchTypes {
		mt := MatchType{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&mt).Error; err != nil {
			return fmt.Errorf("failed to seed match type %q: %w", name, err)
		}
	}
	return nil
}

// SeedTestData resets the database and populates it with demo users,
// preferences and interactions.
//
// Behavior:
//  1. Clears user-owned data (catalog rows survive, they are reference data).
//  2. Creates 20 active users with hashed passwords and random preferences.
//  3. Generates ~200 likes/dislikes with ~70% likes; every 3rd decision
//     gets a reciprocal like, and mutual likes get an active match row.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{
		"user_matches", "user_likes", "user_match_preferences",
		"user_locations", "sessions", "password_reset_links",
		"activation_links", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE user_matches AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('users', 'user_matches')")
	}

	log.Println("Cleared existing data")

	if err := SeedCatalog(db); err != nil {
		return err
	}
	var types []MatchType
	if err := db.Find(&types).Error; err != nil {
		return err
	}

	// --- Seed Users + preferences ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := User{
			Nickname:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Role:         RoleUser,
			Active:       true,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		// each user picks 1-3 match types
		picked := r.Perm(len(types))[:1+r.Intn(len(types))]
		for _, idx := range picked {
			pref := UserMatchPreference{UserID: user.ID, MatchTypeID: types[idx].ID}
			if err := db.Create(&pref).Error; err != nil {
				return fmt.Errorf("failed to seed preference: %w", err)
			}
		}
	}
	log.Println("Seeded 20 users.")

	// --- Seed likes (~200) with matches for mutual pairs ---
	upsertLike := func(likerID, likeeID uint64, status string) error {
		like := UserLike{LikerID: likerID, LikeeID: likeeID, Status: status}
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "liker_id"}, {Name: "likee_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(&like).Error
	}

	counter := 0
	for likerID := uint64(1); likerID <= 20; likerID++ {
		for j := 0; j < 12; j++ {
			likeeID := uint64(r.Intn(20) + 1)
			if likerID == likeeID {
				continue
			}

			status := StatusDislike
			if r.Intn(100) < 70 {
				status = StatusLike
			}

			// guarantee mutual likes every 3rd decision
			if counter%3 == 0 {
				status = StatusLike
				if err := upsertLike(likeeID, likerID, StatusLike); err != nil {
					return fmt.Errorf("failed to seed reciprocal like: %w", err)
				}
				u1, u2 := likerID, likeeID
				if u2 < u1 {
					u1, u2 = u2, u1
				}
				match := UserMatch{User1ID: u1, User2ID: u2, IsActive: true, MatchedAt: time.Now()}
				if err := db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
					DoNothing: true,
				}).Create(&match).Error; err != nil {
					return fmt.Errorf("failed to seed match: %w", err)
				}
			}

			if err := upsertLike(likerID, likeeID, status); err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}
			counter++
		}
	}

	return nil
}
