package db

import (
	"time"
)

// Like statuses stored on UserLike rows.
const (
	StatusLike    = "LIKE"
	StatusDislike = "DISLIKE"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User table. Root aggregate: sessions, likes, matches, preferences,
// location and pending links all hang off a user and are removed with it.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Nickname     string    `gorm:"uniqueIndex;size:64;not null"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:16;not null;default:user"`
	Active       bool      `gorm:"default:false"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Session is a persisted refresh-token record. Only the SHA-256 hash of
// the raw token is stored; presenting an unknown hash is an error.
type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// MatchType is static reference data (friend/romantic/business),
// seeded once at startup and never user-mutated.
type MatchType struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;size:32;not null"`
}

// UserMatchPreference joins a user to the match types they are open to.
// Updates are full replacements: delete all rows for the user, reinsert.
type UserMatchPreference struct {
	UserID      uint64 `gorm:"primaryKey"`
	MatchTypeID uint64 `gorm:"primaryKey;index"`
}

// UserLike represents a directional like/dislike decision.
//
// Composite PK: (LikerID, LikeeID)
//   - Ensures a single row per ordered pair (overwrite guarantee).
//
// Indexes:
//   - idx_likee_status(likee_id, status)
//     Optimizes "who liked me" lists and reverse-like lookups.
//
// Status transitions are free-form; LIKE and DISLIKE overwrite each
// other in place any number of times.
type UserLike struct {
	LikerID   uint64    `gorm:"primaryKey"`
	LikeeID   uint64    `gorm:"primaryKey;index:idx_likee_status,priority:1"`
	Status    string    `gorm:"size:8;not null;index:idx_likee_status,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// UserMatch is the undirected mutual-like edge. The pair is stored
// canonically with User1ID < User2ID, and the unique index on the pair
// guarantees at most one row per unordered pair even under concurrent
// opposite-direction likes.
type UserMatch struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	User1ID   uint64    `gorm:"uniqueIndex:idx_match_pair,priority:1;index;not null"`
	User2ID   uint64    `gorm:"uniqueIndex:idx_match_pair,priority:2;index;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	MatchedAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// OtherUser returns the id of the match participant that is not userID.
func (m *UserMatch) OtherUser(userID uint64) uint64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// UserLocation is one-to-one with User and upserted, never duplicated.
type UserLocation struct {
	UserID    uint64    `gorm:"primaryKey"`
	Latitude  float64   `gorm:"not null"`
	Longitude float64   `gorm:"not null"`
	Address   string    `gorm:"size:255"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// PasswordResetLink is a transient forgot-password credential.
// Expired rows are removed by the sweeper, not on use.
type PasswordResetLink struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// ActivationLink gates account activation. A user whose link expired
// without being used is hard-deleted by the sweeper.
type ActivationLink struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"uniqueIndex;not null"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
