package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/db"
)

// SessionRepository provides data access methods for refresh-token
// sessions. Every lookup goes through the token hash, never the raw
// token, so a database dump cannot be replayed directly.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new repository bound to the given DB connection.
func NewSessionRepository(database *gorm.DB) *SessionRepository {
	return &SessionRepository{db: database}
}

func (r *SessionRepository) Create(ctx context.Context, session *db.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByTokenHash returns the session for the hashed refresh token, or
// gorm.ErrRecordNotFound. Expiry is NOT checked here; the caller
// distinguishes expired from unknown.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*db.Session, error) {
	var session db.Session
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteByTokenHash removes the session for the hashed token and
// reports how many rows matched. Zero means the token was unknown.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, hash string) (int64, error) {
	res := r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&db.Session{})
	return res.RowsAffected, res.Error
}

// DeleteAllForUser removes every session belonging to the user.
// Deleting zero rows is not an error.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&db.Session{})
	return res.RowsAffected, res.Error
}

// DeleteExpired removes every session whose expiry is before now.
// Called by the sweeper; the token service never deletes on lookup.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&db.Session{})
	return res.RowsAffected, res.Error
}
