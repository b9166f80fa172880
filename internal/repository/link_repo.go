package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/db"
)

// LinkRepository provides data access for transient credential links:
// password resets and account activations. Lookups use the token hash,
// same policy as sessions.
type LinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new repository bound to the given DB connection.
func NewLinkRepository(database *gorm.DB) *LinkRepository {
	return &LinkRepository{db: database}
}

func (r *LinkRepository) CreateResetLink(ctx context.Context, link *db.PasswordResetLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *LinkRepository) FindResetLinkByHash(ctx context.Context, hash string) (*db.PasswordResetLink, error) {
	var link db.PasswordResetLink
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepository) DeleteResetLink(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.PasswordResetLink{}, id).Error
}

func (r *LinkRepository) CreateActivationLink(ctx context.Context, link *db.ActivationLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *LinkRepository) FindActivationLinkByHash(ctx context.Context, hash string) (*db.ActivationLink, error) {
	var link db.ActivationLink
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepository) DeleteActivationLink(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.ActivationLink{}, id).Error
}

// DeleteExpiredResetLinks removes reset links whose expiry is in the past.
func (r *LinkRepository) DeleteExpiredResetLinks(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&db.PasswordResetLink{})
	return res.RowsAffected, res.Error
}

// ListStaleAccountIDs returns ids of users that never activated within
// the allowed window: the activation link expired and the account is
// still inactive.
func (r *LinkRepository) ListStaleAccountIDs(ctx context.Context, now time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("activation_links al").
		Joins("JOIN users u ON u.id = al.user_id").
		Where("al.expires_at < ? AND u.active = ?", now, false).
		Pluck("al.user_id", &ids).Error
	return ids, err
}

// DeleteStaleAccounts hard-deletes every never-activated expired user
// together with the rows they own. Each user is removed in its own
// transaction so one failure does not abort the whole sweep.
func (r *LinkRepository) DeleteStaleAccounts(ctx context.Context, now time.Time) (int64, error) {
	ids, err := r.ListStaleAccountIDs(ctx, now)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, id := range ids {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return deleteOwnedRows(tx, id)
		})
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
