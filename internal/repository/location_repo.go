package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amoradev/amora/internal/db"
)

// LocationRepository provides data access for the one-to-one user location.
type LocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository creates a new repository bound to the given DB connection.
func NewLocationRepository(database *gorm.DB) *LocationRepository {
	return &LocationRepository{db: database}
}

// Upsert creates the user's location row if absent, else overwrites it.
// The user_id primary key guarantees a single row per user.
func (r *LocationRepository) Upsert(ctx context.Context, loc *db.UserLocation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "address", "updated_at"}),
		}).
		Create(loc).Error
}

func (r *LocationRepository) Get(ctx context.Context, userID uint64) (*db.UserLocation, error) {
	var loc db.UserLocation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
