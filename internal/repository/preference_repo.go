package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/db"
)

// PreferenceRepository provides data access for the match-type catalog
// and the user's chosen preferences.
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new repository bound to the given DB connection.
func NewPreferenceRepository(database *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: database}
}

// ListCatalog returns the full match-type catalog.
func (r *PreferenceRepository) ListCatalog(ctx context.Context) ([]db.MatchType, error) {
	var types []db.MatchType
	err := r.db.WithContext(ctx).Order("id").Find(&types).Error
	return types, err
}

// CountCatalogByIDs reports how many of the given ids exist in the
// catalog. Used to validate a preference list before replacing.
func (r *PreferenceRepository) CountCatalogByIDs(ctx context.Context, ids []uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.MatchType{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// ListTypeIDs returns the match-type ids the user has chosen.
func (r *PreferenceRepository) ListTypeIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.UserMatchPreference{}).
		Where("user_id = ?", userID).
		Pluck("match_type_id", &ids).Error
	return ids, err
}

// ListTypes returns the catalog rows the user has chosen.
func (r *PreferenceRepository) ListTypes(ctx context.Context, userID uint64) ([]db.MatchType, error) {
	var types []db.MatchType
	err := r.db.WithContext(ctx).
		Table("match_types mt").
		Joins("JOIN user_match_preferences p ON p.match_type_id = mt.id").
		Where("p.user_id = ?", userID).
		Order("mt.id").
		Find(&types).Error
	return types, err
}

// Replace swaps the user's entire preference set: delete all existing
// rows, reinsert the new ones, inside one transaction. Full replace,
// never diffed.
func (r *PreferenceRepository) Replace(ctx context.Context, userID uint64, matchTypeIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&db.UserMatchPreference{}).Error; err != nil {
			return err
		}
		if len(matchTypeIDs) == 0 {
			return nil
		}
		prefs := make([]db.UserMatchPreference, 0, len(matchTypeIDs))
		for _, id := range matchTypeIDs {
			prefs = append(prefs, db.UserMatchPreference{UserID: userID, MatchTypeID: id})
		}
		return tx.Create(&prefs).Error
	})
}

// ListCandidateIDs returns ids of active users other than userID that
// share at least one of the given match types. Set-intersection
// semantics: any shared type counts.
func (r *PreferenceRepository) ListCandidateIDs(ctx context.Context, userID uint64, typeIDs []uint64) ([]uint64, error) {
	if len(typeIDs) == 0 {
		return nil, nil
	}
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("users u").
		Joins("JOIN user_match_preferences p ON p.user_id = u.id").
		Where("p.match_type_id IN ?", typeIDs).
		Where("u.id <> ? AND u.active = ?", userID, true).
		Distinct().
		Pluck("u.id", &ids).Error
	return ids, err
}
