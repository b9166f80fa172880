package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amoradev/amora/internal/db"
)

// MatchRepository provides data access methods for the UserMatch model.
// All lookups address a pair through its canonical key (smaller id
// first) so the unique pair index holds for unordered pairs.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
// Pass a transaction handle to scope all methods to that transaction.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CanonicalPair orders two user ids into the canonical (smaller, larger) key.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// FindByPair returns the match row for the unordered pair {a, b},
// active or not, or gorm.ErrRecordNotFound.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (*db.UserMatch, error) {
	u1, u2 := CanonicalPair(a, b)
	var match db.UserMatch
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&match).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// CreateIfAbsent inserts a new active match for the pair and returns the
// row that ends up in the table. The insert is on-conflict-do-nothing
// against the unique pair index, followed by a re-read, so two
// concurrent opposite-direction likes converge on a single row instead
// of one of them failing.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, a, b uint64, matchedAt time.Time) (*db.UserMatch, error) {
	u1, u2 := CanonicalPair(a, b)
	match := db.UserMatch{
		User1ID:   u1,
		User2ID:   u2,
		IsActive:  true,
		MatchedAt: matchedAt,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(&match).Error
	if err != nil {
		return nil, err
	}
	// Re-read: on conflict the local struct holds no row data.
	return r.FindByPair(ctx, u1, u2)
}

// Reactivate flips an inactive match back to active and refreshes its
// matched-at timestamp.
func (r *MatchRepository) Reactivate(ctx context.Context, id uint64, matchedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.UserMatch{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": true, "matched_at": matchedAt}).Error
}

// Deactivate soft-disables a match; the row is retained for history.
func (r *MatchRepository) Deactivate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.UserMatch{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// ListActiveForUser returns every active match involving the user on
// either side, most recent first.
func (r *MatchRepository) ListActiveForUser(ctx context.Context, userID uint64) ([]db.UserMatch, error) {
	var matches []db.UserMatch
	err := r.db.WithContext(ctx).
		Where("(user1_id = ? OR user2_id = ?) AND is_active = ?", userID, userID, true).
		Order("matched_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
