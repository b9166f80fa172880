package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/utils/pagination"
)

// LikeRepository provides data access methods for the UserLike model.
// It encapsulates all queries related to like/dislike decisions between users.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
// Pass a transaction handle to scope all methods to that transaction.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Upsert inserts or updates the directional like liker -> likee.
//
// Behavior:
//   - If the (liker_id, likee_id) pair exists → the row's status is overwritten.
//   - If it doesn't exist → a new row is inserted.
//   - Composite PK ensures at most one row per ordered pair.
func (r *LikeRepository) Upsert(ctx context.Context, likerID, likeeID uint64, status string) (*db.UserLike, error) {
	like := db.UserLike{
		LikerID: likerID,
		LikeeID: likeeID,
		Status:  status,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "liker_id"}, {Name: "likee_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&like).Error
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// Get returns the directional like liker -> likee, or gorm.ErrRecordNotFound.
func (r *LikeRepository) Get(ctx context.Context, likerID, likeeID uint64) (*db.UserLike, error) {
	var like db.UserLike
	err := r.db.WithContext(ctx).
		Where("liker_id = ? AND likee_id = ?", likerID, likeeID).
		First(&like).Error
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// HasLiked checks whether liker has an active LIKE toward likee.
// Used for the mutual-like check when recording an interaction.
func (r *LikeRepository) HasLiked(ctx context.Context, likerID, likeeID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.UserLike{}).
		Where("liker_id = ? AND likee_id = ? AND status = ?", likerID, likeeID, db.StatusLike).
		Count(&count).Error
	return count > 0, err
}

// ListDecidedIDs returns every likee the user has already decided on,
// LIKE and DISLIKE alike. Disliked users never resurface in
// recommendations, so both statuses count as "already decided".
func (r *LikeRepository) ListDecidedIDs(ctx context.Context, likerID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.UserLike{}).
		Where("liker_id = ?", likerID).
		Pluck("likee_id", &ids).Error
	return ids, err
}

// GetLikers returns all users who liked the given likee.
//
// Behavior:
//   - Only rows where likee_id = X and status = LIKE are returned.
//   - Excludes users that the likee explicitly disliked.
//   - Ordered by updated_at DESC, liker_id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *LikeRepository) GetLikers(
	ctx context.Context,
	likeeID uint64,
	paginationToken *string,
	limit int,
) ([]db.UserLike, *string, error) {
	return r.listLikers(ctx, likeeID, paginationToken, limit, false)
}

// GetNewLikers returns users who liked the likee but have not been liked back.
// Same filtering as GetLikers, minus mutual likes.
func (r *LikeRepository) GetNewLikers(
	ctx context.Context,
	likeeID uint64,
	paginationToken *string,
	limit int,
) ([]db.UserLike, *string, error) {
	return r.listLikers(ctx, likeeID, paginationToken, limit, true)
}

func (r *LikeRepository) listLikers(
	ctx context.Context,
	likeeID uint64,
	paginationToken *string,
	limit int,
	excludeMutual bool,
) ([]db.UserLike, *string, error) {
	var likes []db.UserLike

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("user_likes l").
		Where("l.likee_id = ? AND l.status = ?", likeeID, db.StatusLike).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM user_likes l2
				WHERE l2.liker_id = ?
				  AND l2.likee_id = l.liker_id
				  AND l2.status = ?
			)`, likeeID, db.StatusDislike).
		Order("l.updated_at DESC, l.liker_id DESC").
		Limit(limit + 1)

	if excludeMutual {
		sub := r.db.
			Table("user_likes").
			Select("1").
			Where("liker_id = l.likee_id AND likee_id = l.liker_id AND status = ?", db.StatusLike)
		query = query.Where("NOT EXISTS (?)", sub)
	}

	// apply cursor
	if cursor.LikerID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		query = query.Where(
			"(l.updated_at < ? OR (l.updated_at = ? AND l.liker_id < ?))",
			ts, ts, cursor.LikerID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LikerID:     last.LikerID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountLikers returns how many users liked the given likee, excluding
// users the likee explicitly disliked. Used with the Redis cache as the
// DB fallback.
func (r *LikeRepository) CountLikers(ctx context.Context, likeeID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("user_likes l").
		Where("l.likee_id = ? AND l.status = ?", likeeID, db.StatusLike).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM user_likes l2
				WHERE l2.liker_id = ?
				  AND l2.likee_id = l.liker_id
				  AND l2.status = ?
			)`, likeeID, db.StatusDislike).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
