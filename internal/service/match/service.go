package match

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/repository"
	"github.com/amoradev/amora/internal/utils/pagination"
)

// Service is the interaction & matching engine. It maintains the
// UserLike/UserMatch graph: a directional like/dislike is recorded, the
// reverse direction is re-read, and the symmetric match row is
// created/reactivated/deactivated, all inside one transaction per
// interaction so concurrent opposite-direction submissions stay
// consistent.
type Service struct {
	appCtx *app.AppContext
}

// NewService creates the matching engine with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// InteractionResult is the outcome of recording a like/dislike.
type InteractionResult struct {
	Like    *db.UserLike
	Match   *db.UserMatch
	IsMatch bool
}

// ParseStatus normalizes a transport-level action ("like"/"dislike")
// into a stored status, rejecting anything else before persistence.
func ParseStatus(action string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case db.StatusLike:
		return db.StatusLike, nil
	case db.StatusDislike:
		return db.StatusDislike, nil
	default:
		return "", apperrors.Validation("action must be like or dislike")
	}
}

// RecordInteraction records a directional decision inside a
// self-managed transaction and updates the like-count cache afterwards.
//
// Within the transaction:
//  1. Both users must exist (not-found aborts everything).
//  2. The directional like row is upserted in place.
//  3. On LIKE, the reverse direction's current stored status is
//     re-read; a mutual LIKE creates or reactivates the canonical-pair
//     match. The mutual condition is validated inside the same
//     transaction that writes the match, and the unique pair index
//     absorbs the remaining creation race.
//  4. On DISLIKE, any active match for the pair is deactivated.
func (s *Service) RecordInteraction(ctx context.Context, likerID, likeeID uint64, status string) (*InteractionResult, error) {
	if likerID == likeeID {
		return nil, apperrors.Validation("cannot decide on yourself")
	}
	if status != db.StatusLike && status != db.StatusDislike {
		return nil, apperrors.Validation("status must be LIKE or DISLIKE")
	}

	var result *InteractionResult
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.RecordInteractionTx(ctx, tx, likerID, likeeID, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Like-count cache for the likee: best-effort, never fails the
	// committed interaction.
	delta := int64(1)
	if status == db.StatusDislike {
		delta = -1
	}
	if err := s.appCtx.RedisCache.BumpLikeCount(ctx, likeeID, delta); err != nil {
		s.appCtx.Logger.Warn("like count cache update failed", "likee_id", likeeID, "err", err)
	}

	return result, nil
}

// RecordInteractionTx runs the interaction steps against a
// caller-supplied transaction handle, so the engine can nest inside a
// larger transaction. No cache writes happen here.
func (s *Service) RecordInteractionTx(ctx context.Context, tx *gorm.DB, likerID, likeeID uint64, status string) (*InteractionResult, error) {
	users := repository.NewUserRepository(tx)
	likes := repository.NewLikeRepository(tx)
	matches := repository.NewMatchRepository(tx)

	for _, id := range []uint64{likerID, likeeID} {
		ok, err := users.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NotFound("user not found")
		}
	}

	like, err := likes.Upsert(ctx, likerID, likeeID, status)
	if err != nil {
		return nil, err
	}

	result := &InteractionResult{Like: like}

	switch status {
	case db.StatusLike:
		mutual, err := likes.HasLiked(ctx, likeeID, likerID)
		if err != nil {
			return nil, err
		}
		if !mutual {
			return result, nil
		}

		existing, err := matches.FindByPair(ctx, likerID, likeeID)
		switch {
		case err == nil && existing.IsActive:
			// already matched, nothing to touch
			result.Match = existing
		case err == nil:
			if err := matches.Reactivate(ctx, existing.ID, time.Now()); err != nil {
				return nil, err
			}
			existing, err = matches.FindByPair(ctx, likerID, likeeID)
			if err != nil {
				return nil, err
			}
			result.Match = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			created, err := matches.CreateIfAbsent(ctx, likerID, likeeID, time.Now())
			if err != nil {
				return nil, err
			}
			result.Match = created
		default:
			return nil, err
		}
		result.IsMatch = true

	case db.StatusDislike:
		existing, err := matches.FindByPair(ctx, likerID, likeeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return result, nil
			}
			return nil, err
		}
		if existing.IsActive {
			if err := matches.Deactivate(ctx, existing.ID); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// MatchSummary annotates a match with the other party's public profile.
type MatchSummary struct {
	MatchID   uint64    `json:"match_id"`
	UserID    uint64    `json:"user_id"`
	Nickname  string    `json:"nickname"`
	MatchedAt time.Time `json:"matched_at"`
}

// GetUserMatches returns all active matches involving the user, newest
// first, each carrying the other party's public fields.
func (s *Service) GetUserMatches(ctx context.Context, userID uint64) ([]MatchSummary, error) {
	matches := repository.NewMatchRepository(s.appCtx.DB)
	users := repository.NewUserRepository(s.appCtx.DB)

	rows, err := matches.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]uint64, 0, len(rows))
	for _, m := range rows {
		otherIDs = append(otherIDs, m.OtherUser(userID))
	}
	profiles, err := users.FindPublicByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]MatchSummary, 0, len(rows))
	for _, m := range rows {
		otherID := m.OtherUser(userID)
		summaries = append(summaries, MatchSummary{
			MatchID:   m.ID,
			UserID:    otherID,
			Nickname:  profiles[otherID].Nickname,
			MatchedAt: m.MatchedAt,
		})
	}
	return summaries, nil
}

// Liker is one entry of a "who liked you" listing.
type Liker struct {
	UserID        uint64 `json:"user_id"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// LikerPage is a cursor-paginated likers listing.
type LikerPage struct {
	Likers    []Liker `json:"likers"`
	NextToken *string `json:"next_pagination_token,omitempty"`
}

// ListLikers returns users who liked userID, excluding anyone userID
// explicitly disliked. Cursor paginated.
func (s *Service) ListLikers(ctx context.Context, userID uint64, token *string, limit int) (*LikerPage, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	likes := repository.NewLikeRepository(s.appCtx.DB)
	rows, next, err := likes.GetLikers(ctx, userID, token, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	return likerPage(rows, next), nil
}

// ListNewLikers is ListLikers minus mutual likes.
func (s *Service) ListNewLikers(ctx context.Context, userID uint64, token *string, limit int) (*LikerPage, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	likes := repository.NewLikeRepository(s.appCtx.DB)
	rows, next, err := likes.GetNewLikers(ctx, userID, token, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	return likerPage(rows, next), nil
}

// CountLikers returns how many users liked userID.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID).
//  2. On cache miss, falls back to the DB count.
//  3. On DB fetch, writes the count back with a fresh TTL.
func (s *Service) CountLikers(ctx context.Context, userID uint64) (int64, error) {
	if cached, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, userID); err == nil && ok {
		return cached, nil
	}

	likes := repository.NewLikeRepository(s.appCtx.DB)
	count, err := likes.CountLikers(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.appCtx.RedisCache.SetLikeCount(ctx, userID, count); err != nil {
		s.appCtx.Logger.Warn("like count cache write failed", "user_id", userID, "err", err)
	}
	return count, nil
}

func likerPage(rows []db.UserLike, next *string) *LikerPage {
	page := &LikerPage{Likers: make([]Liker, 0, len(rows)), NextToken: next}
	for _, l := range rows {
		page.Likers = append(page.Likers, Liker{
			UserID:        l.LikerID,
			UnixTimestamp: l.UpdatedAt.UnixMilli(),
		})
	}
	return page
}

func validateToken(token *string) error {
	if token == nil {
		return nil
	}
	if _, err := pagination.Decode(*token); err != nil {
		return apperrors.Validation("invalid pagination token")
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 50 {
		return 20
	}
	return limit
}
