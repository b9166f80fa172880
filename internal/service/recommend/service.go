package recommend

import (
	"context"
	"math/rand/v2"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/repository"
)

// Service selects recommendation candidates. Read-only: it shares the
// like/match entities with the matching engine but never mutates them.
type Service struct {
	appCtx *app.AppContext
}

// NewService creates the recommendation selector with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// Candidate is a recommended user summary.
type Candidate struct {
	UserID   uint64 `json:"user_id"`
	Nickname string `json:"nickname"`
}

// GetRecommendedUsers filters the candidate pool down to users sharing
// at least one declared match-type preference with userID, subtracts
// everyone userID already decided on (liked or disliked), shuffles
// uniformly and returns at most limit entries.
//
// No declared preferences means no recommendations: an empty list is
// returned without touching the candidate pool.
func (s *Service) GetRecommendedUsers(ctx context.Context, userID uint64, limit int) ([]Candidate, error) {
	if limit < 0 {
		return nil, apperrors.Validation("limit must not be negative")
	}
	if limit == 0 {
		return []Candidate{}, nil
	}

	prefs := repository.NewPreferenceRepository(s.appCtx.DB)
	likes := repository.NewLikeRepository(s.appCtx.DB)
	users := repository.NewUserRepository(s.appCtx.DB)

	typeIDs, err := prefs.ListTypeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(typeIDs) == 0 {
		return []Candidate{}, nil
	}

	candidateIDs, err := prefs.ListCandidateIDs(ctx, userID, typeIDs)
	if err != nil {
		return nil, err
	}

	// Seen-set exclusion: O(1) membership over already-decided likees.
	decided, err := likes.ListDecidedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint64]struct{}, len(decided))
	for _, id := range decided {
		seen[id] = struct{}{}
	}

	pool := candidateIDs[:0]
	for _, id := range candidateIDs {
		if _, decided := seen[id]; !decided {
			pool = append(pool, id)
		}
	}

	// Fisher–Yates over the whole pool, then cut to limit.
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > limit {
		pool = pool[:limit]
	}

	profiles, err := users.FindPublicByIDs(ctx, pool)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(pool))
	for _, id := range pool {
		if u, ok := profiles[id]; ok {
			out = append(out, Candidate{UserID: u.ID, Nickname: u.Nickname})
		}
	}
	return out, nil
}
