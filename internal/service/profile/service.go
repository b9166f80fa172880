package profile

import (
	"context"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/repository"
)

// Service manages the profile data feeding the recommendation selector:
// match-type preferences and the user's location.
type Service struct {
	appCtx *app.AppContext
	prefs  *repository.PreferenceRepository
	locs   *repository.LocationRepository
}

// NewService creates the profile service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		prefs:  repository.NewPreferenceRepository(appCtx.DB),
		locs:   repository.NewLocationRepository(appCtx.DB),
	}
}

// ReplacePreferences swaps the user's entire preference set. Unknown or
// duplicated match-type ids are rejected before any mutation; the
// delete-all-then-insert itself runs in one transaction.
func (s *Service) ReplacePreferences(ctx context.Context, userID uint64, matchTypeIDs []uint64) error {
	unique := make(map[uint64]struct{}, len(matchTypeIDs))
	for _, id := range matchTypeIDs {
		if _, dup := unique[id]; dup {
			return apperrors.Validation("duplicate match type id")
		}
		unique[id] = struct{}{}
	}

	if len(matchTypeIDs) > 0 {
		count, err := s.prefs.CountCatalogByIDs(ctx, matchTypeIDs)
		if err != nil {
			return err
		}
		if count != int64(len(matchTypeIDs)) {
			return apperrors.Validation("unknown match type id")
		}
	}

	return s.prefs.Replace(ctx, userID, matchTypeIDs)
}

// GetPreferences returns the match types the user has chosen.
func (s *Service) GetPreferences(ctx context.Context, userID uint64) ([]db.MatchType, error) {
	return s.prefs.ListTypes(ctx, userID)
}

// ListMatchTypes returns the full catalog.
func (s *Service) ListMatchTypes(ctx context.Context) ([]db.MatchType, error) {
	return s.prefs.ListCatalog(ctx)
}

// UpsertLocation creates or overwrites the user's single location row.
func (s *Service) UpsertLocation(ctx context.Context, userID uint64, lat, lng float64, address string) (*db.UserLocation, error) {
	if lat < -90 || lat > 90 {
		return nil, apperrors.Validation("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return nil, apperrors.Validation("longitude must be between -180 and 180")
	}

	loc := &db.UserLocation{
		UserID:    userID,
		Latitude:  lat,
		Longitude: lng,
		Address:   address,
	}
	if err := s.locs.Upsert(ctx, loc); err != nil {
		return nil, err
	}
	return s.locs.Get(ctx, userID)
}

// GetLocation returns the user's location, if set.
func (s *Service) GetLocation(ctx context.Context, userID uint64) (*db.UserLocation, error) {
	return s.locs.Get(ctx, userID)
}
