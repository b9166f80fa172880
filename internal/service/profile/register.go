package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/service/auth"
)

// Registrar ties the profile service into the HTTP router.
type Registrar struct {
	svc   *Service
	authn func(http.Handler) http.Handler
}

// NewRegistrar creates a new Registrar for the profile service.
func NewRegistrar(appCtx *app.AppContext, authn func(http.Handler) http.Handler) *Registrar {
	return &Registrar{svc: NewService(appCtx), authn: authn}
}

// Register attaches the profile endpoints to the router.
func (reg *Registrar) Register(r chi.Router) {
	r.Get("/match-types", reg.handleListMatchTypes)
	r.Group(func(r chi.Router) {
		r.Use(reg.authn)
		r.Get("/profile/preferences", reg.handleGetPreferences)
		r.Put("/profile/preferences", reg.handleReplacePreferences)
		r.Get("/profile/location", reg.handleGetLocation)
		r.Put("/profile/location", reg.handleUpsertLocation)
	})
}

func (reg *Registrar) handleListMatchTypes(w http.ResponseWriter, r *http.Request) {
	types, err := reg.svc.ListMatchTypes(r.Context())
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"match_types": types})
}

func (reg *Registrar) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	types, err := reg.svc.GetPreferences(r.Context(), claims.UserID)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"match_types": types})
}

func (reg *Registrar) handleReplacePreferences(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var req struct {
		MatchTypeIDs []uint64 `json:"match_type_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	if err := reg.svc.ReplacePreferences(r.Context(), claims.UserID, req.MatchTypeIDs); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (reg *Registrar) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	loc, err := reg.svc.GetLocation(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperrors.WriteJSON(w, apperrors.NotFound("location not set"))
			return
		}
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (reg *Registrar) handleUpsertLocation(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Address   string  `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	loc, err := reg.svc.UpsertLocation(r.Context(), claims.UserID, req.Latitude, req.Longitude, req.Address)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
