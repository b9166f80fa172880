package recommend

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/service/auth"
)

const defaultLimit = 20

// Registrar ties the recommendation selector into the HTTP router.
type Registrar struct {
	svc   *Service
	authn func(http.Handler) http.Handler
}

// NewRegistrar creates a new Registrar for the recommendation selector.
func NewRegistrar(appCtx *app.AppContext, authn func(http.Handler) http.Handler) *Registrar {
	return &Registrar{svc: NewService(appCtx), authn: authn}
}

// Register attaches the recommendation endpoint to the router.
func (reg *Registrar) Register(r chi.Router) {
	r.With(reg.authn).Get("/recommendations", reg.handleGetRecommendations)
}

func (reg *Registrar) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			apperrors.WriteJSON(w, apperrors.Validation("limit must be an integer"))
			return
		}
		limit = n
	}

	users, err := reg.svc.GetRecommendedUsers(r.Context(), claims.UserID, limit)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"users": users})
}
