package match

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/service/auth"
)

// Registrar ties the matching engine into the HTTP router. All routes
// require an authenticated caller; the liker is always the caller.
type Registrar struct {
	svc   *Service
	authn func(http.Handler) http.Handler
}

// NewRegistrar creates a new Registrar for the matching engine.
func NewRegistrar(appCtx *app.AppContext, authn func(http.Handler) http.Handler) *Registrar {
	return &Registrar{svc: NewService(appCtx), authn: authn}
}

// Register attaches the matching endpoints to the router.
func (reg *Registrar) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(reg.authn)
		r.Post("/interactions", reg.handlePutInteraction)
		r.Get("/matches", reg.handleListMatches)
		r.Get("/likers", reg.handleListLikers)
		r.Get("/likers/new", reg.handleListNewLikers)
		r.Get("/likers/count", reg.handleCountLikers)
	})
}

type interactionRequest struct {
	LikeeID uint64 `json:"likee_id"`
	Action  string `json:"action"`
}

type interactionResponse struct {
	IsMatch bool          `json:"is_match"`
	Match   *MatchSummary `json:"match"`
}

func (reg *Registrar) handlePutInteraction(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	status, err := ParseStatus(req.Action)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	result, err := reg.svc.RecordInteraction(r.Context(), claims.UserID, req.LikeeID, status)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	resp := interactionResponse{IsMatch: result.IsMatch}
	if result.Match != nil {
		resp.Match = &MatchSummary{
			MatchID:   result.Match.ID,
			UserID:    result.Match.OtherUser(claims.UserID),
			MatchedAt: result.Match.MatchedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (reg *Registrar) handleListMatches(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	matches, err := reg.svc.GetUserMatches(r.Context(), claims.UserID)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (reg *Registrar) handleListLikers(w http.ResponseWriter, r *http.Request) {
	reg.listLikers(w, r, reg.svc.ListLikers)
}

func (reg *Registrar) handleListNewLikers(w http.ResponseWriter, r *http.Request) {
	reg.listLikers(w, r, reg.svc.ListNewLikers)
}

func (reg *Registrar) listLikers(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context, userID uint64, token *string, limit int) (*LikerPage, error),
) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var token *string
	if v := r.URL.Query().Get("pagination_token"); v != "" {
		token = &v
	}

	page, err := list(r.Context(), claims.UserID, token, queryLimit(r))
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (reg *Registrar) handleCountLikers(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	count, err := reg.svc.CountLikers(r.Context(), claims.UserID)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
