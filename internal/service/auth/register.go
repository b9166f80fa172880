package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
)

const refreshCookieName = "refresh_token"

// Registrar ties the auth service into the HTTP router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the auth service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

// Service exposes the constructed auth service so main can share its
// token manager with the authenticated routes of other services.
func (r *Registrar) Service() *Service { return r.svc }

// Register attaches the auth endpoints to the router.
func (reg *Registrar) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", reg.handleRegister)
		r.Post("/login", reg.handleLogin)
		r.Post("/refresh", reg.handleRefresh)
		r.Post("/logout", reg.handleLogout)
		r.With(Authenticated(reg.svc.Tokens())).Post("/logout-all", reg.handleLogoutAll)
		r.Post("/activate", reg.handleActivate)
		r.Post("/password-reset", reg.handlePasswordResetRequest)
		r.Post("/password-reset/confirm", reg.handlePasswordResetConfirm)
	})
}

type registerRequest struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      uint64 `json:"user_id"`
	Nickname    string `json:"nickname"`
}

func (reg *Registrar) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	res, err := reg.svc.Register(r.Context(), RegisterInput(req))
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	setRefreshCookie(w, res.Tokens)
	writeJSON(w, http.StatusCreated, tokenResponse{
		AccessToken: res.Tokens.AccessToken,
		UserID:      res.User.ID,
		Nickname:    res.User.Nickname,
	})
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (reg *Registrar) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid request body"))
		return
	}

	user, pair, err := reg.svc.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	setRefreshCookie(w, pair)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		UserID:      user.ID,
		Nickname:    user.Nickname,
	})
}

func (reg *Registrar) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw, err := refreshTokenFrom(r)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	access, err := reg.svc.RefreshAccessToken(r.Context(), raw)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

func (reg *Registrar) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, err := refreshTokenFrom(r)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	if err := reg.svc.RevokeSession(r.Context(), raw); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (reg *Registrar) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		apperrors.WriteJSON(w, apperrors.Unauthorized("missing bearer token"))
		return
	}
	if err := reg.svc.RevokeAllSessions(r.Context(), claims.UserID); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (reg *Registrar) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid request body"))
		return
	}
	if err := reg.svc.Activate(r.Context(), req.Token); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (reg *Registrar) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid request body"))
		return
	}
	// Always 202: unknown emails are indistinguishable from known ones.
	if _, err := reg.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (reg *Registrar) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, apperrors.Validation("invalid request body"))
		return
	}
	if err := reg.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func refreshTokenFrom(r *http.Request) (string, error) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrInvalidSession
	}
	return cookie.Value, nil
}

func setRefreshCookie(w http.ResponseWriter, pair *TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/auth",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
