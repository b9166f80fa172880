package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/repository"
)

// Service owns the authentication-token lifecycle plus the account
// flows that feed it: registration, login, password reset, activation.
// Password checking is delegated to bcrypt; session lookups always go
// through the token hash.
type Service struct {
	appCtx   *app.AppContext
	tokens   *TokenManager
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	links    *repository.LinkRepository
}

// NewService creates the auth service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		tokens:   NewTokenManager(appCtx.Config.Auth.JWTSecret, appCtx.Config.Auth.AccessTokenTTL),
		users:    repository.NewUserRepository(appCtx.DB),
		sessions: repository.NewSessionRepository(appCtx.DB),
		links:    repository.NewLinkRepository(appCtx.DB),
	}
}

// Tokens exposes the token manager for transport middleware.
func (s *Service) Tokens() *TokenManager { return s.tokens }

// TokenPair is the credential set handed to a client on login/registration.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Nickname string
	Email    string
	Password string
}

// Registration is the result of a successful enrollment. The activation
// token is raw; delivery (email) is outside this service.
type Registration struct {
	User            *db.User
	Tokens          *TokenPair
	ActivationToken string
}

// Register validates uniqueness, hashes the password and creates an
// inactive account with an activation link, then issues a token pair.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Registration, error) {
	nickname := strings.TrimSpace(input.Nickname)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if nickname == "" || email == "" || input.Password == "" {
		return nil, apperrors.Validation("nickname, email and password are required")
	}

	if _, err := s.users.FindByNickname(ctx, nickname); err == nil {
		return nil, apperrors.Conflict("nickname is already taken")
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &db.User{
		Nickname:     nickname,
		Email:        email,
		PasswordHash: string(hash),
		Role:         db.RoleUser,
		Active:       false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	activationRaw, err := NewRawToken()
	if err != nil {
		return nil, err
	}
	link := &db.ActivationLink{
		UserID:    user.ID,
		TokenHash: HashToken(activationRaw),
		ExpiresAt: time.Now().Add(s.appCtx.Config.Auth.ActivationTTL),
	}
	if err := s.links.CreateActivationLink(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create activation link: %w", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("user registered", "user_id", user.ID, "nickname", user.Nickname)
	return &Registration{User: user, Tokens: pair, ActivationToken: activationRaw}, nil
}

// Login verifies credentials by nickname or email and issues a token
// pair. Failures are reported generically so callers cannot probe which
// of nickname/password was wrong.
func (s *Service) Login(ctx context.Context, login, password string) (*db.User, *TokenPair, error) {
	user, err := s.users.FindByNickname(ctx, login)
	if err != nil {
		user, err = s.users.FindByEmail(ctx, strings.ToLower(login))
	}
	if err != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// IssueAccessToken mints a stateless short-lived access token.
func (s *Service) IssueAccessToken(user *db.User) (string, error) {
	return s.tokens.IssueAccessToken(user)
}

// IssueRefreshToken generates an opaque refresh token, persists its
// hash as a new session row and returns the raw value for delivery.
func (s *Service) IssueRefreshToken(ctx context.Context, user *db.User) (string, time.Time, error) {
	raw, err := NewRawToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(s.appCtx.Config.Auth.RefreshTokenTTL)
	session := &db.Session{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create session: %w", err)
	}
	return raw, expiresAt, nil
}

func (s *Service) issueTokens(ctx context.Context, user *db.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, RefreshExpiresAt: expiresAt}, nil
}

// RefreshAccessToken exchanges a valid refresh token for a new access
// token. The refresh token itself is not rotated. Expired sessions are
// reported but left in place for the sweeper.
func (s *Service) RefreshAccessToken(ctx context.Context, rawToken string) (string, error) {
	session, err := s.sessions.FindByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrInvalidSession
		}
		return "", err
	}
	if time.Now().After(session.ExpiresAt) {
		return "", apperrors.ErrExpiredSession
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrNotFound
		}
		return "", err
	}

	return s.tokens.IssueAccessToken(user)
}

// RevokeSession deletes the session matching the raw token. Revoking an
// unknown token is an error, not a no-op: double logout is reported.
func (s *Service) RevokeSession(ctx context.Context, rawToken string) error {
	rows, err := s.sessions.DeleteByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.ErrInvalidSession
	}
	return nil
}

// RevokeAllSessions logs the user out of every device. Zero existing
// sessions is fine.
func (s *Service) RevokeAllSessions(ctx context.Context, userID uint64) error {
	rows, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	s.appCtx.Logger.Info("revoked all sessions", "user_id", userID, "count", rows)
	return nil
}

// RequestPasswordReset creates a reset link for the account, if any.
// Unknown emails are silently accepted to prevent enumeration; the
// returned raw token is empty in that case.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return "", nil
	}

	raw, err := NewRawToken()
	if err != nil {
		return "", err
	}
	link := &db.PasswordResetLink{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(s.appCtx.Config.Auth.ResetLinkTTL),
	}
	if err := s.links.CreateResetLink(ctx, link); err != nil {
		return "", fmt.Errorf("failed to create reset link: %w", err)
	}
	return raw, nil
}

// ResetPassword completes the forgot-password flow: validates the link,
// rehashes the password, removes the link and revokes every session.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if newPassword == "" {
		return apperrors.Validation("password is required")
	}

	link, err := s.links.FindResetLinkByHash(ctx, HashToken(rawToken))
	if err != nil {
		return apperrors.Unauthorized("invalid or expired reset link")
	}
	if time.Now().After(link.ExpiresAt) {
		return apperrors.Unauthorized("invalid or expired reset link")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, link.UserID, string(hash)); err != nil {
		return err
	}
	if err := s.links.DeleteResetLink(ctx, link.ID); err != nil {
		return err
	}
	return s.RevokeAllSessions(ctx, link.UserID)
}

// Activate flips the account active via its activation link.
func (s *Service) Activate(ctx context.Context, rawToken string) error {
	link, err := s.links.FindActivationLinkByHash(ctx, HashToken(rawToken))
	if err != nil {
		return apperrors.Unauthorized("invalid activation link")
	}
	if time.Now().After(link.ExpiresAt) {
		return apperrors.Unauthorized("activation link expired")
	}
	if err := s.users.Activate(ctx, link.UserID); err != nil {
		return err
	}
	return s.links.DeleteActivationLink(ctx, link.ID)
}
