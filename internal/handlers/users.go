package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// UserHandler implements registration, authentication and profile endpoints.
type UserHandler struct {
	Users        UserStore
	History      HistoryStore
	Tokens       TokenIssuer
	Cache        SessionCache
	Uploads      UploadGateway
	AuthLimiter  RateLimiter
	CookieSecure bool
	NowFunc      func() time.Time
}

type registerRequest struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type updateImageRequest struct {
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

type sessionResponse struct {
	User         models.Profile `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.AuthLimiter, r, "auth") {
		respondError(ctx, w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))

	if req.FullName == "" || req.Email == "" || req.Username == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "All fields are required")
		return
	}
	if req.Avatar == "" {
		respondError(ctx, w, http.StatusBadRequest, "Avatar URL is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.Password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logging.FromContext(ctx).Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   string(hashed),
		Avatar:     req.Avatar,
		CoverImage: req.CoverImage,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "User with email or username already exists")
			return
		}
		logging.FromContext(ctx).Error("create user", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	tokens, err := h.issueSession(r, w, user.ID)
	if err != nil {
		respondError(ctx, w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, "User registered successfully", sessionResponse{
		User:         user.Sanitize(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.AuthLimiter, r, "auth") {
		respondError(ctx, w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "Email is required")
		return
	}
	if req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "Password is required")
		return
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User does not exist")
			return
		}
		logging.FromContext(ctx).Error("login lookup", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Invalid user credentials")
		return
	}

	tokens, err := h.issueSession(r, w, user.ID)
	if err != nil {
		respondError(ctx, w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "User logged in successfully", sessionResponse{
		User:         user.Sanitize(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Logout handles POST /api/v1/users/logout. The cache eviction happens before
// any response is written so a revoked session cannot be served stale.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	h.Cache.Delete(principal.ID)

	if err := h.Users.SetRefreshToken(ctx, principal.ID, ""); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logging.FromContext(ctx).Error("clear refresh token", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to log out")
		return
	}

	h.clearRefreshCookie(w)
	respondJSON(ctx, w, http.StatusOK, "User logged out successfully", map[string]any{})
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh credential is
// accepted exclusively from its HTTP-only cookie.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.AuthLimiter, r, "auth") {
		respondError(ctx, w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	cookie, err := r.Cookie(auth.RefreshTokenCookie)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}
	incoming := strings.TrimSpace(cookie.Value)

	userID, err := h.Tokens.VerifyRefresh(incoming)
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, err.Error())
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		logging.FromContext(ctx).Error("refresh lookup", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to refresh session")
		return
	}

	// Byte equality with the stored value detects reuse of a rotated-away
	// token even when its signature is still valid.
	if user.RefreshToken == "" || user.RefreshToken != incoming {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrRefreshReused.Error())
		return
	}

	tokens, err := h.issueSession(r, w, user.ID)
	if err != nil {
		respondError(ctx, w, http.StatusInternalServerError, "Failed to refresh session")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Access token refreshed successfully", sessionResponse{
		User:         user.Sanitize(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	respondJSON(ctx, w, http.StatusOK, "User fetched successfully", principal)
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "Old and new passwords are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	user, err := h.Users.FindByID(ctx, principal.ID)
	if err != nil {
		logging.FromContext(ctx).Error("change password lookup", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to change password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid old password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logging.FromContext(ctx).Error("hash new password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to change password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, principal.ID, string(hashed)); err != nil {
		logging.FromContext(ctx).Error("update password", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to change password")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Password changed successfully", map[string]any{})
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "All fields are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid email address")
		return
	}

	profile, err := h.Users.UpdateAccount(ctx, principal.ID, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "Email already in use")
			return
		}
		logging.FromContext(ctx).Error("update account", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to update account")
		return
	}

	h.Cache.Delete(principal.ID)
	respondJSON(ctx, w, http.StatusOK, "Account details updated successfully", profile)
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "cover_image")
}

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, column string) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	var req updateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url := strings.TrimSpace(req.Avatar)
	label := "Avatar"
	if column == "cover_image" {
		url = strings.TrimSpace(req.CoverImage)
		label = "Cover image"
	}
	if url == "" {
		respondError(ctx, w, http.StatusBadRequest, label+" URL is missing")
		return
	}

	profile, previous, err := h.Users.UpdateImage(ctx, principal.ID, column, url)
	if err != nil {
		logging.FromContext(ctx).Error("update image", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to update "+strings.ToLower(label))
		return
	}

	if previous != "" && h.Uploads != nil {
		h.Uploads.RemoveObject(ctx, previous)
	}

	h.Cache.Delete(principal.ID)
	respondJSON(ctx, w, http.StatusOK, label+" updated successfully", profile)
}

// Channel handles GET /api/v1/users/c/{username}.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.TrimSpace(strings.ToLower(chi.URLParam(r, "username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "Username is missing")
		return
	}

	viewerID := ""
	if principal, ok := middleware.PrincipalFromContext(ctx); ok {
		viewerID = principal.ID
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Channel does not exist")
			return
		}
		logging.FromContext(ctx).Error("channel profile", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch channel")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "User channel fetched successfully", profile)
}

// History handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	videos, err := h.History.ListForUser(ctx, principal.ID)
	if err != nil {
		logging.FromContext(ctx).Error("watch history", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch watch history")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Watch history fetched successfully", videos)
}

// ChannelStats handles GET /api/v1/dashboard/stats for the authenticated owner.
func (h UserHandler) ChannelStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	stats, err := h.Users.ChannelStats(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Channel not found")
			return
		}
		logging.FromContext(ctx).Error("channel stats", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch channel stats")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Channel stats fetched successfully", stats)
}

// issueSession issues a token pair, persists the refresh credential on the
// user record and sets the refresh cookie.
func (h UserHandler) issueSession(r *http.Request, w http.ResponseWriter, userID string) (models.SessionTokens, error) {
	ctx := r.Context()

	tokens, err := h.Tokens.Issue(userID)
	if err != nil {
		logging.FromContext(ctx).Error("issue tokens", "error", err, "userId", userID)
		return models.SessionTokens{}, err
	}

	if err := h.Users.SetRefreshToken(ctx, userID, tokens.RefreshToken); err != nil {
		logging.FromContext(ctx).Error("persist refresh token", "error", err, "userId", userID)
		return models.SessionTokens{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return tokens, nil
}

func (h UserHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
