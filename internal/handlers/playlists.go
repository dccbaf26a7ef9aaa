package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// PlaylistHandler implements playlist CRUD and membership endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	NowFunc   func() time.Time
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(ctx, w, http.StatusBadRequest, "Playlist name is required")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		OwnerID:     principal.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		logging.FromContext(ctx).Error("create playlist", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to create playlist")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, "Playlist created successfully", playlist)
}

// List handles GET /api/v1/playlists, returning the requester's playlists.
func (h PlaylistHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	playlists, err := h.Playlists.ListForUser(ctx, principal.ID)
	if err != nil {
		logging.FromContext(ctx).Error("list playlists", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch playlists")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	respondJSON(ctx, w, http.StatusOK, "Playlists fetched successfully", playlists)
}

// Detail handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlistID := chi.URLParam(r, "playlistId")
	if !validID(playlistID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	detail, err := h.Playlists.Detail(ctx, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Playlist not found")
			return
		}
		logging.FromContext(ctx).Error("playlist detail", "error", err, "playlistId", playlistID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Playlist fetched successfully", detail)
}

// Update handles PATCH /api/v1/playlists/{playlistId}. Only the owner may update.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.loadOwned(w, r, "update")
	if !ok {
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" && req.Description == "" {
		respondError(ctx, w, http.StatusBadRequest, "Name or description is required")
		return
	}

	if req.Name != "" {
		playlist.Name = req.Name
	}
	if req.Description != "" {
		playlist.Description = req.Description
	}
	playlist.UpdatedAt = h.now()

	if err := h.Playlists.Update(ctx, playlist); err != nil {
		logging.FromContext(ctx).Error("update playlist", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to update playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Playlist updated successfully", playlist)
}

// Delete handles DELETE /api/v1/playlists/{playlistId}. Only the owner may delete.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.loadOwned(w, r, "delete")
	if !ok {
		return
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		logging.FromContext(ctx).Error("delete playlist", "error", err, "playlistId", playlist.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to delete playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Playlist deleted successfully", map[string]any{})
}

// AddVideo handles POST /api/v1/playlists/{playlistId}/videos/{videoId}. Adding a
// video that is already a member leaves the playlist unchanged.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.loadOwned(w, r, "update")
	if !ok {
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(ctx).Error("add playlist video", "error", err, "playlistId", playlist.ID, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to add video to playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Video added to playlist successfully", playlist)
}

// RemoveVideo handles DELETE /api/v1/playlists/{playlistId}/videos/{videoId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.loadOwned(w, r, "update")
	if !ok {
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video is not in the playlist")
			return
		}
		logging.FromContext(ctx).Error("remove playlist video", "error", err, "playlistId", playlist.ID, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to remove video from playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Video removed from playlist successfully", playlist)
}

// loadOwned validates the playlistId route param, loads the playlist and
// enforces ownership, writing the failure response itself when any step fails.
func (h PlaylistHandler) loadOwned(w http.ResponseWriter, r *http.Request, action string) (models.Playlist, bool) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return models.Playlist{}, false
	}

	playlistID := chi.URLParam(r, "playlistId")
	if !validID(playlistID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid playlist ID")
		return models.Playlist{}, false
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Playlist not found")
			return models.Playlist{}, false
		}
		logging.FromContext(ctx).Error("load playlist", "error", err, "playlistId", playlistID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to load playlist")
		return models.Playlist{}, false
	}

	if playlist.OwnerID != principal.ID {
		respondError(ctx, w, http.StatusForbidden, "You are not authorized to "+action+" this playlist")
		return models.Playlist{}, false
	}

	return playlist, true
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
