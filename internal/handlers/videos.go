package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// maxSearchQueryLength bounds the free-text title filter, counted in runes.
const maxSearchQueryLength = 50

// VideoHandler implements the listing, detail and mutation endpoints for videos.
type VideoHandler struct {
	Videos  VideoStore
	History HistoryStore
	Uploads UploadGateway
	NowFunc func() time.Time
}

type publishVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoFile   string `json:"videoFile"`
	Thumbnail   string `json:"thumbnail"`
	Duration    int    `json:"duration"`
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
}

type deleteVideoResponse struct {
	VideoDeletionResult     bool `json:"videoDeletionResult"`
	ThumbnailDeletionResult bool `json:"thumbnailDeletionResult"`
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("query"))
	if utf8.RuneCountInString(query) > maxSearchQueryLength {
		respondError(ctx, w, http.StatusBadRequest, "Search query too long")
		return
	}

	ownerID := strings.TrimSpace(q.Get("userId"))
	if ownerID != "" && !validID(ownerID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid userId format")
		return
	}

	params := repositories.ListVideosParams{
		Query:    query,
		OwnerID:  ownerID,
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
		Page:     intQueryParam(q.Get("page")),
		Limit:    intQueryParam(q.Get("limit")),
	}
	params = params.Normalize()

	videos, total, err := h.Videos.List(ctx, params)
	if err != nil {
		logging.FromContext(ctx).Error("list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Videos fetched successfully",
		buildVideoPage(videos, total, params.Page, params.Limit))
}

// Detail handles GET /api/v1/videos/{videoId}. A view is recorded for the
// authenticated requester only on their first visit to the video.
func (h VideoHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	viewerID := ""
	if principal, ok := middleware.PrincipalFromContext(ctx); ok {
		viewerID = principal.ID
	}

	detail, err := h.Videos.Detail(ctx, videoID, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(ctx).Error("video detail", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch video")
		return
	}

	if viewerID != "" {
		if err := h.History.RecordView(ctx, viewerID, videoID); err != nil {
			logging.FromContext(ctx).Warn("record view", "error", err, "videoId", videoID)
		}
	}

	respondJSON(ctx, w, http.StatusOK, "Video fetched successfully", detail)
}

// Publish handles POST /api/v1/videos/publishVideo.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	var req publishVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		respondError(ctx, w, http.StatusBadRequest, "Title and description are required")
		return
	}
	if req.VideoFile == "" {
		respondError(ctx, w, http.StatusBadRequest, "Video file URL is required")
		return
	}
	if req.Thumbnail == "" {
		respondError(ctx, w, http.StatusBadRequest, "Thumbnail URL is required")
		return
	}
	if req.Duration < 0 {
		req.Duration = 0
	}

	now := h.now()
	video := models.Video{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		VideoFile:   req.VideoFile,
		Thumbnail:   req.Thumbnail,
		Duration:    req.Duration,
		OwnerID:     principal.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logging.FromContext(ctx).Error("publish video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to publish video")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, "Video published successfully", video)
}

// Update handles PATCH /api/v1/videos/{videoId}. Only the owner may update.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(ctx).Error("load video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to update video")
		return
	}

	if video.OwnerID != principal.ID {
		respondError(ctx, w, http.StatusForbidden, "You are not authorized to update this video")
		return
	}

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" && req.Description == "" && req.Thumbnail == "" {
		respondError(ctx, w, http.StatusBadRequest, "At least one field is required")
		return
	}

	previousThumbnail := ""
	if req.Title != "" {
		video.Title = req.Title
	}
	if req.Description != "" {
		video.Description = req.Description
	}
	if req.Thumbnail != "" && req.Thumbnail != video.Thumbnail {
		previousThumbnail = video.Thumbnail
		video.Thumbnail = req.Thumbnail
	}
	video.UpdatedAt = h.now()

	if err := h.Videos.Update(ctx, video); err != nil {
		logging.FromContext(ctx).Error("update video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to update video")
		return
	}

	if previousThumbnail != "" && h.Uploads != nil {
		h.Uploads.RemoveObject(ctx, previousThumbnail)
	}

	respondJSON(ctx, w, http.StatusOK, "Video updated successfully", video)
}

// Delete handles DELETE /api/v1/videos/{videoId}. Stored objects are removed
// best-effort; the database row is the source of truth and its deletion is
// what decides the response status.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(ctx).Error("load video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to delete video")
		return
	}

	if video.OwnerID != principal.ID {
		respondError(ctx, w, http.StatusForbidden, "You are not authorized to delete this video")
		return
	}

	if err := h.Videos.Delete(ctx, videoID); err != nil {
		logging.FromContext(ctx).Error("delete video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to delete video")
		return
	}

	result := deleteVideoResponse{}
	if h.Uploads != nil {
		removeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		result.VideoDeletionResult = h.Uploads.RemoveObject(removeCtx, video.VideoFile)
		result.ThumbnailDeletionResult = h.Uploads.RemoveObject(removeCtx, video.Thumbnail)
	}

	respondJSON(ctx, w, http.StatusOK, "Video deleted successfully", result)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h VideoHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	videos, err := h.Videos.ListLiked(ctx, principal.ID)
	if err != nil {
		logging.FromContext(ctx).Error("liked videos", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch liked videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Liked videos fetched successfully", videos)
}

// buildVideoPage derives the pagination metadata for one page of results.
func buildVideoPage(videos []models.VideoWithOwner, total, page, limit int) models.VideoPage {
	if videos == nil {
		videos = []models.VideoWithOwner{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return models.VideoPage{
		Videos:      videos,
		TotalVideos: total,
		CurrentPage: page,
		Limit:       limit,
		HasNextPage: page*limit < total,
		TotalPages:  totalPages,
	}
}

func intQueryParam(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
