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

// CommentHandler implements the comment endpoints for a video.
type CommentHandler struct {
	Comments CommentStore
	NowFunc  func() time.Time
}

type commentRequest struct {
	Content string `json:"content"`
}

// ListForVideo handles GET /api/v1/comments/{videoId}, newest first.
func (h CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
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

	comments, err := h.Comments.ListForVideo(ctx, videoID, viewerID)
	if err != nil {
		logging.FromContext(ctx).Error("list comments", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch comments")
		return
	}
	if comments == nil {
		comments = []models.CommentView{}
	}

	respondJSON(ctx, w, http.StatusOK, "Comments fetched successfully", comments)
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
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

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "Comment content is required")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		Content:   req.Content,
		OwnerID:   principal.ID,
		VideoID:   videoID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(ctx).Error("create comment", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to add comment")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, "Comment added successfully", comment)
}

// Update handles PATCH /api/v1/comments/{commentId}. Only the author may update.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	commentID := chi.URLParam(r, "commentId")
	if !validID(commentID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Comment not found")
			return
		}
		logging.FromContext(ctx).Error("load comment", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to update comment")
		return
	}

	if comment.OwnerID != principal.ID {
		respondError(ctx, w, http.StatusForbidden, "You are not authorized to update this comment")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "Comment content is required")
		return
	}

	if err := h.Comments.Update(ctx, commentID, req.Content); err != nil {
		logging.FromContext(ctx).Error("update comment", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to update comment")
		return
	}

	comment.Content = req.Content
	comment.UpdatedAt = h.now()
	respondJSON(ctx, w, http.StatusOK, "Comment updated successfully", comment)
}

// Delete handles DELETE /api/v1/comments/{commentId}. Only the author may delete.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	commentID := chi.URLParam(r, "commentId")
	if !validID(commentID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Comment not found")
			return
		}
		logging.FromContext(ctx).Error("load comment", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to delete comment")
		return
	}

	if comment.OwnerID != principal.ID {
		respondError(ctx, w, http.StatusForbidden, "You are not authorized to delete this comment")
		return
	}

	if err := h.Comments.Delete(ctx, commentID); err != nil {
		logging.FromContext(ctx).Error("delete comment", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to delete comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Comment deleted successfully", map[string]any{})
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
