package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
)

// LikeHandler implements the like toggle endpoints.
type LikeHandler struct {
	Likes LikeStore
}

type toggleLikeResponse struct {
	IsLiked bool `json:"isLiked"`
}

// ToggleVideo handles POST /api/v1/likes/video/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
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

	liked, err := h.Likes.ToggleVideo(ctx, principal.ID, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(ctx).Error("toggle video like", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to toggle like")
		return
	}

	message := "Like removed successfully"
	if liked {
		message = "Like added successfully"
	}
	respondJSON(ctx, w, http.StatusOK, message, toggleLikeResponse{IsLiked: liked})
}

// ToggleComment handles POST /api/v1/likes/comment/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
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

	liked, err := h.Likes.ToggleComment(ctx, principal.ID, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Comment not found")
			return
		}
		logging.FromContext(ctx).Error("toggle comment like", "error", err, "commentId", commentID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to toggle like")
		return
	}

	message := "Like removed successfully"
	if liked {
		message = "Like added successfully"
	}
	respondJSON(ctx, w, http.StatusOK, message, toggleLikeResponse{IsLiked: liked})
}
