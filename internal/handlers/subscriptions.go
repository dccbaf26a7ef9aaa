package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// SubscriptionHandler implements the subscription toggle and listing endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
}

type toggleSubscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/toggle/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return
	}

	channelID := chi.URLParam(r, "channelId")
	if !validID(channelID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid channel ID")
		return
	}
	if channelID == principal.ID {
		respondError(ctx, w, http.StatusBadRequest, "You cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, principal.ID, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Channel not found")
			return
		}
		logging.FromContext(ctx).Error("toggle subscription", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to toggle subscription")
		return
	}

	message := "Unsubscribed successfully"
	if subscribed {
		message = "Subscribed successfully"
	}
	respondJSON(ctx, w, http.StatusOK, message, toggleSubscriptionResponse{Subscribed: subscribed})
}

// Subscribers handles GET /api/v1/subscriptions/channel/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := chi.URLParam(r, "channelId")
	if !validID(channelID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		logging.FromContext(ctx).Error("list subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch subscribers")
		return
	}
	if subscribers == nil {
		subscribers = []models.Owner{}
	}

	respondJSON(ctx, w, http.StatusOK, "Subscribers fetched successfully", subscribers)
}

// SubscribedChannels handles GET /api/v1/subscriptions/user/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID := chi.URLParam(r, "subscriberId")
	if !validID(subscriberID) {
		respondError(ctx, w, http.StatusBadRequest, "Invalid subscriber ID")
		return
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		logging.FromContext(ctx).Error("list subscribed channels", "error", err, "subscriberId", subscriberID)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to fetch subscribed channels")
		return
	}
	if channels == nil {
		channels = []models.Owner{}
	}

	respondJSON(ctx, w, http.StatusOK, "Subscribed channels fetched successfully", channels)
}
