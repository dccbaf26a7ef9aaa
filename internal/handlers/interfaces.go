package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.Profile, error)
	UpdateImage(ctx context.Context, userID, column, url string) (models.Profile, string, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	ChannelStats(ctx context.Context, userID string) (models.ChannelStats, error)
}

// VideoStore captures persistence and read models for videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params repositories.ListVideosParams) ([]models.VideoWithOwner, int, error)
	Detail(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error)
	ListLiked(ctx context.Context, userID string) ([]models.VideoWithOwner, error)
}

// CommentStore captures persistence and read models for comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	Update(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	ListForVideo(ctx context.Context, videoID, viewerID string) ([]models.CommentView, error)
}

// LikeStore captures the existence-driven like toggles.
type LikeStore interface {
	ToggleVideo(ctx context.Context, userID, videoID string) (bool, error)
	ToggleComment(ctx context.Context, userID, commentID string) (bool, error)
}

// SubscriptionStore captures subscriber/channel edge operations.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.Owner, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.Owner, error)
}

// PlaylistStore captures playlist persistence and membership.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListForUser(ctx context.Context, userID string) ([]models.Playlist, error)
	Detail(ctx context.Context, id string) (models.PlaylistDetail, error)
	Update(ctx context.Context, playlist models.Playlist) error
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// HistoryStore captures first-view-only watch history.
type HistoryStore interface {
	RecordView(ctx context.Context, userID, videoID string) error
	ListForUser(ctx context.Context, userID string) ([]models.VideoWithOwner, error)
}

// TokenIssuer issues the access/refresh credential pair and validates
// presented refresh credentials.
type TokenIssuer interface {
	Issue(userID string) (models.SessionTokens, error)
	VerifyRefresh(raw string) (string, error)
}

// SessionCache is the eviction surface the logout and profile-update paths need.
type SessionCache interface {
	Delete(userID string)
}

// UploadGateway issues presigned upload URLs and best-effort deletes objects.
type UploadGateway interface {
	PresignUpload(ctx context.Context, fileName, fileType string) (string, error)
	RemoveObject(ctx context.Context, fileURL string) bool
}
