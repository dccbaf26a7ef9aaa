package models

import "time"

// User is the full account record, including credential fields that must never
// leave the repository layer except through the auth flows that need them.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Password     string
	Avatar       string
	CoverImage   string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the sanitized view of a user: everything except the password hash
// and the stored refresh token. It is what the session verifier caches and
// what the API returns for the authenticated user.
type Profile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Sanitize strips credential fields from a full user record.
func (u User) Sanitize() Profile {
	return Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// Owner is the public projection of a user embedded in read models. It never
// carries email or credential fields.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Video is a published video record.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    int       `json:"duration"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoWithOwner is a video joined with its owner's public projection.
type VideoWithOwner struct {
	Video
	Owner Owner `json:"owner"`
}

// VideoDetail is the single-video read model: owner, like count, the
// requester's like flag and the view count derived from watch history.
type VideoDetail struct {
	Video
	Owner      Owner `json:"owner"`
	TotalLikes int   `json:"totalLikes"`
	TotalViews int   `json:"totalViews"`
	IsLiked    bool  `json:"isLiked"`
}

// VideoSummary is the minimal projection embedded in channel profiles.
type VideoSummary struct {
	ID        string `json:"id"`
	VideoFile string `json:"videoFile"`
	Thumbnail string `json:"thumbnail"`
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
}

// VideoPage is one page of the video listing read model.
type VideoPage struct {
	Videos      []VideoWithOwner `json:"videos"`
	TotalVideos int              `json:"totalVideos"`
	CurrentPage int              `json:"currentPage"`
	Limit       int              `json:"limit"`
	HasNextPage bool             `json:"hasNextPage"`
	TotalPages  int              `json:"totalPages"`
}

// Comment is a comment on a video.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"ownerId"`
	VideoID   string    `json:"videoId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentView is a comment joined with its like count, the requester's like
// flag and the commenter's public projection.
type CommentView struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	VideoID    string    `json:"videoId"`
	Owner      Owner     `json:"owner"`
	LikesCount int       `json:"likesCount"`
	IsLiked    bool      `json:"isLiked"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ChannelProfile is the public channel read model.
type ChannelProfile struct {
	ID                        string         `json:"id"`
	Username                  string         `json:"username"`
	FullName                  string         `json:"fullName"`
	Avatar                    string         `json:"avatar"`
	CoverImage                string         `json:"coverImage"`
	Email                     string         `json:"email"`
	SubscribersCount          int            `json:"subscribersCount"`
	ChannelsSubscribedToCount int            `json:"channelsSubscribedToCount"`
	IsSubscribed              bool           `json:"isSubscribed"`
	Videos                    []VideoSummary `json:"videos"`
}

// VideoStats is one owned video with its derived counts.
type VideoStats struct {
	Video
	Views      int `json:"views"`
	LikesCount int `json:"likesCount"`
}

// ChannelStats aggregates every owned video's counts for the owner dashboard.
type ChannelStats struct {
	ID               string       `json:"id"`
	Username         string       `json:"username"`
	FullName         string       `json:"fullName"`
	Avatar           string       `json:"avatar"`
	CoverImage       string       `json:"coverImage"`
	TotalVideos      int          `json:"totalVideos"`
	TotalSubscribers int          `json:"totalSubscribers"`
	TotalViews       int          `json:"totalViews"`
	TotalLikes       int          `json:"totalLikes"`
	Videos           []VideoStats `json:"videos"`
}

// Playlist is a named collection of videos owned by a user.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistDetail is a playlist joined with its member videos in insertion order.
type PlaylistDetail struct {
	Playlist
	Videos []VideoWithOwner `json:"videos"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
