package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	Logger        *slog.Logger
	Users         UserStore
	Videos        VideoStore
	Comments      CommentStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	History       HistoryStore
	Tokens        TokenIssuer
	Verifier      middleware.SessionVerifier
	Cache         SessionCache
	Uploads       UploadGateway
	AuthLimiter   RateLimiter
	CookieSecure  bool
}

// NewRouter assembles every route under /api/v1 plus the health probe.
func NewRouter(deps Dependencies) http.Handler {
	users := UserHandler{
		Users:        deps.Users,
		History:      deps.History,
		Tokens:       deps.Tokens,
		Cache:        deps.Cache,
		Uploads:      deps.Uploads,
		AuthLimiter:  deps.AuthLimiter,
		CookieSecure: deps.CookieSecure,
	}
	videos := VideoHandler{Videos: deps.Videos, History: deps.History, Uploads: deps.Uploads}
	comments := CommentHandler{Comments: deps.Comments}
	likes := LikeHandler{Likes: deps.Likes}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}
	playlists := PlaylistHandler{Playlists: deps.Playlists}
	utils := UtilHandler{Uploads: deps.Uploads}

	requireAuth := middleware.Authenticate(deps.Verifier)
	maybeAuth := middleware.MaybeAuthenticate(deps.Verifier)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	r.Get("/healthz", HealthHandler{}.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", users.Register)
			r.Post("/login", users.Login)
			r.Post("/refresh-token", users.Refresh)

			r.With(maybeAuth).Get("/c/{username}", users.Channel)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", users.Logout)
				r.Get("/current-user", users.CurrentUser)
				r.Post("/change-password", users.ChangePassword)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
				r.Get("/history", users.WatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.With(maybeAuth).Get("/", videos.List)
			r.With(maybeAuth).Get("/{videoId}", videos.Detail)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/publishVideo", videos.Publish)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(maybeAuth).Get("/{videoId}", comments.ListForVideo)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/{videoId}", comments.Add)
				r.Patch("/{commentId}", comments.Update)
				r.Delete("/{commentId}", comments.Delete)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/video/{videoId}", likes.ToggleVideo)
			r.Post("/comment/{commentId}", likes.ToggleComment)
			r.Get("/videos", videos.LikedVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/toggle/{channelId}", subscriptions.Toggle)
			r.Get("/channel/{channelId}", subscriptions.Subscribers)
			r.Get("/user/{subscriberId}", subscriptions.SubscribedChannels)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", playlists.Create)
			r.Get("/", playlists.List)
			r.Get("/{playlistId}", playlists.Detail)
			r.Patch("/{playlistId}", playlists.Update)
			r.Delete("/{playlistId}", playlists.Delete)
			r.Post("/{playlistId}/videos/{videoId}", playlists.AddVideo)
			r.Delete("/{playlistId}/videos/{videoId}", playlists.RemoveVideo)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/stats", users.ChannelStats)
		})

		r.With(requireAuth).Get("/utils/presigned-url", utils.PresignUpload)
	})

	return r
}
