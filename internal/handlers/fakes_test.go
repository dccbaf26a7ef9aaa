package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) FindProfileByID(_ context.Context, id string) (models.Profile, error) {
	user, ok := f.users[id]
	if !ok {
		return models.Profile{}, repositories.ErrNotFound
	}
	return user.Sanitize(), nil
}

func (f *fakeUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	user, ok := f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	f.users[userID] = user
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	user, ok := f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = passwordHash
	f.users[userID] = user
	return nil
}

func (f *fakeUserStore) UpdateAccount(_ context.Context, userID, fullName, email string) (models.Profile, error) {
	for id, existing := range f.users {
		if id != userID && existing.Email == email {
			return models.Profile{}, repositories.ErrConflict
		}
	}
	user, ok := f.users[userID]
	if !ok {
		return models.Profile{}, repositories.ErrNotFound
	}
	user.FullName = fullName
	user.Email = email
	f.users[userID] = user
	return user.Sanitize(), nil
}

func (f *fakeUserStore) UpdateImage(_ context.Context, userID, column, url string) (models.Profile, string, error) {
	user, ok := f.users[userID]
	if !ok {
		return models.Profile{}, "", repositories.ErrNotFound
	}
	previous := user.Avatar
	if column == "cover_image" {
		previous = user.CoverImage
		user.CoverImage = url
	} else {
		user.Avatar = url
	}
	f.users[userID] = user
	return user.Sanitize(), previous, nil
}

func (f *fakeUserStore) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	for _, user := range f.users {
		if user.Username == username {
			return models.ChannelProfile{
				ID:       user.ID,
				Username: user.Username,
				FullName: user.FullName,
				Email:    user.Email,
				Videos:   []models.VideoSummary{},
			}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (f *fakeUserStore) ChannelStats(_ context.Context, userID string) (models.ChannelStats, error) {
	user, ok := f.users[userID]
	if !ok {
		return models.ChannelStats{}, repositories.ErrNotFound
	}
	return models.ChannelStats{ID: user.ID, Username: user.Username, Videos: []models.VideoStats{}}, nil
}

type fakeVideoStore struct {
	videos map[string]models.Video
	owners *fakeUserStore
	liked  map[string]map[string]bool
}

func newFakeVideoStore(owners *fakeUserStore) *fakeVideoStore {
	return &fakeVideoStore{
		videos: make(map[string]models.Video),
		owners: owners,
		liked:  make(map[string]map[string]bool),
	}
}

func (f *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	f.videos[video.ID] = video
	return nil
}

func (f *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := f.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (f *fakeVideoStore) Update(_ context.Context, video models.Video) error {
	if _, ok := f.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.videos[video.ID] = video
	return nil
}

func (f *fakeVideoStore) Delete(_ context.Context, id string) error {
	if _, ok := f.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.videos, id)
	return nil
}

func (f *fakeVideoStore) List(_ context.Context, params repositories.ListVideosParams) ([]models.VideoWithOwner, int, error) {
	params = params.Normalize()

	var matched []models.Video
	for _, video := range f.videos {
		if params.Query != "" && !strings.Contains(strings.ToLower(video.Title), strings.ToLower(params.Query)) {
			continue
		}
		if params.OwnerID != "" && video.OwnerID != params.OwnerID {
			continue
		}
		matched = append(matched, video)
	}

	sort.Slice(matched, func(i, j int) bool {
		if params.SortType == "asc" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (params.Page - 1) * params.Limit
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}

	page := []models.VideoWithOwner{}
	for _, video := range matched[start:end] {
		page = append(page, f.withOwner(video))
	}
	return page, total, nil
}

func (f *fakeVideoStore) Detail(_ context.Context, videoID, viewerID string) (models.VideoDetail, error) {
	video, ok := f.videos[videoID]
	if !ok {
		return models.VideoDetail{}, repositories.ErrNotFound
	}
	withOwner := f.withOwner(video)
	detail := models.VideoDetail{
		Video:      withOwner.Video,
		Owner:      withOwner.Owner,
		TotalLikes: len(f.liked[videoID]),
	}
	if viewerID != "" {
		detail.IsLiked = f.liked[videoID][viewerID]
	}
	return detail, nil
}

func (f *fakeVideoStore) ListLiked(_ context.Context, userID string) ([]models.VideoWithOwner, error) {
	videos := []models.VideoWithOwner{}
	for videoID, likers := range f.liked {
		if likers[userID] {
			if video, ok := f.videos[videoID]; ok {
				videos = append(videos, f.withOwner(video))
			}
		}
	}
	return videos, nil
}

func (f *fakeVideoStore) withOwner(video models.Video) models.VideoWithOwner {
	out := models.VideoWithOwner{Video: video}
	if owner, ok := f.owners.users[video.OwnerID]; ok {
		out.Owner = models.Owner{ID: owner.ID, Username: owner.Username, FullName: owner.FullName, Avatar: owner.Avatar}
	}
	return out
}

type fakeCommentStore struct {
	comments map[string]models.Comment
	videos   *fakeVideoStore
}

func newFakeCommentStore(videos *fakeVideoStore) *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[string]models.Comment), videos: videos}
}

func (f *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	if _, ok := f.videos.videos[comment.VideoID]; !ok {
		return repositories.ErrNotFound
	}
	f.comments[comment.ID] = comment
	return nil
}

func (f *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := f.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (f *fakeCommentStore) Update(_ context.Context, id, content string) error {
	comment, ok := f.comments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	comment.Content = content
	f.comments[id] = comment
	return nil
}

func (f *fakeCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := f.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeCommentStore) ListForVideo(_ context.Context, videoID, viewerID string) ([]models.CommentView, error) {
	views := []models.CommentView{}
	for _, comment := range f.comments {
		if comment.VideoID != videoID {
			continue
		}
		views = append(views, models.CommentView{
			ID:        comment.ID,
			Content:   comment.Content,
			VideoID:   comment.VideoID,
			CreatedAt: comment.CreatedAt,
			UpdatedAt: comment.UpdatedAt,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	return views, nil
}

type fakeLikeStore struct {
	videos *fakeVideoStore
}

func (f *fakeLikeStore) ToggleVideo(_ context.Context, userID, videoID string) (bool, error) {
	if _, ok := f.videos.videos[videoID]; !ok {
		return false, repositories.ErrNotFound
	}
	likers, ok := f.videos.liked[videoID]
	if !ok {
		likers = make(map[string]bool)
		f.videos.liked[videoID] = likers
	}
	if likers[userID] {
		delete(likers, userID)
		return false, nil
	}
	likers[userID] = true
	return true, nil
}

func (f *fakeLikeStore) ToggleComment(_ context.Context, userID, commentID string) (bool, error) {
	return false, repositories.ErrNotFound
}

type fakeSubscriptionStore struct {
	edges map[string]map[string]bool
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{edges: make(map[string]map[string]bool)}
}

func (f *fakeSubscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	subs, ok := f.edges[channelID]
	if !ok {
		subs = make(map[string]bool)
		f.edges[channelID] = subs
	}
	if subs[subscriberID] {
		delete(subs, subscriberID)
		return false, nil
	}
	subs[subscriberID] = true
	return true, nil
}

func (f *fakeSubscriptionStore) Subscribers(_ context.Context, channelID string) ([]models.Owner, error) {
	owners := []models.Owner{}
	for subscriberID := range f.edges[channelID] {
		owners = append(owners, models.Owner{ID: subscriberID})
	}
	return owners, nil
}

func (f *fakeSubscriptionStore) SubscribedChannels(_ context.Context, subscriberID string) ([]models.Owner, error) {
	owners := []models.Owner{}
	for channelID, subs := range f.edges {
		if subs[subscriberID] {
			owners = append(owners, models.Owner{ID: channelID})
		}
	}
	return owners, nil
}

type fakePlaylistStore struct {
	playlists map[string]models.Playlist
	members   map[string][]string
	videos    *fakeVideoStore
}

func newFakePlaylistStore(videos *fakeVideoStore) *fakePlaylistStore {
	return &fakePlaylistStore{
		playlists: make(map[string]models.Playlist),
		members:   make(map[string][]string),
		videos:    videos,
	}
}

func (f *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	f.playlists[playlist.ID] = playlist
	return nil
}

func (f *fakePlaylistStore) FindByID(_ context.Context, id string) (models.Playlist, error) {
	playlist, ok := f.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (f *fakePlaylistStore) ListForUser(_ context.Context, userID string) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	for _, playlist := range f.playlists {
		if playlist.OwnerID == userID {
			playlists = append(playlists, playlist)
		}
	}
	return playlists, nil
}

func (f *fakePlaylistStore) Detail(_ context.Context, id string) (models.PlaylistDetail, error) {
	playlist, ok := f.playlists[id]
	if !ok {
		return models.PlaylistDetail{}, repositories.ErrNotFound
	}
	detail := models.PlaylistDetail{Playlist: playlist, Videos: []models.VideoWithOwner{}}
	for _, videoID := range f.members[id] {
		if video, ok := f.videos.videos[videoID]; ok {
			detail.Videos = append(detail.Videos, f.videos.withOwner(video))
		}
	}
	return detail, nil
}

func (f *fakePlaylistStore) Update(_ context.Context, playlist models.Playlist) error {
	if _, ok := f.playlists[playlist.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.playlists[playlist.ID] = playlist
	return nil
}

func (f *fakePlaylistStore) Delete(_ context.Context, id string) error {
	if _, ok := f.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.playlists, id)
	delete(f.members, id)
	return nil
}

func (f *fakePlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	if _, ok := f.videos.videos[videoID]; !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range f.members[playlistID] {
		if existing == videoID {
			return nil
		}
	}
	f.members[playlistID] = append(f.members[playlistID], videoID)
	return nil
}

func (f *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	members := f.members[playlistID]
	for i, existing := range members {
		if existing == videoID {
			f.members[playlistID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeHistoryStore struct {
	views  map[string][]string
	videos *fakeVideoStore
}

func newFakeHistoryStore(videos *fakeVideoStore) *fakeHistoryStore {
	return &fakeHistoryStore{views: make(map[string][]string), videos: videos}
}

func (f *fakeHistoryStore) RecordView(_ context.Context, userID, videoID string) error {
	for _, existing := range f.views[userID] {
		if existing == videoID {
			return nil
		}
	}
	f.views[userID] = append(f.views[userID], videoID)
	return nil
}

func (f *fakeHistoryStore) ListForUser(_ context.Context, userID string) ([]models.VideoWithOwner, error) {
	videos := []models.VideoWithOwner{}
	viewed := f.views[userID]
	for i := len(viewed) - 1; i >= 0; i-- {
		if video, ok := f.videos.videos[viewed[i]]; ok {
			videos = append(videos, f.videos.withOwner(video))
		}
	}
	return videos, nil
}

type fakeUploadGateway struct {
	removed   []string
	presigned []string
	failURLs  map[string]bool
}

func newFakeUploadGateway() *fakeUploadGateway {
	return &fakeUploadGateway{failURLs: make(map[string]bool)}
}

func (f *fakeUploadGateway) PresignUpload(_ context.Context, fileName, fileType string) (string, error) {
	f.presigned = append(f.presigned, fileName)
	return "https://uploads.example.com/" + fileName + "?signed=1", nil
}

func (f *fakeUploadGateway) RemoveObject(_ context.Context, fileURL string) bool {
	if f.failURLs[fileURL] {
		return false
	}
	f.removed = append(f.removed, fileURL)
	return true
}

type testEnv struct {
	router        http.Handler
	users         *fakeUserStore
	videos        *fakeVideoStore
	comments      *fakeCommentStore
	likes         *fakeLikeStore
	subscriptions *fakeSubscriptionStore
	playlists     *fakePlaylistStore
	history       *fakeHistoryStore
	uploads       *fakeUploadGateway
	tokens        *auth.TokenManager
	cache         *auth.ProfileCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserStore()
	videos := newFakeVideoStore(users)
	comments := newFakeCommentStore(videos)
	likes := &fakeLikeStore{videos: videos}
	subscriptions := newFakeSubscriptionStore()
	playlists := newFakePlaylistStore(videos)
	history := newFakeHistoryStore(videos)
	uploads := newFakeUploadGateway()

	tokens := auth.NewTokenManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 24*time.Hour)
	cache := auth.NewProfileCache(5*time.Minute, time.Minute)
	verifier := auth.NewVerifier(tokens, cache, users)

	env := &testEnv{
		users:         users,
		videos:        videos,
		comments:      comments,
		likes:         likes,
		subscriptions: subscriptions,
		playlists:     playlists,
		history:       history,
		uploads:       uploads,
		tokens:        tokens,
		cache:         cache,
	}

	env.router = NewRouter(Dependencies{
		Users:         users,
		Videos:        videos,
		Comments:      comments,
		Likes:         likes,
		Subscriptions: subscriptions,
		Playlists:     playlists,
		History:       history,
		Tokens:        tokens,
		Verifier:      verifier,
		Cache:         cache,
		Uploads:       uploads,
	})

	return env
}

// createUser seeds a user with a bcrypt-hashed password and returns the
// record plus a valid access token.
func (env *testEnv) createUser(t *testing.T, username string) (models.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  username + " tester",
		Password:  string(hashed),
		Avatar:    "https://cdn.example.com/" + username + ".png",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := env.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	issued, err := env.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	return user, issued.AccessToken
}

func (env *testEnv) createVideo(t *testing.T, ownerID, title string) models.Video {
	t.Helper()

	now := time.Now().UTC()
	video := models.Video{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "about " + title,
		VideoFile:   "https://cdn.example.com/videos/" + title + ".mp4",
		Thumbnail:   "https://cdn.example.com/thumbs/" + title + ".png",
		Duration:    120,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := env.videos.Create(context.Background(), video); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

func (env *testEnv) do(t *testing.T, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

type responseEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()

	var env responseEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) responseEnvelope {
	t.Helper()

	env := decodeEnvelope(t, rec)
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode response data: %v (data %q)", err, string(env.Data))
		}
	}
	return env
}
