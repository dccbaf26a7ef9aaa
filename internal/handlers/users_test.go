package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	body := `{"fullName":"Alice Doe","email":"Alice@Example.com","username":"Alice","password":"password123","avatar":"https://cdn.example.com/a.png"}`
	rec := env.do(t, http.MethodPost, "/api/v1/users/register", "", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var data struct {
		User         models.Profile `json:"user"`
		AccessToken  string         `json:"accessToken"`
		RefreshToken string         `json:"refreshToken"`
	}
	resp := decodeData(t, rec, &data)
	if !resp.Success {
		t.Fatalf("expected success envelope, got %+v", resp)
	}
	if data.User.Email != "alice@example.com" || data.User.Username != "alice" {
		t.Fatalf("expected lowercased identity fields, got %+v", data.User)
	}
	if data.AccessToken == "" || data.RefreshToken == "" {
		t.Fatal("expected a token pair in the response")
	}

	stored, err := env.users.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("find registered user: %v", err)
	}
	if stored.Password == "password123" {
		t.Fatal("password must be stored hashed")
	}
	if stored.RefreshToken != data.RefreshToken {
		t.Fatal("refresh token must be persisted on the user record")
	}

	if !hasCookie(rec, auth.RefreshTokenCookie) {
		t.Fatal("expected refresh token cookie to be set")
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing fields", `{"email":"a@example.com"}`},
		{"missing avatar", `{"fullName":"A","email":"a@example.com","username":"a","password":"password123"}`},
		{"bad email", `{"fullName":"A","email":"nope","username":"a","password":"password123","avatar":"x"}`},
		{"short password", `{"fullName":"A","email":"a@example.com","username":"a","password":"short","avatar":"x"}`},
		{"bad json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/users/register", "", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")

	body := `{"fullName":"Alice Doe","email":"alice@example.com","username":"alice2","password":"password123","avatar":"x"}`
	rec := env.do(t, http.MethodPost, "/api/v1/users/register", "", body)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Message != "User with email or username already exists" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"alice@example.com","password":"password123"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var data struct {
		User         models.Profile `json:"user"`
		AccessToken  string         `json:"accessToken"`
		RefreshToken string         `json:"refreshToken"`
	}
	decodeData(t, rec, &data)
	if data.User.ID != user.ID {
		t.Fatalf("expected logged-in user %s, got %s", user.ID, data.User.ID)
	}

	// The access token must authenticate subsequent requests.
	rec = env.do(t, http.MethodGet, "/api/v1/users/current-user", data.AccessToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from current-user, got %d", rec.Code)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"ghost@example.com","password":"password123"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Message != "User does not exist" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"alice@example.com","password":"wrong-password"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCurrentUser_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/current-user", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/users/current-user", "garbage-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed token, got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Message != "invalid token format" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestLogout_EvictsCacheAndClearsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "alice")
	if err := env.users.SetRefreshToken(context.Background(), user.ID, "stored-refresh"); err != nil {
		t.Fatalf("seed refresh token: %v", err)
	}

	// Prime the cache through an authenticated request.
	if rec := env.do(t, http.MethodGet, "/api/v1/users/current-user", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 priming cache, got %d", rec.Code)
	}
	if _, ok := env.cache.Get(user.ID); !ok {
		t.Fatal("expected profile to be cached after verification")
	}

	rec := env.do(t, http.MethodPost, "/api/v1/users/logout", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	if _, ok := env.cache.Get(user.ID); ok {
		t.Fatal("expected cached profile to be evicted on logout")
	}

	stored, err := env.users.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatalf("expected stored refresh token cleared, got %q", stored.RefreshToken)
	}
}

func TestRefresh_RotatesTokens(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser(t, "alice")

	issued, err := env.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	if err := env.users.SetRefreshToken(context.Background(), user.ID, issued.RefreshToken); err != nil {
		t.Fatalf("seed refresh token: %v", err)
	}

	rec := env.doWithCookie(t, http.MethodPost, "/api/v1/users/refresh-token",
		&http.Cookie{Name: auth.RefreshTokenCookie, Value: issued.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var data struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, rec, &data)
	if data.RefreshToken == "" {
		t.Fatal("expected a new refresh token")
	}

	stored, err := env.users.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.RefreshToken != data.RefreshToken {
		t.Fatal("expected the rotated refresh token to be persisted")
	}
}

func TestRefresh_RejectsRotatedAwayToken(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser(t, "alice")

	old, err := env.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	// Stored value differs from the presented one: the old token was rotated away.
	if err := env.users.SetRefreshToken(context.Background(), user.ID, "a-different-stored-token"); err != nil {
		t.Fatalf("seed refresh token: %v", err)
	}

	rec := env.doWithCookie(t, http.MethodPost, "/api/v1/users/refresh-token",
		&http.Cookie{Name: auth.RefreshTokenCookie, Value: old.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Message != "refresh token is expired or used" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestRefresh_RequiresCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/refresh-token", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/v1/users/change-password", token,
		`{"oldPassword":"wrong","newPassword":"newpassword1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong old password, got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Message != "Invalid old password" {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/users/change-password", token,
		`{"oldPassword":"password123","newPassword":"newpassword1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	// The new password must now authenticate.
	rec = env.do(t, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"alice@example.com","password":"newpassword1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login with new password to succeed, got %d", rec.Code)
	}
}

func TestUpdateAccount_EvictsCachedProfile(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "alice")

	if rec := env.do(t, http.MethodGet, "/api/v1/users/current-user", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 priming cache, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodPatch, "/api/v1/users/update-account", token,
		`{"fullName":"Alice Renamed","email":"renamed@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var profile models.Profile
	decodeData(t, rec, &profile)
	if profile.FullName != "Alice Renamed" || profile.Email != "renamed@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, ok := env.cache.Get(user.ID); ok {
		t.Fatal("expected cached profile eviction after account update")
	}
}

func TestUpdateAccount_EmailConflict(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "bob")
	_, token := env.createUser(t, "alice")

	rec := env.do(t, http.MethodPatch, "/api/v1/users/update-account", token,
		`{"fullName":"Alice","email":"bob@example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestUpdateAvatar_RemovesPreviousObject(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "alice")
	previous := user.Avatar

	rec := env.do(t, http.MethodPatch, "/api/v1/users/avatar", token,
		`{"avatar":"https://cdn.example.com/new-avatar.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var profile models.Profile
	decodeData(t, rec, &profile)
	if profile.Avatar != "https://cdn.example.com/new-avatar.png" {
		t.Fatalf("unexpected avatar: %q", profile.Avatar)
	}

	if len(env.uploads.removed) != 1 || env.uploads.removed[0] != previous {
		t.Fatalf("expected previous avatar object removal, removed %v", env.uploads.removed)
	}
}

func TestChannelProfile(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/v1/users/c/alice", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var profile models.ChannelProfile
	decodeData(t, rec, &profile)
	if profile.ID != user.ID {
		t.Fatalf("unexpected channel profile: %+v", profile)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/users/c/ghost", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown channel, got %d", rec.Code)
	}
}

func TestWatchHistory(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "alice")
	video := env.createVideo(t, user.ID, "first watch")

	if err := env.history.RecordView(context.Background(), user.ID, video.ID); err != nil {
		t.Fatalf("seed view: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/users/history", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var videos []models.VideoWithOwner
	decodeData(t, rec, &videos)
	if len(videos) != 1 || videos[0].ID != video.ID {
		t.Fatalf("unexpected history payload: %+v", videos)
	}
}

func TestChannelStats_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/stats", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	_, token := env.createUser(t, "alice")
	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/stats", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func (env *testEnv) doWithCookie(t *testing.T, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(""))
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func hasCookie(rec *httptest.ResponseRecorder, name string) bool {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name && cookie.Value != "" {
			return true
		}
	}
	return false
}
