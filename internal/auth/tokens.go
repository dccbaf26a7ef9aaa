package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrNoCredential indicates the request carried no access credential at all.
	ErrNoCredential = errors.New("unauthorized request")
	// ErrTokenMalformed indicates the credential is not a well-formed token.
	ErrTokenMalformed = errors.New("invalid token format")
	// ErrTokenExpired indicates the credential's signature is valid but it has expired.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrInvalidPayload indicates a verified token without a subject claim.
	ErrInvalidPayload = errors.New("invalid token payload")
	// ErrRefreshReused indicates a refresh token that no longer matches the
	// stored value: either rotated away already or explicitly revoked.
	ErrRefreshReused = errors.New("refresh token is expired or used")
)

// claims carries the subject user id plus the registered time bounds.
type claims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and verifies the signed access/refresh credential pair.
// Access and refresh tokens are signed with separate secrets so one can never
// be presented in place of the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokenManager constructs a manager signing HS256 tokens with the provided
// secrets and lifetimes.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// Issue creates a fresh access/refresh pair for the provided user identifier.
func (m *TokenManager) Issue(userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now().UTC()

	accessExpires := now.Add(m.accessTTL)
	accessToken, err := m.sign(userID, now, accessExpires, m.accessSecret)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshExpires := now.Add(m.refreshTTL)
	refreshToken, err := m.sign(userID, now, refreshExpires, m.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// VerifyAccess validates an access token and returns the embedded subject id.
func (m *TokenManager) VerifyAccess(raw string) (string, error) {
	return m.verify(raw, m.accessSecret)
}

// VerifyRefresh validates a refresh token and returns the embedded subject id.
func (m *TokenManager) VerifyRefresh(raw string) (string, error) {
	return m.verify(raw, m.refreshSecret)
}

func (m *TokenManager) sign(userID string, now, expires time.Time, secret []byte) (string, error) {
	c := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (m *TokenManager) verify(raw string, secret []byte) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		default:
			return "", ErrTokenInvalid
		}
	}

	c, ok := token.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", ErrInvalidPayload
	}

	return c.Subject, nil
}

// AccessTokenCookie is the cookie an access credential may arrive in, matching
// the header transport in priority order below.
const AccessTokenCookie = "accessToken"

// RefreshTokenCookie is the HTTP-only cookie the refresh credential travels in.
// It is never read from a request body.
const RefreshTokenCookie = "refreshToken"

// CredentialFromRequest extracts the access credential from the accessToken
// cookie or the Authorization: Bearer header.
func CredentialFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value, true
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		if value := strings.TrimSpace(after); value != "" {
			return value, true
		}
	}

	return "", false
}
