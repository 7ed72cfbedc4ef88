package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"tiertrainer-backend/config"
	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const (
	googleIssuer     = "https://accounts.google.com"
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 300
)

var (
	ErrGoogleEmailUnverified = errors.New("google email is not verified")
	ErrGoogleAccountConflict = errors.New("email is linked to another google account")
)

// GoogleIdentity is the subset of ID token claims used for sign-in.
type GoogleIdentity struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

// IdentityVerifier checks a raw ID token and returns its claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*GoogleIdentity, error)
}

type oidcVerifier struct {
	clientID string
}

// Verify checks the signature against Google's published keys.
func (v oidcVerifier) Verify(ctx context.Context, rawIDToken string) (*GoogleIdentity, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}
	idToken, err := provider.Verifier(&oidc.Config{ClientID: v.clientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	var id GoogleIdentity
	if err := idToken.Claims(&id); err != nil {
		return nil, fmt.Errorf("decode id_token claims: %w", err)
	}
	return &id, nil
}

// GoogleSignIn runs the OAuth2 code flow and maps Google identities onto users.
type GoogleSignIn struct {
	OAuth    *oauth2.Config
	Verifier IdentityVerifier
}

func NewGoogleSignIn() *GoogleSignIn {
	return &GoogleSignIn{
		OAuth: &oauth2.Config{
			ClientID:     config.GOOGLE_CLIENT_ID,
			ClientSecret: config.GOOGLE_CLIENT_SECRET,
			RedirectURL:  config.GOOGLE_REDIRECT_URL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		Verifier: oidcVerifier{clientID: config.GOOGLE_CLIENT_ID},
	}
}

func (g *GoogleSignIn) enabled(c *gin.Context) bool {
	if g.OAuth.ClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google sign-in is not configured"})
		return false
	}
	return true
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (g *GoogleSignIn) Start(c *gin.Context) {
	if !g.enabled(c) {
		return
	}

	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sign-in"})
		return
	}
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", config.APP_ENV == "production", true)
	c.Redirect(http.StatusFound, g.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /auth/google/callback
func (g *GoogleSignIn) Callback(c *gin.Context) {
	if !g.enabled(c) {
		return
	}

	state, code := c.Query("state"), c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code or state"})
		return
	}
	if cookieState, err := c.Cookie(oauthStateCookie); err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", config.APP_ENV == "production", true)

	tok, err := g.OAuth.Exchange(c.Request.Context(), code)
	if err != nil {
		zap.L().Warn("Google code exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to exchange code"})
		return
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing id_token"})
		return
	}

	id, err := g.Verifier.Verify(c.Request.Context(), rawIDToken)
	if err != nil {
		zap.L().Warn("Google id_token rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid id_token"})
		return
	}
	if id.Sub == "" || id.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Google account has no email"})
		return
	}

	user, err := signInGoogleUser(database.DB, id)
	if errors.Is(err, ErrGoogleEmailUnverified) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your Google email address is not verified", "reason": "GOOGLE_EMAIL_UNVERIFIED"})
		return
	}
	if errors.Is(err, ErrGoogleAccountConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "This email is linked to another Google account"})
		return
	}
	if err != nil {
		zap.L().Error("Google user upsert failed", zap.String("email", id.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		return
	}

	tokenString, err := IssueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	if config.GOOGLE_FRONTEND_REDIRECT == "" {
		c.JSON(http.StatusOK, gin.H{"token": tokenString})
		return
	}
	c.Redirect(http.StatusFound, config.GOOGLE_FRONTEND_REDIRECT+"?token="+url.QueryEscape(tokenString))
}

// signInGoogleUser resolves id to a user: by google_sub, else by linking the
// account with the same email, else by creating one. Linking and creating
// require a Google-verified email. Linking an unverified local account clears
// its password.
func signInGoogleUser(db *gorm.DB, id *GoogleIdentity) (users.User, error) {
	var user users.User
	err := db.Where("google_sub = ?", id.Sub).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return users.User{}, fmt.Errorf("find by google_sub: %w", err)
	}

	if !id.EmailVerified {
		return users.User{}, ErrGoogleEmailUnverified
	}

	email := subscribers.NormalizeEmail(id.Email)
	sub := id.Sub

	err = db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.GoogleSub != nil {
			return users.User{}, ErrGoogleAccountConflict
		}
		updates := map[string]any{"google_sub": sub, "is_verified": true}
		if !user.IsVerified {
			updates["password"] = nil
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return users.User{}, fmt.Errorf("link google account: %w", err)
		}
		zap.L().Info("Linked Google account", zap.Uint("user_id", user.ID))
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return users.User{}, fmt.Errorf("find by email: %w", err)
	}

	name := id.Name
	if name == "" {
		name = id.GivenName
	}
	user = users.User{
		Name:         name,
		Email:        email,
		AuthProvider: users.ProviderGoogle,
		GoogleSub:    &sub,
		Role:         users.RoleUser,
		IsVerified:   true,
	}
	if err := db.Create(&user).Error; err != nil {
		return users.User{}, fmt.Errorf("create google user: %w", err)
	}
	if _, err := subscribers.Ensure(db, email, user.ID); err != nil {
		zap.L().Error("Failed to create subscriber row", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}
