package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const oauthStateCookie = "oauth_state"

// OAuthProviders holds the configured social login providers. A nil field
// means the provider is disabled.
type OAuthProviders struct {
	Google *oauth2.Config
	Github *oauth2.Config
}

type oauthProfile struct {
	Email     string
	FirstName string
	LastName  string
	Photo     string
}

func NewOAuthProviders(cfg *config.Config) *OAuthProviders {
	p := &OAuthProviders{}
	if cfg.GoogleClientID != "" {
		p.Google = &oauth2.Config{
			RedirectURL:  cfg.GoogleCallbackURL,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		}
	} else {
		logger.Warn().Msg("Google OAuth keys missing")
	}

	if cfg.GithubClientID != "" {
		p.Github = &oauth2.Config{
			RedirectURL:  cfg.GithubCallbackURL,
			ClientID:     cfg.GithubClientID,
			ClientSecret: cfg.GithubClientSecret,
			Scopes:       []string{"user:email", "read:user"},
			Endpoint:     github.Endpoint,
		}
	} else {
		logger.Warn().Msg("GitHub OAuth keys missing")
	}
	return p
}

func (h *Handler) oauthRedirect(c *gin.Context, conf *oauth2.Config, name string) {
	if conf == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": name + " OAuth not configured"})
		return
	}
	state := utils.GenerateID()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.cfg.IsProduction(), true)
	c.Redirect(http.StatusTemporaryRedirect, conf.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

// exchange validates the state cookie and trades the code for a client.
func (h *Handler) exchange(c *gin.Context, conf *oauth2.Config) (*http.Client, error) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		return nil, errors.New("state mismatch")
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cfg.IsProduction(), true)

	token, err := conf.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		return nil, err
	}
	return conf.Client(context.WithoutCancel(c.Request.Context()), token), nil
}

// GoogleLogin GET /api/auth/google/login
func (h *Handler) GoogleLogin(c *gin.Context) {
	h.oauthRedirect(c, h.oauth.Google, "Google")
}

// GoogleCallback GET /api/auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.oauth.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	client, err := h.exchange(c, h.oauth.Google)
	if err != nil {
		logger.Error().Err(err).Msg("Google OAuth exchange failed")
		h.oauthFailed(c, "exchange_failed")
		return
	}

	var info struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := fetchJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &info); err != nil {
		logger.Error().Err(err).Msg("Failed to get Google user info")
		h.oauthFailed(c, "profile_failed")
		return
	}
	h.finishOAuth(c, oauthProfile{Email: info.Email, FirstName: info.GivenName, LastName: info.FamilyName, Photo: info.Picture})
}

// GithubLogin GET /api/auth/github/login
func (h *Handler) GithubLogin(c *gin.Context) {
	h.oauthRedirect(c, h.oauth.Github, "GitHub")
}

// GithubCallback GET /api/auth/github/callback
func (h *Handler) GithubCallback(c *gin.Context) {
	if h.oauth.Github == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "GitHub OAuth not configured"})
		return
	}
	client, err := h.exchange(c, h.oauth.Github)
	if err != nil {
		logger.Error().Err(err).Msg("GitHub OAuth exchange failed")
		h.oauthFailed(c, "exchange_failed")
		return
	}

	var info struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
		Email     string `json:"email"`
	}
	if err := fetchJSON(client, "https://api.github.com/user", &info); err != nil {
		h.oauthFailed(c, "profile_failed")
		return
	}
	if info.Email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := fetchJSON(client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					info.Email = e.Email
				}
			}
		}
	}

	first, last, _ := strings.Cut(strings.TrimSpace(info.Name), " ")
	if first == "" {
		first = info.Login
	}
	h.finishOAuth(c, oauthProfile{Email: info.Email, FirstName: first, LastName: last, Photo: info.AvatarURL})
}

func fetchJSON(client *http.Client, endpoint string, dest interface{}) error {
	resp, err := client.Get(endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// finishOAuth resolves the account by email, creating an activated user on
// first sign-in, and redirects to the frontend with a session token.
func (h *Handler) finishOAuth(c *gin.Context, profile oauthProfile) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		h.oauthFailed(c, "email_missing")
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	var user models.User
	err := db.Scopes(models.NotDeleted).Where("LOWER(email) = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.Status == models.UserBlocked {
			h.oauthFailed(c, "blocked")
			return
		}
		if user.Status == models.UserPending {
			db.Model(&user).Update("status", models.UserActivated)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if !h.svc.Settings.Bool(ctx, models.SettingRegistrationOpen, true) {
			h.oauthFailed(c, "registration_closed")
			return
		}
		user = models.User{
			Email:     email,
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			Photo:     profile.Photo,
			Username:  utils.GenerateUsername(profile.FirstName+" "+profile.LastName, email),
			Status:    models.UserActivated,
		}
		if err := db.Create(&user).Error; err != nil {
			logger.Error().Err(err).Str("email", email).Msg("Failed to create user during OAuth")
			h.oauthFailed(c, "account_failed")
			return
		}
		logger.Info().Str("user_id", user.ID).Msg("New user registered via OAuth")
	default:
		logger.Error().Err(err).Msg("Database query failed during OAuth login")
		h.oauthFailed(c, "account_failed")
		return
	}

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		h.oauthFailed(c, "token_failed")
		return
	}
	logger.Info().Str("user_id", user.ID).Msg("User logged in via OAuth")
	c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("%s/oauth-callback?token=%s", h.frontendURL(), url.QueryEscape(token)))
}

func (h *Handler) oauthFailed(c *gin.Context, reason string) {
	c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("%s/login?error=%s", h.frontendURL(), reason))
}

func (h *Handler) frontendURL() string {
	first, _, _ := strings.Cut(h.cfg.FrontendURL, ",")
	return strings.TrimRight(strings.TrimSpace(first), "/")
}
