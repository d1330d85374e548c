// Package authgoogle implements Google sign-in. A successful callback
// finds, links or creates the user and hands a bearer token to the frontend.
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/bayit/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/bayit/internal/app/store/users"
	"github.com/dalemusser/bayit/internal/app/system/auth"
	"github.com/dalemusser/bayit/internal/app/system/normalize"
	"github.com/dalemusser/bayit/internal/app/system/timeouts"
	"github.com/dalemusser/bayit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's v2 userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Handler handles Google OAuth authentication.
type Handler struct {
	Users       *userstore.Store
	StateStore  *oauthstate.Store
	Tokens      *auth.Tokens
	OAuth       *oauth2.Config
	UserInfoURL string
	FrontendURL string // e.g. "https://bayit.example"; tokens land on FrontendURL/auth/callback
	Log         *zap.Logger
}

// NewHandler creates a Google OAuth handler. baseURL is this API's public
// origin, used for the redirect URL registered with Google.
func NewHandler(users *userstore.Store, states *oauthstate.Store, tokens *auth.Tokens,
	clientID, clientSecret, baseURL, frontendURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		StateStore: states,
		Tokens:     tokens,
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  strings.TrimRight(baseURL, "/") + "/auth/google/callback",
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UserInfoURL: DefaultUserInfoURL,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
		Log:         logger,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.OAuth != nil && h.OAuth.ClientID != "" && h.OAuth.ClientSecret != ""
}

// ServeLogin handles GET /auth/google by redirecting to Google's consent
// screen. ?return=/path is carried through the state and restored after sign-in.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.redirectError(w, r, "google_not_configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	state, err := h.StateStore.Issue(ctx, safeReturn(query.Get(r, "return")))
	if err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", q.Get("error_description")))
		h.redirectError(w, r, "google_denied")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	returnTo, valid, err := h.StateStore.Consume(ctx, q.Get("state"))
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.redirectError(w, r, "invalid_state")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirectError(w, r, "invalid_code")
		return
	}
	token, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.redirectError(w, r, "token_exchange")
		return
	}
	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.redirectError(w, r, "user_info")
		return
	}
	if info.ID == "" || info.Email == "" || !info.EmailVerified {
		h.Log.Warn("Google account has no verified email", zap.String("google_id", info.ID))
		h.redirectError(w, r, "email_unverified")
		return
	}

	u, err := h.findOrCreate(ctx, info)
	if err != nil {
		h.Log.Error("failed to resolve Google user", zap.String("google_id", info.ID), zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}

	jwt, err := h.Tokens.Issue(u.ID)
	if err != nil {
		h.Log.Error("issue token", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}
	h.Log.Info("Google sign-in", zap.String("user_id", u.ID.Hex()))

	// The token travels in the fragment so it never reaches server logs.
	frag := url.Values{"token": {jwt}}
	if returnTo != "" {
		frag.Set("return", returnTo)
	}
	http.Redirect(w, r, h.FrontendURL+"/auth/callback#"+frag.Encode(), http.StatusSeeOther)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.OAuth.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// findOrCreate resolves the Google identity: by google id, then by email
// (linking the account), otherwise a new verified user without a password.
func (h *Handler) findOrCreate(ctx context.Context, info *googleUserInfo) (*models.User, error) {
	u, err := h.Users.GetByGoogleID(ctx, info.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	u, err = h.Users.GetByEmail(ctx, info.Email)
	switch {
	case err == nil:
		if err := h.Users.LinkGoogleID(ctx, u.ID, info.ID); err != nil {
			return nil, err
		}
		h.Log.Info("linked Google account", zap.String("user_id", u.ID.Hex()))
		return u, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, err
	}

	name := normalize.Name(info.Name)
	if name == "" {
		name, _, _ = strings.Cut(info.Email, "@")
	}
	sub := info.ID
	created, err := h.Users.Create(ctx, models.User{
		FullName:   name,
		Email:      info.Email,
		GoogleID:   &sub,
		IsVerified: true,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Lost a race with a parallel callback for the same account.
		return h.Users.GetByEmail(ctx, info.Email)
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.FrontendURL+"/login?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// safeReturn keeps only same-origin relative paths.
func safeReturn(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return ""
	}
	return p
}
