package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type googleAdapter struct {
	cfg Config
}

func NewGoogleAdapter(cfg Config) (Adapter, error) {
	if err := checkCredentials(cfg); err != nil {
		return nil, err
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = googleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}
	return &googleAdapter{cfg: cfg}, nil
}

func (a *googleAdapter) Name() string {
	return "google"
}

func (a *googleAdapter) AuthCodeURL(redirectURI, state string) string {
	query := url.Values{}
	query.Set("client_id", a.cfg.ClientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("response_type", "code")
	query.Set("scope", "openid")
	query.Set("state", state)
	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, query.Encode())
}

func (a *googleAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	params := url.Values{}
	params.Set("client_id", a.cfg.ClientID)
	params.Set("client_secret", a.cfg.ClientSecret)
	params.Set("code", code)
	params.Set("redirect_uri", redirectURI)
	params.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Google token endpoint failed", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("%w: status %d", ErrTokenRequest, resp.StatusCode)
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	if tokenResponse.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in response", ErrTokenRequest)
	}

	return tokenResponse.AccessToken, nil
}

func (a *googleAdapter) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.UserInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: userinfo endpoint status %d", ErrTokenRequest, resp.StatusCode)
	}

	var profile struct {
		Sub string `json:"sub"`
		// legacy field returned by the v2 userinfo endpoint
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}

	if profile.Sub != "" {
		return profile.Sub, nil
	}
	if profile.ID != "" {
		return profile.ID, nil
	}
	return "", ErrMissingUserID
}
