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
	githubAuthURL     = "https://github.com/login/oauth/authorize"
	githubTokenURL    = "https://github.com/login/oauth/access_token"
	githubUserInfoURL = "https://api.github.com/user"
)

type githubAdapter struct {
	cfg Config
}

func NewGithubAdapter(cfg Config) (Adapter, error) {
	if err := checkCredentials(cfg); err != nil {
		return nil, err
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = githubAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = githubTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = githubUserInfoURL
	}
	return &githubAdapter{cfg: cfg}, nil
}

func (a *githubAdapter) Name() string {
	return "github"
}

func (a *githubAdapter) AuthCodeURL(redirectURI, state string) string {
	query := url.Values{}
	query.Set("client_id", a.cfg.ClientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("state", state)
	query.Set("scope", "read:user")
	return fmt.Sprintf("%s?%s", a.cfg.AuthURL, query.Encode())
}

func (a *githubAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	params := url.Values{}
	params.Set("client_id", a.cfg.ClientID)
	params.Set("client_secret", a.cfg.ClientSecret)
	params.Set("code", code)
	params.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

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
		slog.Error("GitHub token endpoint failed", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("%w: status %d", ErrTokenRequest, resp.StatusCode)
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	if tokenResponse.AccessToken == "" {
		slog.Error("GitHub token response without access token", "error", tokenResponse.Error)
		return "", fmt.Errorf("%w: no access token in response", ErrTokenRequest)
	}

	return tokenResponse.AccessToken, nil
}

func (a *githubAdapter) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.UserInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: user endpoint status %d", ErrTokenRequest, resp.StatusCode)
	}

	var profile struct {
		ID     json.Number `json:"id"`
		NodeID string      `json:"node_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}

	if profile.ID.String() != "" {
		return profile.ID.String(), nil
	}
	if profile.NodeID != "" {
		return profile.NodeID, nil
	}
	return "", ErrMissingUserID
}
