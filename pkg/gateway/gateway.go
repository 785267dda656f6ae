// Package gateway drives the end-to-end login and token exchange
// flows: browser login against an upstream identity provider, the
// refresh cookie, the one-time token handed to the client
// application and the audience-scoped session tokens downstream
// services verify.
package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zeroauth/authgate/pkg/flowstate"
	"github.com/zeroauth/authgate/pkg/keyset"
	"github.com/zeroauth/authgate/pkg/nonce"
	"github.com/zeroauth/authgate/pkg/provider"
	"github.com/zeroauth/authgate/pkg/token"
	"github.com/zeroauth/authgate/pkg/util"
)

const (
	refreshCookieName   = "refresh"
	refreshCookieMaxAge = int(token.RefreshTTL / time.Second)
)

type Server struct {
	cfg      *Config
	registry *ClientRegistry
	keys     *keyset.Manager
	codec    *flowstate.Codec
	issuer   *token.Issuer
	verifier *token.Verifier
	adapters map[string]provider.Adapter
	nonces   nonce.Service
}

func New(cfg *Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		adapters: map[string]provider.Adapter{},
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.registry == nil {
		registry, err := LoadClientRegistry(cfg.ClientsPath)
		if err != nil {
			return nil, err
		}
		s.registry = registry
	}

	if s.keys == nil {
		s.keys = keyset.NewManager(cfg.Keys)
	}
	// malformed key material must be fatal at startup, not at the
	// first login
	if err := s.keys.EnsureKeys(); err != nil {
		return nil, err
	}

	if s.nonces == nil {
		// ott ids never need to outlive the ott itself
		nonces, err := nonce.NewHashicorpService(token.OttTTL)
		if err != nil {
			return nil, err
		}
		s.nonces = nonces
	}

	for name, providerCfg := range cfg.Providers {
		if _, ok := s.adapters[name]; ok {
			continue
		}
		adapter, err := provider.New(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		s.adapters[name] = adapter
		slog.Info("Using identity provider", "provider", name)
	}

	providerNames := make([]string, 0, len(s.adapters))
	for name := range s.adapters {
		providerNames = append(providerNames, name)
	}

	codec, err := flowstate.NewCodec(cfg.StateSecret, providerNames)
	if err != nil {
		return nil, err
	}
	s.codec = codec

	s.issuer = token.NewIssuer(cfg.Issuer, s.keys, s.nonces)
	s.verifier = token.NewVerifier(s.keys)

	return s, nil
}

func ErrorLogMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			slog.Error("Error", "error", err, "path", c.Path(), "remote_addr", c.RealIP())
		}
		return err
	}
}

func (s *Server) MountRoutes(group *echo.Group) {
	group.Use(ErrorLogMiddleware)
	group.GET("/login", s.LoginEndpoint)
	group.GET("/oauth/callback", s.CallbackEndpoint)
	group.POST("/session/exchange", s.ExchangeOttEndpoint)
	group.POST("/session/refresh", s.RefreshSessionEndpoint)
	group.POST("/session/logout", s.LogoutEndpoint)
	group.GET("/jwks", s.JWKSEndpoint)
	group.GET("/healthz", s.HealthEndpoint)
}

// LoginEndpoint starts a login: it validates the client and return
// URL against the registry, encodes the flow state and redirects the
// browser to the provider's authorization endpoint.
func (s *Server) LoginEndpoint(c echo.Context) error {
	clientID := c.QueryParam("client")
	returnURL := c.QueryParam("return")
	providerName := c.QueryParam("provider")

	if clientID == "" || returnURL == "" || providerName == "" {
		return c.JSON(http.StatusBadRequest, &Error{
			Code:        CodeMissingParams,
			Description: "client, return and provider are required",
		})
	}

	if !s.registry.AllowedClient(clientID) || !s.registry.AllowedReturnURL(clientID, returnURL) {
		slog.Warn("Login rejected", "client", clientID, "return", returnURL)
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeInvalidClientOrReturn,
		})
	}

	adapter, ok := s.adapters[providerName]
	if !ok {
		return c.JSON(http.StatusBadRequest, &Error{
			Code:        CodeProviderNotConfigured,
			Description: fmt.Sprintf("provider %s is not available", providerName),
		})
	}

	state, err := s.codec.Encode(flowstate.State{
		Client:    clientID,
		ReturnURL: returnURL,
		Provider:  providerName,
		IssuedAt:  time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("unable to encode flow state: %w", err)
	}

	authURL := adapter.AuthCodeURL(s.callbackURL(), state)
	slog.Info("Redirecting to provider", "provider", providerName, "client", clientID)

	return c.Redirect(http.StatusFound, authURL)
}

// CallbackEndpoint consumes the provider redirect: it decodes and
// re-validates the flow state, exchanges the authorization code,
// resolves the external identity and hands the browser a refresh
// cookie plus a one-time token appended to the client's return URL.
func (s *Server) CallbackEndpoint(c echo.Context) error {
	if errCode := c.QueryParam("error"); errCode != "" {
		slog.Error("Provider callback error", "error", errCode, "description", c.QueryParam("error_description"))
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeOauthFailed,
		})
	}

	code := c.QueryParam("code")
	stateParam := c.QueryParam("state")
	if code == "" || stateParam == "" {
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeInvalidState,
		})
	}

	state, err := s.codec.Decode(stateParam)
	if err != nil {
		slog.Warn("Rejected flow state", "error", err)
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeInvalidState,
		})
	}

	// the client may have been revoked while the browser was at the
	// provider; never fall back to a default client
	if !s.registry.AllowedClient(state.Client) || !s.registry.AllowedReturnURL(state.Client, state.ReturnURL) {
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeInvalidClientOrReturn,
		})
	}

	adapter, ok := s.adapters[state.Provider]
	if !ok {
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeProviderNotConfigured,
		})
	}

	ctx := c.Request().Context()

	accessToken, err := adapter.ExchangeCode(ctx, code, s.callbackURL())
	if err != nil {
		slog.Error("Code exchange failed", "provider", state.Provider, "error", err)
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeOauthFailed,
		})
	}

	subject, err := adapter.FetchIdentity(ctx, accessToken)
	if err != nil {
		slog.Error("Identity fetch failed", "provider", state.Provider, "error", err)
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeOauthFailed,
		})
	}

	refresh, err := s.issuer.IssueRefresh(subject, state.Provider)
	if err != nil {
		return fmt.Errorf("unable to issue refresh token: %w", err)
	}

	ott, err := s.issuer.IssueOtt(subject, state.Client, state.Provider)
	if err != nil {
		return fmt.Errorf("unable to issue one-time token: %w", err)
	}

	slog.Debug("Issued one-time token", "details", util.JWSToText(ott))

	// no cookie until the return URL is known good
	returnURL, err := url.Parse(state.ReturnURL)
	if err != nil {
		return c.JSON(http.StatusBadRequest, &Error{
			Code: CodeInvalidClientOrReturn,
		})
	}

	c.SetCookie(s.refreshCookie(refresh, refreshCookieMaxAge))

	query := returnURL.Query()
	query.Set("ott", ott)
	returnURL.RawQuery = query.Encode()

	slog.Info("Session established", "provider", state.Provider, "client", state.Client)

	return c.Redirect(http.StatusFound, returnURL.String())
}

type exchangeRequest struct {
	Ott      string `json:"ott"`
	Audience string `json:"audience"`
}

type tokenResponse struct {
	JWT string `json:"jwt"`
}

// ExchangeOttEndpoint redeems a one-time token for a session token
// scoped to the requested audience. Each OTT is consumed exactly
// once; a replayed token fails even inside its expiry window.
func (s *Server) ExchangeOttEndpoint(c echo.Context) error {
	var req exchangeRequest
	if err := c.Bind(&req); err != nil || req.Ott == "" {
		return c.JSON(http.StatusUnauthorized, &Error{
			Code: CodeInvalidOtt,
		})
	}

	claims, err := s.verifier.Verify(req.Ott, token.AudienceAuth, s.cfg.Issuer, token.TypeOtt)
	if err != nil {
		slog.Warn("OTT rejected", "error", err)
		return c.JSON(http.StatusUnauthorized, &Error{
			Code: CodeInvalidOtt,
		})
	}

	if claims.JTI == "" {
		return c.JSON(http.StatusUnauthorized, &Error{
			Code: CodeInvalidOtt,
		})
	}
	if err := s.nonces.Redeem(claims.JTI); err != nil {
		slog.Warn("OTT already consumed", "jti", claims.JTI)
		return c.JSON(http.StatusUnauthorized, &Error{
			Code: CodeInvalidOtt,
		})
	}

	audience := req.Audience
	if audience == "" {
		audience = s.cfg.DefaultAudience
	}

	session, err := s.issuer.IssueSession(claims.Subject, s.cfg.Scopes, audience, token.SessionMaxTTL)
	if err != nil {
		return fmt.Errorf("unable to issue session token: %w", err)
	}

	return c.JSON(http.StatusOK, &tokenResponse{JWT: session})
}

type refreshRequest struct {
	Audience string `json:"audience"`
}

// RefreshSessionEndpoint issues a fresh session token from the
// refresh cookie, without a new provider round-trip.
func (s *Server) RefreshSessionEndpoint(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, &Error{
			Code: CodeNoRefresh,
		})
	}

	claims, err := s.verifier.Verify(cookie.Value, token.AudienceAuth, s.cfg.Issuer, token.TypeRefresh)
	if err != nil {
		slog.Warn("Refresh token rejected", "error", err)
		return c.JSON(http.StatusUnauthorized, &Error{
			Code: CodeInvalidRefresh,
		})
	}

	var req refreshRequest
	// the body is optional
	_ = c.Bind(&req)

	audience := req.Audience
	if audience == "" {
		audience = s.cfg.DefaultAudience
	}

	session, err := s.issuer.IssueSession(claims.Subject, s.cfg.Scopes, audience, token.SessionMaxTTL)
	if err != nil {
		return fmt.Errorf("unable to issue session token: %w", err)
	}

	return c.JSON(http.StatusOK, &tokenResponse{JWT: session})
}

// LogoutEndpoint clears the refresh cookie. The design is stateless;
// there is no server-side revocation list.
func (s *Server) LogoutEndpoint(c echo.Context) error {
	c.SetCookie(s.refreshCookie("", -1))
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// VerifySession validates a session token for the given audience.
// Downstream services embedded in the same process use this instead
// of re-implementing JWKS verification.
func (s *Server) VerifySession(raw, audience string) (*token.Claims, error) {
	return s.verifier.Verify(raw, audience, s.cfg.Issuer, token.TypeSession)
}

func (s *Server) JWKSEndpoint(c echo.Context) error {
	jwks, err := s.keys.PublicJWKS()
	if err != nil {
		return fmt.Errorf("unable to get JWKS: %w", err)
	}
	return c.JSON(http.StatusOK, jwks)
}

func (s *Server) HealthEndpoint(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) callbackURL() string {
	return s.cfg.Issuer + "/oauth/callback"
}

func (s *Server) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
