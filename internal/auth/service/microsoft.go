package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/ehsh01/it-ops-dashboard/pkg/idx"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

// RefreshBuffer is how close to expiry a stored access token may get
// before GetValidAccessToken refreshes it instead of handing it out.
const RefreshBuffer = 5 * time.Minute

// DefaultMicrosoftTenant is used when no tenant is configured.
const DefaultMicrosoftTenant = "common"

// MicrosoftScopes is the fixed consent requested from every user.
var MicrosoftScopes = []string{
	"openid",
	"profile",
	"email",
	"offline_access",
	"Mail.Read",
	"User.Read",
	"Chat.Read",
	"ChatMessage.Read",
	"Team.ReadBasic.All",
	"ChannelMessage.Read.All",
}

var (
	ErrMicrosoftNotConfigured = errors.New("microsoft integration not configured")
	ErrExchangeFailed         = errors.New("token exchange failed")
	ErrRefreshFailed          = errors.New("token refresh failed")
)

type MicrosoftConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string

	// Endpoint replaces the Azure AD endpoint for the tenant.
	Endpoint *oauth2.Endpoint
}

// MicrosoftStatus is what the integrations page shows.
type MicrosoftStatus struct {
	Configured bool
	Connected  bool
	ExpiresAt  *time.Time
}

// MicrosoftService owns the Microsoft OAuth token lifecycle of each user:
// the consent redirect, the code exchange, refresh and storage. Stored
// tokens are sealed with Sealer when one is set.
type MicrosoftService struct {
	Store  store.Store
	Sealer *cryptox.Sealer

	// HTTPClient is used for calls to the token endpoint.
	HTTPClient *http.Client
	Now        func() time.Time

	cfg MicrosoftConfig
}

func NewMicrosoftService(cfg MicrosoftConfig, st store.Store, sealer *cryptox.Sealer) *MicrosoftService {
	if cfg.TenantID == "" {
		cfg.TenantID = DefaultMicrosoftTenant
	}
	return &MicrosoftService{
		Store:  st,
		Sealer: sealer,
		cfg:    cfg,
	}
}

func (s *MicrosoftService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IsConfigured reports whether client credentials are present.
func (s *MicrosoftService) IsConfigured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != ""
}

func (s *MicrosoftService) oauthConfig(redirectURI string) *oauth2.Config {
	endpoint := microsoft.AzureADEndpoint(s.cfg.TenantID)
	if s.cfg.Endpoint != nil {
		endpoint = *s.cfg.Endpoint
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirectURI,
		Scopes:       MicrosoftScopes,
	}
}

func (s *MicrosoftService) clientContext(ctx context.Context) context.Context {
	if s.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
	}
	return ctx
}

// BuildAuthorizationURL returns the consent URL the browser is sent to.
func (s *MicrosoftService) BuildAuthorizationURL(redirectURI, state string) string {
	return s.oauthConfig(redirectURI).AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "query"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode trades an authorization code for a token set. Any provider
// failure wraps ErrExchangeFailed with the provider's message.
func (s *MicrosoftService) ExchangeCode(ctx context.Context, redirectURI, code string) (domain.TokenSet, error) {
	if !s.IsConfigured() {
		return domain.TokenSet{}, ErrMicrosoftNotConfigured
	}

	tok, err := s.oauthConfig(redirectURI).Exchange(s.clientContext(ctx), code,
		oauth2.SetAuthURLParam("scope", strings.Join(MicrosoftScopes, " ")),
	)
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("%w: %s", ErrExchangeFailed, providerMessage(err))
	}
	return toTokenSet(tok, ""), nil
}

// Refresh redeems a refresh token. When the provider does not rotate the
// refresh token the old one is kept.
func (s *MicrosoftService) Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error) {
	if !s.IsConfigured() {
		return domain.TokenSet{}, ErrMicrosoftNotConfigured
	}
	if refreshToken == "" {
		return domain.TokenSet{}, fmt.Errorf("%w: no refresh token stored", ErrRefreshFailed)
	}

	tok, err := s.redeemRefreshToken(ctx, refreshToken)
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("%w: %s", ErrRefreshFailed, providerMessage(err))
	}
	return toTokenSet(tok, refreshToken), nil
}

// redeemRefreshToken posts a refresh_token grant with the same scope the
// code exchange asked for. The v2 endpoint requires scope on this grant,
// which oauth2.TokenSource never sends.
func (s *MicrosoftService) redeemRefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	cfg := s.oauthConfig("")
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"scope":         {strings.Join(MicrosoftScopes, " ")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		re := &oauth2.RetrieveError{Response: resp, Body: body}
		var e struct {
			Code        string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.Unmarshal(body, &e) == nil {
			re.ErrorCode, re.ErrorDescription = e.Code, e.Description
		}
		return nil, re
	}

	var tj struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tj); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tj.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}

	tok := &oauth2.Token{
		AccessToken:  tj.AccessToken,
		TokenType:    tj.TokenType,
		RefreshToken: tj.RefreshToken,
		ExpiresIn:    tj.ExpiresIn,
	}
	return tok.WithExtra(map[string]any{"scope": tj.Scope}), nil
}

func toTokenSet(tok *oauth2.Token, priorRefresh string) domain.TokenSet {
	set := domain.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if set.RefreshToken == "" {
		set.RefreshToken = priorRefresh
	}
	if tok.ExpiresIn > 0 {
		set.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	} else if !tok.Expiry.IsZero() {
		set.ExpiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		set.Scope = scope
	}
	return set
}

// providerMessage extracts the provider's explanation from an oauth2
// error without echoing any token material.
func providerMessage(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorDescription != "":
			return re.ErrorDescription
		case re.ErrorCode != "":
			return re.ErrorCode
		case len(re.Body) > 0:
			return string(re.Body)
		case re.Response != nil:
			return re.Response.Status
		}
	}
	return err.Error()
}

func (s *MicrosoftService) seal(v string) (string, error) {
	if s.Sealer == nil {
		return v, nil
	}
	return s.Sealer.Seal(v)
}

func (s *MicrosoftService) open(v string) (string, error) {
	if s.Sealer == nil {
		return v, nil
	}
	return s.Sealer.Open(v)
}

// Connect stores a fresh token set for userID, replacing any earlier one.
func (s *MicrosoftService) Connect(ctx context.Context, userID string, set domain.TokenSet) error {
	access, err := s.seal(set.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.seal(set.RefreshToken)
	if err != nil {
		return err
	}

	now := s.now()
	err = s.Store.OAuthTokens().UpsertOAuthToken(ctx, domain.OAuthToken{
		ID:           idx.NewAt(now).String(),
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(set.ExpiresIn),
		Scope:        set.Scope,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("microsoft account connected", slog.String("user_id", userID))
	return nil
}

// GetValidAccessToken returns a usable access token for userID, or false
// when there is none. A token within RefreshBuffer of expiry is refreshed
// first and the new set is written back guarded by the record's version.
// A failed refresh leaves the record as it was.
func (s *MicrosoftService) GetValidAccessToken(ctx context.Context, userID string) (string, bool) {
	log := slogx.FromContext(ctx).With(slog.String("user_id", userID))

	rec, err := s.Store.OAuthTokens().GetOAuthToken(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to load microsoft token", slog.Any("error", err))
		}
		return "", false
	}

	now := s.now()
	if rec.ExpiresAt.Sub(now) > RefreshBuffer {
		access, err := s.open(rec.AccessToken)
		if err != nil {
			log.Error("failed to open stored access token", slog.Any("error", err))
			return "", false
		}
		return access, true
	}

	refreshToken, err := s.open(rec.RefreshToken)
	if err != nil {
		log.Error("failed to open stored refresh token", slog.Any("error", err))
		return "", false
	}

	set, err := s.Refresh(ctx, refreshToken)
	if err != nil {
		log.Warn("failed to refresh microsoft token", slog.Any("error", err))
		return "", false
	}

	access, err := s.seal(set.AccessToken)
	if err != nil {
		log.Error("failed to seal access token", slog.Any("error", err))
		return "", false
	}
	refresh, err := s.seal(set.RefreshToken)
	if err != nil {
		log.Error("failed to seal refresh token", slog.Any("error", err))
		return "", false
	}

	next := rec
	next.AccessToken = access
	next.RefreshToken = refresh
	next.ExpiresAt = now.Add(set.ExpiresIn)
	next.Scope = set.Scope
	next.UpdatedAt = now

	err = s.Store.OAuthTokens().UpdateOAuthTokenIfVersion(ctx, next, rec.Version)
	switch {
	case err == nil:
		log.Debug("microsoft token refreshed")
		return set.AccessToken, true

	case errors.Is(err, store.ErrConflict):
		// Another request refreshed (or the user disconnected) first.
		cur, err := s.Store.OAuthTokens().GetOAuthToken(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", false
			}
			log.Error("failed to re-read microsoft token", slog.Any("error", err))
			return set.AccessToken, true
		}
		if cur.ExpiresAt.Sub(now) > RefreshBuffer {
			if winner, err := s.open(cur.AccessToken); err == nil {
				return winner, true
			}
		}
		return set.AccessToken, true

	default:
		log.Error("failed to store refreshed microsoft token", slog.Any("error", err))
		return set.AccessToken, true
	}
}

// Status reports configuration and connection state for userID.
func (s *MicrosoftService) Status(ctx context.Context, userID string) (MicrosoftStatus, error) {
	st := MicrosoftStatus{Configured: s.IsConfigured()}

	rec, err := s.Store.OAuthTokens().GetOAuthToken(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return st, nil
		}
		return MicrosoftStatus{}, err
	}

	st.Connected = true
	expiresAt := rec.ExpiresAt
	st.ExpiresAt = &expiresAt
	return st, nil
}

// Disconnect forgets the user's tokens. Disconnecting twice is fine.
func (s *MicrosoftService) Disconnect(ctx context.Context, userID string) error {
	if err := s.Store.OAuthTokens().DeleteOAuthToken(ctx, userID); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("microsoft account disconnected", slog.String("user_id", userID))
	return nil
}
