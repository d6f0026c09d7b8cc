// Package client implements the sync client: it owns the authenticated
// session, executes the combined push+pull delta round trip against the
// remote endpoint, and orchestrates the local change tracker,
// reconciler, and checkpoint store around it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hyperengineering/studysync/internal/store"
	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// ErrNotConfigured indicates no server URL is set; the engine is
// operating purely offline.
var ErrNotConfigured = errors.New("sync server not configured")

const defaultTimeout = 30 * time.Second

// Config carries the client's collaborators. Store and Tokens are
// required; ServerURL may be empty for offline-only operation.
type Config struct {
	ServerURL  string
	Store      *store.Store
	Tokens     TokenProvider
	HTTPClient *http.Client
}

// Client executes the sync protocol. It loads tokens from the provider
// on every sync, so credential changes made elsewhere are always seen.
// One syncNow at a time per process; the caller serializes invocations.
type Client struct {
	serverURL string
	store     *store.Store
	provider  TokenProvider
	saver     TokenSaver
	http      *http.Client
	validate  *validator.Validate

	tokens Tokens
}

// New creates a sync client. If the token provider also implements
// TokenSaver, login and refresh results are persisted through it.
func New(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token provider is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		serverURL: cfg.ServerURL,
		store:     cfg.Store,
		provider:  cfg.Tokens,
		http:      httpClient,
		validate:  validator.New(),
	}
	if saver, ok := cfg.Tokens.(TokenSaver); ok {
		c.saver = saver
	}
	return c, nil
}

// Configured reports whether a server URL is set.
func (c *Client) Configured() bool { return c.serverURL != "" }

// IsAuthenticated reports whether the in-memory credential set is
// complete. Call loadTokens (or SyncNow, which does) first to pick up
// externally refreshed credentials.
func (c *Client) IsAuthenticated() bool { return c.tokens.Valid() }

// credentials is the login/register payload. Validation mirrors the
// server's own rules so obviously bad input fails before the network.
type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type authResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates against the remote endpoint and persists the
// returned tokens through the saver, keeping the auth subsystem the
// single source of truth.
func (c *Client) Login(ctx context.Context, email, password string) (syncpkg.AuthResult, error) {
	return c.authenticate(ctx, "/api/v1/auth/login", email, password)
}

// Register creates an account and logs in, in one call.
func (c *Client) Register(ctx context.Context, email, password string) (syncpkg.AuthResult, error) {
	return c.authenticate(ctx, "/api/v1/auth/register", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (syncpkg.AuthResult, error) {
	if !c.Configured() {
		return syncpkg.AuthResult{}, ErrNotConfigured
	}

	creds := credentials{Email: email, Password: password}
	if err := c.validate.Struct(creds); err != nil {
		return syncpkg.AuthResult{}, fmt.Errorf("invalid credentials: %w", err)
	}

	var resp authResponse
	if err := c.postJSON(ctx, path, creds, &resp); err != nil {
		return syncpkg.AuthResult{}, err
	}

	c.setTokens(Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.UserID,
	})

	return syncpkg.AuthResult{
		UserID:       resp.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Logout clears the credential set, in memory and persisted. Pending
// local changes and the checkpoint survive so a later login can still
// sync them.
func (c *Client) Logout() error {
	c.tokens = Tokens{}
	if c.saver != nil {
		if err := c.saver.SaveTokens(Tokens{}); err != nil {
			return fmt.Errorf("clear saved tokens: %w", err)
		}
	}
	return nil
}

// loadTokens pulls the current credential set from the provider into
// memory.
func (c *Client) loadTokens() error {
	t, err := c.provider.Tokens()
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	c.tokens = t
	return nil
}

func (c *Client) setTokens(t Tokens) {
	c.tokens = t
	if c.saver != nil {
		if err := c.saver.SaveTokens(t); err != nil {
			slog.Warn("client: failed to persist tokens",
				"component", "client", "error", err)
		}
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshTokens trades the refresh token for a fresh access token. On
// failure the credential set is cleared so the caller degrades to the
// not-authenticated result instead of pushing with a dead token.
func (c *Client) refreshTokens(ctx context.Context) error {
	var resp authResponse
	err := c.postJSON(ctx, "/api/v1/auth/refresh", refreshRequest{RefreshToken: c.tokens.RefreshToken}, &resp)
	if err != nil {
		c.tokens = Tokens{}
		return fmt.Errorf("refresh tokens: %w", err)
	}

	c.setTokens(Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.UserID,
	})
	return nil
}

// postJSON sends an authenticated JSON request and decodes the response
// into out. Non-2xx responses decode the server's problem document into
// the returned error.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken)
	}
	if deviceID, err := c.store.DeviceID(ctx); err == nil {
		req.Header.Set("X-Client-ID", deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError extracts a human-readable message from an RFC 7807
// problem document, falling back to the HTTP status.
func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		if problem.Detail != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, problem.Detail)
		}
		if problem.Title != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, problem.Title)
		}
	}
	return fmt.Errorf("server error (%d)", resp.StatusCode)
}
