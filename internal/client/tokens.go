package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens is the credential set owned by the auth subsystem. Absence of
// either token means "not authenticated"; the engine never pushes or
// pulls in that state.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
}

// Valid reports whether both tokens are present.
func (t Tokens) Valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// TokenProvider supplies the current credential set. The engine reloads
// from the provider at the start of every sync, so a refresh performed
// elsewhere in the application is always picked up.
type TokenProvider interface {
	Tokens() (Tokens, error)
}

// TokenSaver persists a credential set after login, register, or a
// token refresh. Optional; a provider without save support simply never
// sees refreshed tokens persisted.
type TokenSaver interface {
	SaveTokens(Tokens) error
}

// FileTokenStore keeps tokens in a JSON file with owner-only
// permissions. It is the default provider/saver used by the CLI.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a file-backed token store at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Tokens loads the stored credential set. A missing file is not an
// error; it reads as the unauthenticated state.
func (s *FileTokenStore) Tokens() (Tokens, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("read token file: %w", err)
	}

	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, fmt.Errorf("parse token file: %w", err)
	}
	return t, nil
}

// SaveTokens writes the credential set. Saving an empty set removes the
// file entirely, which is how logout erases persisted credentials.
func (s *FileTokenStore) SaveTokens(t Tokens) error {
	if !t.Valid() {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// expiryLeeway triggers a refresh slightly before the access token's
// actual expiry so a request never departs with a token that dies in
// flight.
const expiryLeeway = 30 * time.Second

// accessTokenExpired inspects the JWT's exp claim without verifying the
// signature; the server remains the authority, this only decides
// whether to refresh before calling it. Unparseable tokens count as
// expired.
func accessTokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < expiryLeeway
}
