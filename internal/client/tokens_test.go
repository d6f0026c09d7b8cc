package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestFileTokenStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "tokens.json")
	fs := NewFileTokenStore(path)

	// Missing file reads as unauthenticated, not an error
	got, err := fs.Tokens()
	if err != nil {
		t.Fatalf("Tokens on missing file: %v", err)
	}
	if got.Valid() {
		t.Errorf("missing file = %+v, want empty", got)
	}

	want := Tokens{AccessToken: "acc", RefreshToken: "ref", UserID: "u1"}
	if err := fs.SaveTokens(want); err != nil {
		t.Fatalf("SaveTokens: %v", err)
	}

	got, err = fs.Tokens()
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if got != want {
		t.Errorf("Tokens = %+v, want %+v", got, want)
	}

	// Tokens are owner-only on disk
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
}

func TestFileTokenStore_SaveEmptyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	fs := NewFileTokenStore(path)

	if err := fs.SaveTokens(Tokens{AccessToken: "acc", RefreshToken: "ref"}); err != nil {
		t.Fatalf("SaveTokens: %v", err)
	}
	if err := fs.SaveTokens(Tokens{}); err != nil {
		t.Fatalf("SaveTokens empty: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("token file still exists after logout save")
	}

	// Removing twice is fine
	if err := fs.SaveTokens(Tokens{}); err != nil {
		t.Errorf("second empty save: %v", err)
	}
}

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()

	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(expiresIn).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAccessTokenExpired(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"fresh token", signedToken(t, time.Hour), false},
		{"already expired", signedToken(t, -time.Hour), true},
		{"inside the leeway window", signedToken(t, 10*time.Second), true},
		{"garbage", "not-a-jwt", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accessTokenExpired(tt.token); got != tt.want {
				t.Errorf("accessTokenExpired = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestAccessTokenExpired_NoExpClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).
		SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if accessTokenExpired(token) {
		t.Error("token without exp treated as expired")
	}
}

func TestLogin_ValidatesCredentialsLocally(t *testing.T) {
	// No server needed; validation rejects before any request
	st := newTestStore(t)
	c, err := New(Config{ServerURL: "http://127.0.0.1:1", Store: st, Tokens: &memTokens{}})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	if _, err := c.Login(context.Background(), "not-an-email", "correct-horse"); err == nil {
		t.Error("Login accepted a malformed email")
	}
	if _, err := c.Register(context.Background(), "a@example.com", "short"); err == nil {
		t.Error("Register accepted a short password")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newReferenceServer(t)
	c, _ := newSyncedClient(t, srv)
	mustLogin(t, c, "a@example.com")

	if _, err := c.Login(context.Background(), "a@example.com", "wrong-password"); err == nil {
		t.Error("Login succeeded with wrong password")
	}

	// Previous session's tokens are untouched by the failed attempt
	if !c.IsAuthenticated() {
		t.Error("failed login cleared existing tokens")
	}
}
