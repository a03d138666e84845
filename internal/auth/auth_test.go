package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jmerrifield20/seasense/internal/auth"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func newIssuer(t *testing.T, ttl time.Duration) *auth.TokenIssuer {
	t.Helper()
	ti, err := auth.NewTokenIssuer(secret, "seasense", ttl)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return ti
}

func newCreds(t *testing.T) auth.Credentials {
	t.Helper()
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	return auth.Credentials{Username: "analyst", PasswordHash: hash}
}

func TestNewTokenIssuer_shortSecret(t *testing.T) {
	if _, err := auth.NewTokenIssuer([]byte("short"), "seasense", 0); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestTokenIssuer_roundTrip(t *testing.T) {
	ti := newIssuer(t, 0)
	if ti.TTL() != 12*time.Hour {
		t.Errorf("default TTL: got %v", ti.TTL())
	}

	tok, err := ti.Issue("analyst")
	if err != nil {
		t.Fatal(err)
	}
	if parts := strings.Split(tok, "."); len(parts) != 3 {
		t.Fatalf("expected 3-part JWT, got %d parts", len(parts))
	}

	claims, err := ti.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Username != "analyst" || claims.Subject != "analyst" {
		t.Errorf("claims: %+v", claims)
	}
}

func TestTokenIssuer_rejects(t *testing.T) {
	ti := newIssuer(t, time.Hour)

	other, _ := auth.NewTokenIssuer([]byte("ffffffffffffffffffffffffffffffff"), "seasense", time.Hour)
	foreign, _ := other.Issue("analyst")

	otherIssuer, _ := auth.NewTokenIssuer(secret, "someone-else", time.Hour)
	wrongIss, _ := otherIssuer.Issue("analyst")

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "seasense",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Username: "analyst",
		Type:     "session",
	}).SignedString(secret)

	wrongType, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "seasense",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Type: "refresh",
	}).SignedString(secret)

	for name, tok := range map[string]string{
		"garbage":      "not.a.jwt",
		"other secret": foreign,
		"other issuer": wrongIss,
		"expired":      expired,
		"wrong type":   wrongType,
	} {
		if _, err := ti.Verify(tok); err == nil {
			t.Errorf("%s: expected Verify to fail", name)
		}
	}
}

func TestCredentials_Check(t *testing.T) {
	creds := newCreds(t)

	if err := creds.Check("analyst", "hunter2"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	for _, pair := range [][2]string{{"analyst", "wrong"}, {"admin", "hunter2"}, {"", ""}} {
		if err := creds.Check(pair[0], pair[1]); !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Errorf("Check(%q, %q): got %v", pair[0], pair[1], err)
		}
	}
	if (auth.Credentials{}).Enabled() {
		t.Error("empty credentials reported enabled")
	}
}

func setupRouter(creds auth.Credentials, tokens *auth.TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(auth.Require(creds, tokens))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, auth.ActorFromCtx(c))
	})
	return r
}

func TestRequire(t *testing.T) {
	creds := newCreds(t)
	tokens := newIssuer(t, time.Hour)
	tok, _ := tokens.Issue("analyst")
	r := setupRouter(creds, tokens)

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
		actor  string
	}{
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"basic ok", func(r *http.Request) { r.SetBasicAuth("analyst", "hunter2") }, http.StatusOK, "analyst"},
		{"basic wrong password", func(r *http.Request) { r.SetBasicAuth("analyst", "x") }, http.StatusUnauthorized, ""},
		{"bearer ok", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }, http.StatusOK, "analyst"},
		{"bearer bad", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("status: got %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.status == http.StatusOK && w.Body.String() != tc.actor {
				t.Errorf("actor: got %q, want %q", w.Body.String(), tc.actor)
			}
			if tc.status == http.StatusUnauthorized && !strings.HasPrefix(tc.name, "bearer") {
				if w.Header().Get("WWW-Authenticate") == "" {
					t.Error("missing WWW-Authenticate challenge")
				}
			}
		})
	}
}

func TestRequire_openWhenDisabled(t *testing.T) {
	r := setupRouter(auth.Credentials{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if w.Body.String() != "" {
		t.Errorf("actor on open API: %q", w.Body.String())
	}
}

func TestRequire_basicOnlyWithoutIssuer(t *testing.T) {
	creds := newCreds(t)
	r := setupRouter(creds, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d", w.Code)
	}
}
