package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHTTPIdentityClientLoginURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodGet {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"auth_url": "https://idp.example/authorize"})
	}))
	defer srv.Close()

	client := NewHTTPIdentityClient(srv.URL, time.Second)
	url, err := client.LoginURL(context.Background())
	if err != nil {
		t.Fatalf("LoginURL err: %v", err)
	}
	if url != "https://idp.example/authorize" {
		t.Fatalf("unexpected auth url: %q", url)
	}
}

func TestHTTPIdentityClientExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var payload struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Code != "abc123" {
			t.Fatalf("unexpected code: %q", payload.Code)
		}
		json.NewEncoder(w).Encode(TokenResult{
			AccessToken: "tok",
			UserInfo:    &UserInfo{Groups: []string{"g1"}},
		})
	}))
	defer srv.Close()

	client := NewHTTPIdentityClient(srv.URL, time.Second)
	result, err := client.ExchangeCode(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("ExchangeCode err: %v", err)
	}
	if result.AccessToken != "tok" {
		t.Fatalf("unexpected token: %q", result.AccessToken)
	}
	if result.UserInfo == nil || len(result.UserInfo.Groups) != 1 {
		t.Fatalf("unexpected user info: %+v", result.UserInfo)
	}
}

func TestHTTPIdentityClientExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_grant", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewHTTPIdentityClient(srv.URL, time.Second)
	if _, err := client.ExchangeCode(context.Background(), "expired"); err == nil {
		t.Fatal("expected error for rejected code")
	}
}

func TestGroupsFromToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "u1",
		"groups": []string{"g1", "g2"},
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	groups := groupsFromToken(token)
	if len(groups) != 2 || groups[0] != "g1" || groups[1] != "g2" {
		t.Fatalf("unexpected groups: %v", groups)
	}

	if got := groupsFromToken("opaque-not-a-jwt"); got != nil {
		t.Fatalf("opaque token should yield no groups, got %v", got)
	}
}
