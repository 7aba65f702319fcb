package google

import (
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newLocalController(t *testing.T) *Controller {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	srv := newTokenServer(t)
	return NewController(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  RedirectURLFor("http://" + addr),
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/o/oauth2/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, nil)
}

func TestStartCallbackServer_DeliversTokens(t *testing.T) {
	ctrl := newLocalController(t)
	results, cleanup, err := StartCallbackServer(ctrl)
	if err != nil {
		t.Fatalf("StartCallbackServer: %v", err)
	}
	defer cleanup()

	resp, err := http.Get(ctrl.config.RedirectURL + "?code=good-code")
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	select {
	case res := <-results:
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Tokens.AccessToken != "ya29.test" {
			t.Errorf("access token = %q", res.Tokens.AccessToken)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no callback result delivered")
	}
}

func TestStartCallbackServer_MissingCode(t *testing.T) {
	ctrl := newLocalController(t)
	results, cleanup, err := StartCallbackServer(ctrl)
	if err != nil {
		t.Fatalf("StartCallbackServer: %v", err)
	}
	defer cleanup()

	resp, err := http.Get(ctrl.config.RedirectURL)
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	res := <-results
	if res.Err == nil {
		t.Error("expected an error for a callback without code")
	}
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://localhost:3000/api/auth/google/callback", "localhost:3000"},
		{"https://visionary.example.com/api/auth/google/callback", "visionary.example.com:443"},
		{"http://visionary.example.com/api/auth/google/callback", "visionary.example.com:80"},
		{"http://[::1]:8080/cb", "[::1]:8080"},
		{"https://[::1]/cb", "[::1]:443"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.raw, err)
		}
		if got := listenAddr(u); got != tt.want {
			t.Errorf("listenAddr(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
