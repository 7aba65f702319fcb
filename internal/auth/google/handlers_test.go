package google

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pysugar/visionary-studio/internal/session"
)

func TestHandleAuthURL(t *testing.T) {
	ctrl := newTestController(t, nil)
	rec := httptest.NewRecorder()
	HandleAuthURL(ctrl).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google/url", nil))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["url"] != ctrl.AuthorizationURL() {
		t.Errorf("url = %q, want %q", body["url"], ctrl.AuthorizationURL())
	}
}

func TestCallbackThenStatus_RoundTrip(t *testing.T) {
	ctrl := newTestController(t, nil)

	rec := httptest.NewRecorder()
	HandleCallback(ctrl).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CallbackPath+"?code=good-code", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("callback status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), MessageAuthSuccess) {
		t.Error("success page should post the auth success message")
	}
	if !strings.Contains(rec.Body.String(), "window.close()") {
		t.Error("success page should close the popup")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/status", nil)
	req.AddCookie(cookies[0])
	statusRec := httptest.NewRecorder()
	HandleStatus().ServeHTTP(statusRec, req)

	var status map[string]bool
	if err := json.Unmarshal(statusRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status["isAuthenticated"] {
		t.Error("expected isAuthenticated=true after callback")
	}
}

func TestHandleCallback_Failure(t *testing.T) {
	ctrl := newTestController(t, nil)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "missing code", target: CallbackPath, status: http.StatusBadRequest},
		{name: "rejected code", target: CallbackPath + "?code=expired", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleCallback(ctrl).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), "Authentication failed") {
				t.Error("expected failure page")
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Error("no cookie expected on failure")
			}
		})
	}
}

func TestHandleStatus_NoOrMalformedCookie(t *testing.T) {
	for _, value := range []string{"", "%7Bbroken", "null", "%7B%7D"} {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/google/status", nil)
		if value != "" {
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
		}
		rec := httptest.NewRecorder()
		HandleStatus().ServeHTTP(rec, req)

		if strings.TrimSpace(rec.Body.String()) != `{"isAuthenticated":false}` {
			t.Errorf("cookie %q: body = %s", value, rec.Body.String())
		}
	}
}
