package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pysugar/visionary-studio/internal/export"
	"github.com/pysugar/visionary-studio/internal/export/exporttest"
	"github.com/pysugar/visionary-studio/internal/session"
)

func saveRequestBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"imageData":   "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png")),
		"prompt":      "a lighthouse at dusk",
		"aspectRatio": "4:3",
	})
	return bytes.NewReader(body)
}

func withSession(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	c, err := session.Cookie(&session.Tokens{AccessToken: "ya29.test", TokenType: "Bearer"})
	if err != nil {
		t.Fatalf("cookie: %v", err)
	}
	req.AddCookie(c)
	return req
}

func TestSaveToGoogle_NoSession(t *testing.T) {
	account := &exporttest.Account{}
	handler := SaveToGoogleHandler(export.NewWorkflow(account.Factory()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/save-to-google", saveRequestBody(t)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] == "" {
		t.Error("expected error message")
	}
	if len(account.Calls) != 0 || len(account.Uploads) != 0 {
		t.Errorf("no upload expected without a session, got calls %v", account.Calls)
	}
}

func TestSaveToGoogle_Success(t *testing.T) {
	account := &exporttest.Account{}
	handler := SaveToGoogleHandler(export.NewWorkflow(account.Factory()))

	rec := httptest.NewRecorder()
	req := withSession(t, httptest.NewRequest(http.MethodPost, "/api/save-to-google", saveRequestBody(t)))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success  bool   `json:"success"`
		FileLink string `json:"fileLink"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.FileLink != "https://drive.google.com/file/d/file-1/view" {
		t.Errorf("unexpected body: %+v", body)
	}
	if len(account.Tokens) != 1 || account.Tokens[0].AccessToken != "ya29.test" {
		t.Errorf("session tokens were not passed to the factory: %+v", account.Tokens)
	}
	if rows := account.Spreadsheets[0].Rows; len(rows) != 2 || rows[1][1] != "a lighthouse at dusk" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestSaveToGoogle_WorkflowFailure(t *testing.T) {
	account := &exporttest.Account{FailOn: "append"}
	handler := SaveToGoogleHandler(export.NewWorkflow(account.Factory()))

	rec := httptest.NewRecorder()
	req := withSession(t, httptest.NewRequest(http.MethodPost, "/api/save-to-google", saveRequestBody(t)))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "failed to append row: append: simulated failure" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestSaveToGoogle_InvalidBody(t *testing.T) {
	account := &exporttest.Account{}
	handler := SaveToGoogleHandler(export.NewWorkflow(account.Factory()))

	for _, body := range []string{`{"prompt":"x"}`, `{not json`} {
		rec := httptest.NewRecorder()
		req := withSession(t, httptest.NewRequest(http.MethodPost, "/api/save-to-google", bytes.NewReader([]byte(body))))
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("body %s: status = %d, want 500", body, rec.Code)
		}
	}
	if len(account.Calls) != 0 {
		t.Errorf("expected no Google calls, got %v", account.Calls)
	}
}
