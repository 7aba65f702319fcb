package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pysugar/visionary-studio/internal/util"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(rt roundTripperFunc) *Client {
	c := NewClient(Options{
		APIKey:     "or-key",
		BaseURL:    "https://openrouter.example/api/v1/",
		Referer:    "https://visionary.example.com",
		HTTPClient: &http.Client{Timeout: time.Second, Transport: rt},
	})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestGenerate_Success(t *testing.T) {
	var captured chatRequest
	var capturedAuth, capturedURL string

	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		capturedAuth = r.Header.Get("Authorization")
		capturedURL = r.URL.String()
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		return jsonResponse(http.StatusOK, `{"choices":[{"message":{"images":[{"image_url":{"url":"data:image/png;base64,AAAA"}}]}}]}`), nil
	})

	res, err := client.Generate(context.Background(), "  a red fox  ", "16:9")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if res.URL != "data:image/png;base64,AAAA" {
		t.Errorf("url = %q", res.URL)
	}
	if res.Prompt != "a red fox" {
		t.Errorf("prompt = %q", res.Prompt)
	}
	if res.Timestamp != 1700000000000 {
		t.Errorf("timestamp = %d", res.Timestamp)
	}

	if capturedAuth != "Bearer or-key" {
		t.Errorf("auth header = %q", capturedAuth)
	}
	if capturedURL != "https://openrouter.example/api/v1/chat/completions" {
		t.Errorf("url = %q", capturedURL)
	}
	if captured.ImageConfig.AspectRatio != "16:9" || captured.Model != DefaultModel {
		t.Errorf("unexpected payload: %+v", captured)
	}
}

func TestGenerate_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "upstream message", status: http.StatusPaymentRequired, body: `{"error":{"message":"Insufficient credits"}}`, message: "Insufficient credits"},
		{name: "generic fallback", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, message: genericFailure},
		{name: "error in 200 body", status: http.StatusOK, body: `{"error":{"message":"Provider returned error","code":502}}`, message: "Provider returned error"},
		{name: "no image", status: http.StatusOK, body: `{"choices":[{"message":{"images":[]}}]}`, message: "No image returned by the model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			client := newTestClient(func(r *http.Request) (*http.Response, error) {
				calls++
				return jsonResponse(tt.status, tt.body), nil
			})

			_, err := client.Generate(context.Background(), "prompt", "1:1")
			var upErr *UpstreamError
			if !errors.As(err, &upErr) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
			if upErr.Message != tt.message {
				t.Errorf("message = %q, want %q", upErr.Message, tt.message)
			}
			if calls != 1 {
				t.Errorf("expected exactly one call (no retry), got %d", calls)
			}
		})
	}
}

func TestGenerate_LogsTruncatedUpstreamBody(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	huge := `{"error":{"message":"` + strings.Repeat("x", 4*util.DefaultLogMaxLen) + `"}}`
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, huge), nil
	})
	if _, err := client.Generate(context.Background(), "prompt", "1:1"); err == nil {
		t.Fatal("expected error")
	}

	out := buf.String()
	if !strings.Contains(out, fmt.Sprintf("[truncated, %d bytes total]", len(huge))) {
		t.Errorf("expected truncation marker in log, got %q", out)
	}
	if len(out) > 2*util.DefaultLogMaxLen {
		t.Errorf("logged %d bytes for a %d byte body", len(out), len(huge))
	}
}

func TestGenerate_RejectsInvalidInput(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	if _, err := client.Generate(context.Background(), "   ", "1:1"); err == nil {
		t.Error("expected error for empty prompt")
	}
	if _, err := client.Generate(context.Background(), "cat", "2:1"); err == nil {
		t.Error("expected error for unsupported aspect ratio")
	}
}

func TestValidAspectRatio(t *testing.T) {
	for _, r := range AspectRatios {
		if !ValidAspectRatio(r) {
			t.Errorf("%s should be valid", r)
		}
	}
	if ValidAspectRatio("21:9") {
		t.Error("21:9 should be invalid")
	}
}
