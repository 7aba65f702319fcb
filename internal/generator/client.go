// Package generator calls the OpenRouter image generation API.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pysugar/visionary-studio/internal/util"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "google/gemini-2.5-flash-image-preview"

	defaultTimeout = 180 * time.Second

	genericFailure = "Failed to generate image"
)

// AspectRatios lists the supported output shapes.
var AspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// ValidAspectRatio reports whether ratio is one of AspectRatios.
func ValidAspectRatio(ratio string) bool {
	for _, r := range AspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}

// Result is a normalized generation response.
type Result struct {
	URL       string `json:"url"`
	Prompt    string `json:"prompt"`
	Timestamp int64  `json:"timestamp"`
}

// UpstreamError is returned when OpenRouter responds with a failure.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Client issues one request per Generate call. There is no retry.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	referer    string
	httpClient *http.Client
	now        func() time.Time
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referer is sent as HTTP-Referer, which OpenRouter uses for attribution.
	Referer    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		referer:    opts.Referer,
		httpClient: httpClient,
		now:        time.Now,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Modalities  []string      `json:"modalities"`
	ImageConfig struct {
		AspectRatio string `json:"aspect_ratio"`
	} `json:"image_config"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Images []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces one image for prompt at the given aspect ratio.
func (c *Client) Generate(ctx context.Context, prompt, aspectRatio string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if !ValidAspectRatio(aspectRatio) {
		return nil, fmt.Errorf("unsupported aspect ratio: %q", aspectRatio)
	}
	if c.apiKey == "" {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: "OpenRouter API key is not configured"}
	}

	payload := chatRequest{
		Model:      c.model,
		Messages:   []chatMessage{{Role: "user", Content: prompt}},
		Modalities: []string{"image", "text"},
	}
	payload.ImageConfig.AspectRatio = aspectRatio

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
		req.Header.Set("X-Title", "Visionary AI")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read openrouter response: %w", err)
	}

	var parsed chatResponse
	parseErr := json.Unmarshal(respBody, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("❌ [Generate] OpenRouter status %d: %s", resp.StatusCode, util.TruncateBytes(respBody))
		msg := genericFailure
		if parseErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}
	if parseErr != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: genericFailure}
	}
	// OpenRouter reports some provider failures inside a 200 body.
	if parsed.Error != nil && parsed.Error.Message != "" {
		log.Printf("❌ [Generate] OpenRouter error in 200 response: %s", util.TruncateBytes(respBody))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: parsed.Error.Message}
	}

	if len(parsed.Choices) == 0 || len(parsed.Choices[0].Message.Images) == 0 ||
		parsed.Choices[0].Message.Images[0].ImageURL.URL == "" {
		log.Printf("⚠️ [Generate] OpenRouter returned no image: %s", util.TruncateBytes(respBody))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: "No image returned by the model"}
	}

	return &Result{
		URL:       parsed.Choices[0].Message.Images[0].ImageURL.URL,
		Prompt:    prompt,
		Timestamp: c.now().UnixMilli(),
	}, nil
}
