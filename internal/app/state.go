// Package app holds the client-side application state: the prompt being
// edited, the displayed image, the history list and the progress flags of
// generation and export.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pysugar/visionary-studio/internal/auth/google"
	"github.com/pysugar/visionary-studio/internal/generator"
	"github.com/pysugar/visionary-studio/internal/history"
)

// SuccessDisplay is how long the save-success flag stays set.
const SuccessDisplay = 3 * time.Second

var (
	ErrEmptyPrompt  = errors.New("please enter a prompt")
	ErrBusy         = errors.New("another operation is in progress")
	ErrNoImage      = errors.New("no image selected")
	ErrNotConnected = errors.New("please connect your Google account first")
)

// Backend is what the state talks to: the HTTP API in a browser build, or
// in-process services in the terminal client.
type Backend interface {
	Generate(ctx context.Context, prompt, aspectRatio string) (*generator.Result, error)
	AuthStatus(ctx context.Context) (bool, error)
	SaveToGoogle(ctx context.Context, imageDataURI, prompt, aspectRatio string) (fileLink string, err error)
}

// View is a point-in-time copy of the state for rendering.
type View struct {
	Prompt          string
	AspectRatio     string
	Current         *history.GeneratedImage
	History         []history.GeneratedImage
	IsGenerating    bool
	IsSaving        bool
	SaveSuccess     bool
	IsAuthenticated bool
	Error           string
	LastFileLink    string
}

// State is safe for concurrent use; backend calls run without holding the
// lock so Snapshot stays responsive.
type State struct {
	mu sync.Mutex

	backend Backend
	store   history.Store
	history *history.History

	prompt        string
	aspectRatio   string
	current       *history.GeneratedImage
	generating    bool
	saving        bool
	saveSuccess   bool
	authenticated bool
	errMsg        string
	lastFileLink  string

	successTTL   time.Duration
	successTimer *time.Timer
	httpClient   *http.Client
	newID        func() string
}

// New loads persisted history once and returns a ready state.
func New(backend Backend, store history.Store) (*State, error) {
	h, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &State{
		backend:     backend,
		store:       store,
		history:     h,
		aspectRatio: "1:1",
		successTTL:  SuccessDisplay,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		newID:       func() string { return uuid.New().String() },
	}, nil
}

// Init queries the authentication status once.
func (s *State) Init(ctx context.Context) {
	ok, err := s.backend.AuthStatus(ctx)
	if err != nil {
		log.Printf("⚠️ [App] Failed to check Google auth status: %v", err)
		return
	}
	s.mu.Lock()
	s.authenticated = ok
	s.mu.Unlock()
}

// WatchAuth marks the state authenticated whenever an authorization event
// arrives. The returned channel is closed once events is closed and the
// watcher has exited.
func (s *State) WatchAuth(events <-chan google.Authorized) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range events {
			s.mu.Lock()
			s.authenticated = true
			s.mu.Unlock()
		}
	}()
	return done
}

func (s *State) SetPrompt(prompt string) {
	s.mu.Lock()
	s.prompt = prompt
	s.mu.Unlock()
}

func (s *State) SetAspectRatio(ratio string) error {
	if !generator.ValidAspectRatio(ratio) {
		return fmt.Errorf("unsupported aspect ratio: %q", ratio)
	}
	s.mu.Lock()
	s.aspectRatio = ratio
	s.mu.Unlock()
	return nil
}

// Generate runs one generation with the current prompt and aspect ratio.
// The result becomes the displayed image and the newest history entry.
func (s *State) Generate(ctx context.Context) (*history.GeneratedImage, error) {
	s.mu.Lock()
	prompt := strings.TrimSpace(s.prompt)
	ratio := s.aspectRatio
	switch {
	case prompt == "":
		s.errMsg = ErrEmptyPrompt.Error()
		s.mu.Unlock()
		return nil, ErrEmptyPrompt
	case s.generating:
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.generating = true
	s.errMsg = ""
	s.mu.Unlock()

	res, err := s.backend.Generate(ctx, prompt, ratio)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	if err != nil {
		s.errMsg = err.Error()
		return nil, err
	}

	img := history.GeneratedImage{
		ID:          s.newID(),
		URL:         res.URL,
		Prompt:      res.Prompt,
		AspectRatio: ratio,
		Timestamp:   res.Timestamp,
	}
	s.current = &img
	s.history.Add(img)
	s.persistLocked()

	out := img
	return &out, nil
}

// Save exports the displayed image to Google Drive and Sheets.
func (s *State) Save(ctx context.Context) (string, error) {
	s.mu.Lock()
	switch {
	case s.current == nil:
		s.mu.Unlock()
		return "", ErrNoImage
	case !s.authenticated:
		s.errMsg = ErrNotConnected.Error()
		s.mu.Unlock()
		return "", ErrNotConnected
	case s.saving:
		s.mu.Unlock()
		return "", ErrBusy
	}
	img := *s.current
	s.saving = true
	s.errMsg = ""
	s.mu.Unlock()

	link, err := s.saveImage(ctx, img)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.errMsg = err.Error()
		return "", err
	}
	s.lastFileLink = link
	s.showSuccessLocked()
	return link, nil
}

func (s *State) saveImage(ctx context.Context, img history.GeneratedImage) (string, error) {
	dataURI, err := s.toDataURI(ctx, img.URL)
	if err != nil {
		return "", err
	}
	return s.backend.SaveToGoogle(ctx, dataURI, img.Prompt, img.AspectRatio)
}

func (s *State) showSuccessLocked() {
	s.saveSuccess = true
	if s.successTimer != nil {
		s.successTimer.Stop()
	}
	s.successTimer = time.AfterFunc(s.successTTL, func() {
		s.mu.Lock()
		s.saveSuccess = false
		s.mu.Unlock()
	})
}

// Select displays a history entry.
func (s *State) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.history.Get(id)
	if !ok {
		return false
	}
	s.current = &img
	return true
}

// Delete removes a history entry. Deleting the displayed image clears it.
func (s *State) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Remove(id) {
		return false
	}
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.persistLocked()
	return true
}

// Snapshot copies the current state.
func (s *State) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Prompt:          s.prompt,
		AspectRatio:     s.aspectRatio,
		History:         s.history.Items(),
		IsGenerating:    s.generating,
		IsSaving:        s.saving,
		SaveSuccess:     s.saveSuccess,
		IsAuthenticated: s.authenticated,
		Error:           s.errMsg,
		LastFileLink:    s.lastFileLink,
	}
	if s.current != nil {
		cur := *s.current
		v.Current = &cur
	}
	return v
}

func (s *State) persistLocked() {
	if err := s.store.Save(s.history); err != nil {
		log.Printf("⚠️ [App] Failed to persist history: %v", err)
	}
}

// toDataURI returns url unchanged when it already is a data URI, otherwise
// downloads it and inlines the bytes.
func (s *State) toDataURI(ctx context.Context, url string) (string, error) {
	if strings.HasPrefix(url, "data:") {
		return url, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
