package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/pysugar/visionary-studio/internal/auth/google"
	"github.com/pysugar/visionary-studio/internal/db"
	"github.com/pysugar/visionary-studio/internal/export"
	"github.com/pysugar/visionary-studio/internal/generator"
	"github.com/pysugar/visionary-studio/internal/session"
	"gorm.io/gorm"
)

// Generator is the image generation dependency of LocalBackend.
type Generator interface {
	Generate(ctx context.Context, prompt, aspectRatio string) (*generator.Result, error)
}

// Exporter is the export dependency of LocalBackend.
type Exporter interface {
	Export(ctx context.Context, sess *session.Session, imageDataURI, prompt, aspectRatio string) (*export.Result, error)
}

// TokenSlot persists the token set for clients without a browser cookie jar.
type TokenSlot interface {
	Load() (*session.Tokens, error)
	Store(t *session.Tokens) error
}

// SettingsTokenSlot keeps the cookie-encoded token set in the settings table
// under the cookie's own name.
type SettingsTokenSlot struct {
	db *gorm.DB
}

func NewSettingsTokenSlot(database *gorm.DB) *SettingsTokenSlot {
	return &SettingsTokenSlot{db: database}
}

func (s *SettingsTokenSlot) Load() (*session.Tokens, error) {
	value, ok, err := db.GetSetting(s.db, session.CookieName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, session.ErrNoSession
	}
	return session.Decode(value)
}

func (s *SettingsTokenSlot) Store(t *session.Tokens) error {
	value, err := session.Encode(t)
	if err != nil {
		return err
	}
	return db.SetSetting(s.db, session.CookieName, value)
}

// Clear forgets the stored token set.
func (s *SettingsTokenSlot) Clear() error {
	return db.DeleteSetting(s.db, session.CookieName)
}

// LocalBackend runs generation and export in-process.
type LocalBackend struct {
	Generator Generator
	Exporter  Exporter
	Tokens    TokenSlot
}

var _ Backend = (*LocalBackend)(nil)

func (b *LocalBackend) Generate(ctx context.Context, prompt, aspectRatio string) (*generator.Result, error) {
	return b.Generator.Generate(ctx, prompt, aspectRatio)
}

func (b *LocalBackend) AuthStatus(ctx context.Context) (bool, error) {
	sess, err := b.session()
	if err != nil {
		return false, nil
	}
	return google.Status(sess), nil
}

func (b *LocalBackend) SaveToGoogle(ctx context.Context, imageDataURI, prompt, aspectRatio string) (string, error) {
	sess, err := b.session()
	if err != nil {
		return "", export.ErrNotAuthenticated
	}
	res, err := b.Exporter.Export(ctx, sess, imageDataURI, prompt, aspectRatio)
	if err != nil {
		return "", err
	}
	return res.FileLink, nil
}

func (b *LocalBackend) session() (*session.Session, error) {
	tokens, err := b.Tokens.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			log.Printf("⚠️ [App] Stored Google session is unreadable: %v", err)
		}
		return nil, err
	}
	return &session.Session{Tokens: tokens}, nil
}

// Login completes the authorization flow through a local callback server
// and stores the resulting token set in slot. show receives the consent URL
// the user has to open.
func Login(ctx context.Context, ctrl *google.Controller, slot TokenSlot, show func(url string)) error {
	results, cleanup, err := google.StartCallbackServer(ctrl)
	if err != nil {
		return err
	}
	defer cleanup()

	show(ctrl.AuthorizationURL())

	select {
	case res := <-results:
		if res.Err != nil {
			return res.Err
		}
		if err := slot.Store(res.Tokens); err != nil {
			return fmt.Errorf("store google session: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
