// Package session stores the Google OAuth token set in a client-held cookie.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// CookieName is the cookie carrying the URL-encoded JSON token set.
	CookieName = "google_tokens"

	// MaxAge is the cookie lifetime (30 days).
	MaxAge = 30 * 24 * 60 * 60
)

var (
	// ErrNoSession means the request carried no token cookie.
	ErrNoSession = errors.New("no google session")

	// ErrMalformed means the token cookie could not be parsed.
	ErrMalformed = errors.New("malformed google session")
)

// Tokens is the OAuth token set as handed out by Google.
// Field names follow Google's token response so the cookie stays readable
// by other clients of the same site.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"` // epoch milliseconds
}

// FromOAuth2 converts an exchanged oauth2 token.
func FromOAuth2(tok *oauth2.Token) *Tokens {
	if tok == nil {
		return nil
	}
	t := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		t.ExpiryDate = tok.Expiry.UnixMilli()
	}
	return t
}

// OAuth2 returns the token in the form the Google client libraries accept.
func (t *Tokens) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiryDate > 0 {
		tok.Expiry = time.UnixMilli(t.ExpiryDate)
	}
	return tok
}

// Encode serializes the token set into a cookie-safe value.
func Encode(t *Tokens) (string, error) {
	if t == nil {
		return "", fmt.Errorf("encode session: nil tokens")
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	return url.QueryEscape(string(raw)), nil
}

// Decode parses a value produced by Encode.
func Decode(value string) (*Tokens, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrNoSession
	}
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var t *Tokens
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// "null" and "{}" parse cleanly but carry no credentials.
	if t == nil || *t == (Tokens{}) {
		return nil, fmt.Errorf("%w: empty token set", ErrMalformed)
	}
	return t, nil
}

// Session is the per-request view of the cookie. It is passed explicitly to
// every operation that needs Google access.
type Session struct {
	Tokens *Tokens
}

// Valid reports whether the session holds a usable access token.
// Expiry is deliberately not checked.
func (s *Session) Valid() bool {
	return s != nil && s.Tokens != nil && s.Tokens.AccessToken != ""
}

// FromRequest reads the session cookie from r.
func FromRequest(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	t, err := Decode(c.Value)
	if err != nil {
		return nil, err
	}
	return &Session{Tokens: t}, nil
}

// Cookie builds the session cookie for t.
// SameSite=None is required so the cookie survives the popup OAuth round trip.
func Cookie(t *Tokens) (*http.Cookie, error) {
	value, err := Encode(t)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   MaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}, nil
}

// Write installs the session cookie on the response.
func Write(w http.ResponseWriter, t *Tokens) error {
	c, err := Cookie(t)
	if err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}
