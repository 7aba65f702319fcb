// Package google implements the Google OAuth authorization flow used to
// connect a Drive + Sheets account for exporting generations.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pysugar/visionary-studio/internal/session"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

// CallbackPath is the fixed redirect path registered with Google.
const CallbackPath = "/api/auth/google/callback"

// Scopes grant per-file Drive access and spreadsheet read/write.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/spreadsheets",
}

var errMissingCode = errors.New("missing authorization code")

// Config is the OAuth client configuration. It is built once at startup and
// handed to NewController so tests can substitute their own endpoint.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint defaults to Google's production endpoint when zero.
	Endpoint oauth2.Endpoint
}

// RedirectURLFor builds the callback URL from the application base URL.
func RedirectURLFor(appURL string) string {
	return strings.TrimRight(appURL, "/") + CallbackPath
}

// OAuth2 returns the oauth2.Config for c.
func (c Config) OAuth2() *oauth2.Config {
	endpoint := c.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = googleOAuth.Endpoint
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}
}

// AuthExchangeError is returned when Google rejects an authorization code
// (expired, reused or malformed).
type AuthExchangeError struct {
	Err error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed: %v", e.Err)
}

func (e *AuthExchangeError) Unwrap() error { return e.Err }

// Controller drives the authorization handshake:
// UNAUTHENTICATED -> AWAITING_CODE (URL issued) -> AUTHENTICATED | FAILED.
type Controller struct {
	config   *oauth2.Config
	notifier *Notifier
}

// NewController creates a controller. notifier may be nil.
func NewController(cfg Config, notifier *Notifier) *Controller {
	return &Controller{
		config:   cfg.OAuth2(),
		notifier: notifier,
	}
}

// Notifier returns the channel hub signalled after each successful exchange.
func (c *Controller) Notifier() *Notifier {
	return c.notifier
}

// AuthorizationURL returns the consent page URL. Offline access plus a forced
// consent prompt make Google issue a refresh token on every authorization.
func (c *Controller) AuthorizationURL() string {
	return c.config.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token set and notifies
// subscribers on success.
func (c *Controller) Exchange(ctx context.Context, code string) (*session.Tokens, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &AuthExchangeError{Err: errMissingCode}
	}

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthExchangeError{Err: err}
	}

	tokens := session.FromOAuth2(tok)
	c.notifier.Publish(Authorized{Tokens: tokens})
	return tokens, nil
}

// Status reports whether sess carries a parsed token set. Freshness is not
// checked.
func Status(sess *session.Session) bool {
	return sess != nil && sess.Tokens != nil
}
