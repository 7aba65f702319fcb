package google

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pysugar/visionary-studio/internal/session"
)

// CallbackTimeout is how long the local callback server waits for Google.
const CallbackTimeout = 5 * time.Minute

// CallbackResult is the outcome of a locally received OAuth callback.
type CallbackResult struct {
	Tokens *session.Tokens
	Err    error
}

// StartCallbackServer listens on the host:port of the controller's redirect
// URL and completes the code exchange there. It is used by terminal clients
// that have no browser session of their own. Exactly one result is delivered
// on the returned channel, after which the caller should invoke cleanup.
func StartCallbackServer(ctrl *Controller) (resultChan <-chan CallbackResult, cleanup func(), err error) {
	redirect, err := url.Parse(ctrl.config.RedirectURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redirect URL: %w", err)
	}

	listener, err := net.Listen("tcp", listenAddr(redirect))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	log.Printf("[OAuth] Callback server listening on %s", listener.Addr())

	results := make(chan CallbackResult, 1)
	var deliver sync.Once
	send := func(res CallbackResult) {
		deliver.Do(func() { results <- res })
	}

	mux := http.NewServeMux()
	srv := &http.Server{Handler: mux}

	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		tokens, err := ctrl.Exchange(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			send(CallbackResult{Err: err})
			status := http.StatusInternalServerError
			if errors.Is(err, errMissingCode) {
				status = http.StatusBadRequest
			}
			writeFailurePage(w, status)
			return
		}
		send(CallbackResult{Tokens: tokens})
		writeSuccessPage(w)
	})

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[OAuth] Callback server error: %v", err)
		}
	}()

	timer := time.AfterFunc(CallbackTimeout, func() {
		log.Printf("[OAuth] Callback timeout after %v", CallbackTimeout)
		send(CallbackResult{Err: errors.New("OAuth callback timeout")})
	})

	var once sync.Once
	cleanup = func() {
		once.Do(func() {
			timer.Stop()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("[OAuth] Error shutting down callback server: %v", err)
			}
			log.Printf("[OAuth] Callback server stopped")
		})
	}

	return results, cleanup, nil
}

// listenAddr is the host:port of u, with the port implied by the scheme when
// the URL carries none.
func listenAddr(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
