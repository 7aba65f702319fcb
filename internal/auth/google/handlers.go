package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/pysugar/visionary-studio/internal/session"
)

// HandleAuthURL returns the consent page URL as {"url": ...}.
func HandleAuthURL(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url": ctrl.AuthorizationURL(),
		})
	}
}

// HandleCallback exchanges the code Google redirected back with, stores the
// token set in the session cookie and renders the popup-closing page.
func HandleCallback(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")

		tokens, err := ctrl.Exchange(r.Context(), code)
		if err != nil {
			log.Printf("❌ [OAuth] %v", err)
			status := http.StatusInternalServerError
			if errors.Is(err, errMissingCode) {
				status = http.StatusBadRequest
			}
			writeFailurePage(w, status)
			return
		}

		if err := session.Write(w, tokens); err != nil {
			log.Printf("❌ [OAuth] Failed to write session cookie: %v", err)
			writeFailurePage(w, http.StatusInternalServerError)
			return
		}

		log.Printf("✅ [OAuth] Google account connected (scope: %s)", tokens.Scope)
		writeSuccessPage(w)
	}
}

// HandleStatus reports {"isAuthenticated": bool} from the request cookie.
func HandleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromRequest(r)
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			log.Printf("⚠️ [OAuth] Ignoring unreadable session cookie: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{
			"isAuthenticated": err == nil && Status(sess),
		})
	}
}

// MessageAuthSuccess is posted to window.opener after a successful exchange.
const MessageAuthSuccess = "OAUTH_AUTH_SUCCESS"

func writeSuccessPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Authentication Successful</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; background: #1a1a2e; color: #eee; text-align: center; }
		.success { color: #4ade80; font-size: 24px; }
	</style>
</head>
<body>
	<div class="success">✅ Authentication successful</div>
	<p>This window should close automatically.</p>
	<script>
		if (window.opener) {
			window.opener.postMessage({ type: '%s' }, '*');
			window.close();
		} else {
			window.location.href = '/';
		}
	</script>
</body>
</html>`, MessageAuthSuccess)
}

func writeFailurePage(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Authentication Failed</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; background: #1a1a2e; color: #eee; text-align: center; }
		.error { color: #f87171; font-size: 24px; }
	</style>
</head>
<body>
	<div class="error">❌ Authentication failed</div>
	<p>Please close this window and try connecting again.</p>
</body>
</html>`)
}
