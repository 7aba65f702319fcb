package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/pysugar/visionary-studio/internal/export"
	"github.com/pysugar/visionary-studio/internal/logging"
	"github.com/pysugar/visionary-studio/internal/session"
)

// Exporter saves an image to the session owner's Google account.
type Exporter interface {
	Export(ctx context.Context, sess *session.Session, imageDataURI, prompt, aspectRatio string) (*export.Result, error)
}

type saveRequest struct {
	ImageData   string `json:"imageData" validate:"required"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

// SaveToGoogleHandler uploads the image to Drive and logs it in Sheets.
// POST /api/save-to-google
func SaveToGoogleHandler(exporter Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromRequest(r)
		if err != nil || !sess.Valid() {
			writeError(w, http.StatusUnauthorized, "Not authenticated with Google")
			return
		}

		// Only 401 and 500 are part of this endpoint's contract.
		var req saveRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		result, err := exporter.Export(r.Context(), sess, req.ImageData, req.Prompt, req.AspectRatio)
		if err != nil {
			if errors.Is(err, export.ErrNotAuthenticated) {
				writeError(w, http.StatusUnauthorized, "Not authenticated with Google")
				return
			}
			logging.Printf(r.Context(), "❌ Save to Google failed: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		logging.Printf(r.Context(), "💾 Saved to Google: %s", result.FileLink)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"fileLink": result.FileLink,
		})
	}
}
