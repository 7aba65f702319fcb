package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/pysugar/visionary-studio/internal/generator"
	"github.com/pysugar/visionary-studio/internal/logging"
)

// ImageGenerator produces one image per call.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, aspectRatio string) (*generator.Result, error)
}

type generateRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	AspectRatio string `json:"aspectRatio" validate:"required,oneof=1:1 3:4 4:3 9:16 16:9"`
}

// GenerateHandler proxies a prompt to OpenRouter.
// POST /api/openrouter-generate
func GenerateHandler(gen ImageGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := gen.Generate(r.Context(), req.Prompt, req.AspectRatio)
		if err != nil {
			logging.Printf(r.Context(), "❌ Generation failed: %v", err)
			var upErr *generator.UpstreamError
			if errors.As(err, &upErr) {
				writeError(w, http.StatusInternalServerError, upErr.Message)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		logging.Printf(r.Context(), "🎨 Generated image (aspect %s)", req.AspectRatio)
		writeJSON(w, http.StatusOK, result)
	}
}
