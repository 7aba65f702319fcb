// Package logging carries a request ID through the context and stamps it on
// log lines.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

type contextKey string

const requestIDKey contextKey = "requestId"

// GenerateRequestID creates an 8-character hex request ID.
func GenerateRequestID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns "-" if not found so log prefixes stay aligned.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return "-"
}

// Printf logs with a "[requestId]" prefix taken from ctx.
func Printf(ctx context.Context, format string, args ...interface{}) {
	log.Printf("[%s] %s", GetRequestID(ctx), fmt.Sprintf(format, args...))
}
