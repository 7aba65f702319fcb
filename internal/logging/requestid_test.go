package logging

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	if len(id) != 8 {
		t.Errorf("GenerateRequestID() length = %d, want 8", len(id))
	}

	if id2 := GenerateRequestID(); id == id2 {
		t.Errorf("GenerateRequestID() generated duplicate IDs: %s", id)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "-" {
		t.Errorf("GetRequestID(empty context) = %q, want \"-\"", got)
	}

	ctx = WithRequestID(ctx, "test1234")
	if got := GetRequestID(ctx); got != "test1234" {
		t.Errorf("GetRequestID() = %q, want %q", got, "test1234")
	}
}

func TestPrintf_PrefixesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}()

	Printf(WithRequestID(context.Background(), "abcd1234"), "saved %d rows", 2)

	if got := strings.TrimSpace(buf.String()); got != "[abcd1234] saved 2 rows" {
		t.Errorf("log line = %q", got)
	}
}
