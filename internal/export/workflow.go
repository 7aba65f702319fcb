// Package export saves a generated image to Google Drive and records it as a
// row in a Google Sheets log.
package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pysugar/visionary-studio/internal/session"
)

const (
	SpreadsheetName = "Visionary AI Generations"
	SheetName       = "Generations"

	// isoMillis matches JavaScript's Date.toISOString output.
	isoMillis = "2006-01-02T15:04:05.000Z"
)

// Header is written once, when the spreadsheet is first created.
var Header = []interface{}{"Timestamp", "Prompt", "Aspect Ratio", "Drive Link"}

// ErrNotAuthenticated means there is no Google session to export with.
var ErrNotAuthenticated = errors.New("not authenticated with Google")

// UploadedFile identifies an object stored in Drive.
type UploadedFile struct {
	ID          string
	WebViewLink string
}

// Files is the Drive side of the export.
type Files interface {
	UploadPNG(ctx context.Context, name string, data []byte) (*UploadedFile, error)
	// FindSpreadsheet returns the first spreadsheet named exactly name.
	FindSpreadsheet(ctx context.Context, name string) (id string, found bool, err error)
}

// Sheets is the Sheets side of the export.
type Sheets interface {
	CreateSpreadsheet(ctx context.Context, title, sheetTitle string) (string, error)
	WriteRow(ctx context.Context, spreadsheetID, rangeA1 string, row []interface{}) error
	AppendRow(ctx context.Context, spreadsheetID, rangeA1 string, row []interface{}) error
}

// Factory builds Drive and Sheets clients bound to one token set.
type Factory interface {
	Services(ctx context.Context, tokens *session.Tokens) (Files, Sheets, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, tokens *session.Tokens) (Files, Sheets, error)

func (f FactoryFunc) Services(ctx context.Context, tokens *session.Tokens) (Files, Sheets, error) {
	return f(ctx, tokens)
}

// Result is returned by a successful export.
type Result struct {
	FileLink      string
	FileID        string
	SpreadsheetID string
}

// Workflow runs upload, find-or-create and append strictly in sequence.
// A failing step aborts the export; earlier steps are not rolled back.
//
// Two concurrent exports for the same account may each miss the other's
// spreadsheet and create a duplicate. Later lookups then pick whichever
// Drive lists first.
type Workflow struct {
	factory Factory
	now     func() time.Time
}

func NewWorkflow(factory Factory) *Workflow {
	return &Workflow{factory: factory, now: time.Now}
}

// Export uploads the image in imageDataURI and logs it in the spreadsheet.
func (w *Workflow) Export(ctx context.Context, sess *session.Session, imageDataURI, prompt, aspectRatio string) (*Result, error) {
	if !sess.Valid() {
		return nil, ErrNotAuthenticated
	}

	data, err := DecodeDataURI(imageDataURI)
	if err != nil {
		return nil, err
	}

	files, sheets, err := w.factory.Services(ctx, sess.Tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google clients: %w", err)
	}

	now := w.now()
	name := fmt.Sprintf("Visionary_%d.png", now.UnixMilli())
	uploaded, err := files.UploadPNG(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	log.Printf("📤 [Export] Uploaded %s (id: %s)", name, uploaded.ID)

	spreadsheetID, err := w.findOrCreateSpreadsheet(ctx, files, sheets)
	if err != nil {
		return nil, err
	}

	row := []interface{}{now.UTC().Format(isoMillis), prompt, aspectRatio, uploaded.WebViewLink}
	if err := sheets.AppendRow(ctx, spreadsheetID, SheetName+"!A:D", row); err != nil {
		return nil, fmt.Errorf("failed to append row: %w", err)
	}
	log.Printf("📝 [Export] Appended row to spreadsheet %s", spreadsheetID)

	return &Result{
		FileLink:      uploaded.WebViewLink,
		FileID:        uploaded.ID,
		SpreadsheetID: spreadsheetID,
	}, nil
}

func (w *Workflow) findOrCreateSpreadsheet(ctx context.Context, files Files, sheets Sheets) (string, error) {
	id, found, err := files.FindSpreadsheet(ctx, SpreadsheetName)
	if err != nil {
		return "", fmt.Errorf("failed to search for spreadsheet: %w", err)
	}
	if found {
		return id, nil
	}

	id, err = sheets.CreateSpreadsheet(ctx, SpreadsheetName, SheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	if err := sheets.WriteRow(ctx, id, SheetName+"!A1:D1", Header); err != nil {
		return "", fmt.Errorf("failed to write spreadsheet header: %w", err)
	}
	log.Printf("📊 [Export] Created spreadsheet %q (id: %s)", SpreadsheetName, id)
	return id, nil
}

// DecodeDataURI returns the binary payload of a base64 data URI. A bare
// base64 string is accepted as well.
func DecodeDataURI(uri string) ([]byte, error) {
	payload := strings.TrimSpace(uri)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, fmt.Errorf("image data is not a base64 data URI")
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("image data is empty")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image data: %w", err)
	}
	return data, nil
}
