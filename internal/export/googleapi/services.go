// Package googleapi implements the export interfaces on top of the Google
// Drive v3 and Sheets v4 client libraries.
package googleapi

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pysugar/visionary-studio/internal/export"
	"github.com/pysugar/visionary-studio/internal/session"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	mimePNG         = "image/png"
	mimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
)

// Factory creates Drive and Sheets clients per export. Tokens are wrapped in
// a static source, so an expired access token fails instead of refreshing.
type Factory struct {
	// Options are appended to every client, e.g. option.WithEndpoint in tests.
	Options []option.ClientOption
}

var _ export.Factory = (*Factory)(nil)

func (f *Factory) Services(ctx context.Context, tokens *session.Tokens) (export.Files, export.Sheets, error) {
	ts := oauth2.StaticTokenSource(tokens.OAuth2())
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, f.Options...)

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create drive service: %w", err)
	}
	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create sheets service: %w", err)
	}
	return &Files{svc: driveService}, &Sheets{svc: sheetsService}, nil
}

// Files wraps a Drive service.
type Files struct {
	svc *drive.Service
}

func (f *Files) UploadPNG(ctx context.Context, name string, data []byte) (*export.UploadedFile, error) {
	file, err := f.svc.Files.Create(&drive.File{Name: name, MimeType: mimePNG}).
		Media(bytes.NewReader(data), googleapi.ContentType(mimePNG)).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return &export.UploadedFile{ID: file.Id, WebViewLink: file.WebViewLink}, nil
}

func (f *Files) FindSpreadsheet(ctx context.Context, name string) (string, bool, error) {
	list, err := f.svc.Files.List().
		Q(SpreadsheetQuery(name)).
		Fields("files(id, name)").
		Spaces("drive").
		OrderBy("createdTime").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, err
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return list.Files[0].Id, true, nil
}

// SpreadsheetQuery builds the Drive search for a non-trashed spreadsheet
// with exactly the given name.
func SpreadsheetQuery(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	return fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escaped, mimeSpreadsheet)
}

// Sheets wraps a Sheets service.
type Sheets struct {
	svc *sheets.Service
}

func (s *Sheets) CreateSpreadsheet(ctx context.Context, title, sheetTitle string) (string, error) {
	created, err := s.svc.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: sheetTitle}},
		},
	}).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.SpreadsheetId, nil
}

func (s *Sheets) WriteRow(ctx context.Context, spreadsheetID, rangeA1 string, row []interface{}) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rangeA1, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// AppendRow stores cells verbatim. Prompts and ratios such as "16:9" must not
// be parsed as formulas or times.
func (s *Sheets) AppendRow(ctx context.Context, spreadsheetID, rangeA1 string, row []interface{}) error {
	_, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rangeA1, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}
