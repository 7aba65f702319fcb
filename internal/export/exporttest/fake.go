// Package exporttest provides an in-memory Google account for export tests.
package exporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pysugar/visionary-studio/internal/export"
	"github.com/pysugar/visionary-studio/internal/session"
)

// Spreadsheet is a recorded spreadsheet.
type Spreadsheet struct {
	ID    string
	Title string
	Sheet string
	Rows  [][]interface{}
}

// Account is a fake Drive + Sheets account. State survives across
// Services calls, the same way a real account outlives one request.
type Account struct {
	mu sync.Mutex

	Uploads      []string
	Spreadsheets []*Spreadsheet
	Calls        []string
	Tokens       []*session.Tokens

	// FailOn makes the named call ("upload", "find", "create", "header",
	// "append") return an error.
	FailOn string
}

var _ export.Files = (*Account)(nil)
var _ export.Sheets = (*Account)(nil)

// Factory returns an export.Factory serving this account.
func (a *Account) Factory() export.Factory {
	return export.FactoryFunc(func(ctx context.Context, tokens *session.Tokens) (export.Files, export.Sheets, error) {
		a.mu.Lock()
		a.Tokens = append(a.Tokens, tokens)
		a.mu.Unlock()
		return a, a, nil
	})
}

func (a *Account) record(call string) error {
	a.Calls = append(a.Calls, call)
	if a.FailOn == call {
		return fmt.Errorf("%s: simulated failure", call)
	}
	return nil
}

func (a *Account) UploadPNG(ctx context.Context, name string, data []byte) (*export.UploadedFile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("upload"); err != nil {
		return nil, err
	}
	a.Uploads = append(a.Uploads, name)
	id := fmt.Sprintf("file-%d", len(a.Uploads))
	return &export.UploadedFile{
		ID:          id,
		WebViewLink: "https://drive.google.com/file/d/" + id + "/view",
	}, nil
}

func (a *Account) FindSpreadsheet(ctx context.Context, name string) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("find"); err != nil {
		return "", false, err
	}
	for _, s := range a.Spreadsheets {
		if s.Title == name {
			return s.ID, true, nil
		}
	}
	return "", false, nil
}

func (a *Account) CreateSpreadsheet(ctx context.Context, title, sheetTitle string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("create"); err != nil {
		return "", err
	}
	s := &Spreadsheet{
		ID:    fmt.Sprintf("sheet-%d", len(a.Spreadsheets)+1),
		Title: title,
		Sheet: sheetTitle,
	}
	a.Spreadsheets = append(a.Spreadsheets, s)
	return s.ID, nil
}

func (a *Account) WriteRow(ctx context.Context, spreadsheetID, rangeA1 string, row []interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("header"); err != nil {
		return err
	}
	s, err := a.lookup(spreadsheetID)
	if err != nil {
		return err
	}
	if len(s.Rows) == 0 {
		s.Rows = append(s.Rows, row)
	} else {
		s.Rows[0] = row
	}
	return nil
}

func (a *Account) AppendRow(ctx context.Context, spreadsheetID, rangeA1 string, row []interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record("append"); err != nil {
		return err
	}
	s, err := a.lookup(spreadsheetID)
	if err != nil {
		return err
	}
	s.Rows = append(s.Rows, row)
	return nil
}

func (a *Account) lookup(id string) (*Spreadsheet, error) {
	for _, s := range a.Spreadsheets {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("spreadsheet %s not found", id)
}
