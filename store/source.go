package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/helpers"
	"github.com/spektr-org/pulse/schema"
)

// ============================================================================
// FACT SOURCES — Where snapshots come from
// ============================================================================
// FileSource  — CSV or XLSX on local disk
// SQLSource   — a table or query over database/sql (Postgres via pgx, SQLite)
// S3Source    — a CSV or XLSX object in S3-compatible storage
//
// Every source discovers its schema from the header it reads, so column
// aliases are resolved the same way regardless of origin.
// ============================================================================

// Source loads the full fact table.
type Source interface {
	Load(ctx context.Context) ([]engine.FactRow, *schema.Config, error)
	Describe() string
}

// Format of a file-like payload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName picks the format from a file name or object key.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported fact file %q: expected .csv or .xlsx", name)
	}
}

// parsePayload turns file bytes into facts.
func parsePayload(data []byte, format Format, sheet string) ([]engine.FactRow, *schema.Config, error) {
	switch format {
	case FormatCSV:
		return helpers.ParseCSVAuto(data)
	case FormatXLSX:
		return helpers.ParseExcel(bytes.NewReader(data), sheet)
	default:
		return nil, nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ============================================================================
// FILE SOURCE
// ============================================================================

// FileSource reads a CSV or XLSX file.
type FileSource struct {
	Path  string
	Sheet string // xlsx only, "" = first sheet
}

// NewFileSource validates the extension up front.
func NewFileSource(path, sheet string) (*FileSource, error) {
	if _, err := FormatFromName(path); err != nil {
		return nil, err
	}
	return &FileSource{Path: path, Sheet: sheet}, nil
}

// Load implements Source.
func (s *FileSource) Load(_ context.Context) ([]engine.FactRow, *schema.Config, error) {
	format, err := FormatFromName(s.Path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	rows, sch, err := parsePayload(data, format, s.Sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	sch.Name = strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
	return rows, sch, nil
}

// Describe implements Source.
func (s *FileSource) Describe() string { return "file:" + s.Path }
