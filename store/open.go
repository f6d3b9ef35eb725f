package store

import (
	"context"
	"fmt"
	"strings"
)

// Source kinds accepted by Open.
const (
	KindFile = "file"
	KindSQL  = "sql"
	KindS3   = "s3"
)

// Settings selects and configures a Source.
type Settings struct {
	Kind        string // file (default), sql, s3
	Path        string
	Sheet       string
	DatabaseURL string
	Table       string
	Query       string // overrides Table
	S3          S3Config
}

// Open builds the configured source. The returned close function releases
// the database handle and is never nil.
func Open(ctx context.Context, s Settings) (Source, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(s.Kind) {
	case "", KindFile:
		if s.Path == "" {
			return nil, noop, fmt.Errorf("file source needs a path")
		}
		src, err := NewFileSource(s.Path, s.Sheet)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	case KindSQL:
		if s.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("sql source needs a database url")
		}
		db, err := OpenDB(ctx, s.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if s.Query != "" {
			return NewSQLQuerySource(db, s.Query), db.Close, nil
		}
		src, err := NewSQLSource(db, s.Table)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return src, db.Close, nil
	case KindS3:
		src, err := NewS3Source(ctx, s.S3)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown data source %q", s.Kind)
	}
}
