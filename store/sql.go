package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/helpers"
	"github.com/spektr-org/pulse/schema"
)

// DefaultTable is read when no table or query is configured.
const DefaultTable = "sales_facts"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads every row of a query. Columns are discovered from the
// result set header exactly like a CSV header.
type SQLSource struct {
	db    *sql.DB
	query string
	label string
}

// NewSQLSource reads table (schema-qualified allowed) from db.
func NewSQLSource(db *sql.DB, table string) (*SQLSource, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLSource{db: db, query: "SELECT * FROM " + table, label: table}, nil
}

// NewSQLQuerySource reads the result of an arbitrary query.
func NewSQLQuerySource(db *sql.DB, query string) *SQLSource {
	return &SQLSource{db: db, query: query, label: "query"}
}

// DriverFor maps a database URL to a registered driver name and DSN.
//
//	postgres://… postgresql://…  → pgx
//	sqlite://path, file:path, *.db → sqlite
func DriverFor(url string) (driver, dsn string, err error) {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "pgx", url, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return "sqlite", url[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), lower == ":memory:":
		return "sqlite", url, nil
	default:
		return "", "", fmt.Errorf("unsupported database url %q", url)
	}
}

// OpenDB opens and pings the database behind url.
func OpenDB(ctx context.Context, url string) (*sql.DB, error) {
	driver, dsn, err := DriverFor(url)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", driver, err)
	}
	return db, nil
}

// Load implements Source.
func (s *SQLSource) Load(ctx context.Context) ([]engine.FactRow, *schema.Config, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, nil, fmt.Errorf("fact query failed: %w", err)
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	cells := make([]sql.NullString, len(headers))
	dest := make([]any, len(headers))
	for i := range cells {
		dest[i] = &cells[i]
	}

	var records [][]string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan fact row: %w", err)
		}
		rec := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				rec[i] = c.String
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("fact query failed: %w", err)
	}

	sch, err := schema.Discover(headers, records, schema.DiscoverOptions{
		SampleSize: 200,
		MaxSamples: 8,
		Name:       s.label,
	})
	if err != nil {
		return nil, nil, err
	}
	sch.DiscoveredFrom = "sql"
	return helpers.RowsToFacts(records, *sch), sch, nil
}

// Describe implements Source.
func (s *SQLSource) Describe() string { return "sql:" + s.label }
