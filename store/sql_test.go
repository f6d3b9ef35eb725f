package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLSourceLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"year", "month_name", "business_unit", "gsales", "fgp", "comment"}).
		AddRow(int64(2024), "Jan", "Snacks", 1200.5, "300", "ok").
		AddRow(int64(2024), "feb", "Drinks", int64(800), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM sales_facts")).WillReturnRows(rows)

	src, err := NewSQLSource(db, "")
	require.NoError(t, err)
	facts, sch, err := src.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, facts, 2)
	assert.Equal(t, 2024, facts[0].Year)
	assert.Equal(t, "Snacks", facts[0].Business)
	assert.InDelta(t, 1200.5, facts[0].Revenue, 1e-9)
	assert.InDelta(t, 300, facts[0].GrossProfit, 1e-9)
	assert.Equal(t, "Feb", facts[1].Month)
	assert.InDelta(t, 800, facts[1].Revenue, 1e-9)
	assert.Zero(t, facts[1].GrossProfit)

	assert.Equal(t, "sql", sch.DiscoveredFrom)
	assert.Equal(t, "sales_facts", sch.Name)
	require.Len(t, sch.SkippedColumns, 1)
	assert.Equal(t, "comment", sch.SkippedColumns[0].Column)
	assert.Equal(t, "sql:sales_facts", src.Describe())
}

func TestSQLSourceQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT year").WillReturnError(errors.New("connection reset"))

	_, _, err = NewSQLQuerySource(db, "SELECT year, gsales FROM v_facts").Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSQLSourceRejectsTableNames(t *testing.T) {
	_, err := NewSQLSource(nil, "facts; DROP TABLE x")
	assert.Error(t, err)

	_, err = NewSQLSource(nil, "reporting.sales_facts")
	assert.NoError(t, err)
}

func TestSQLiteSource(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "facts.db")
	db, err := OpenDB(context.Background(), url)
	require.NoError(t, err)
	defer db.Close()

	exec := func(db *sql.DB, q string, args ...any) {
		_, err := db.Exec(q, args...)
		require.NoError(t, err)
	}
	exec(db, `CREATE TABLE facts ("Year" INTEGER, "Month" TEXT, "Brand" TEXT, "Group Cost" REAL, "LTA" REAL)`)
	exec(db, `INSERT INTO facts VALUES (?, ?, ?, ?, ?)`, 2023, "Dec", "Zest", 12.5, 3)
	exec(db, `INSERT INTO facts VALUES (?, ?, ?, ?, ?)`, 2024, "Jan", "Aura", nil, 7)

	src, err := NewSQLSource(db, "facts")
	require.NoError(t, err)
	facts, sch, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, facts, 2)
	assert.Equal(t, "Dec", facts[0].Month)
	assert.InDelta(t, 12.5, facts[0].GroupCost, 1e-9)
	assert.Zero(t, facts[1].GroupCost)
	assert.InDelta(t, 7, facts[1].LTA, 1e-9)
	assert.Len(t, sch.Measures, 2)
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		url    string
		driver string
		dsn    string
	}{
		{"postgres://u:p@localhost:5432/pulse", "pgx", "postgres://u:p@localhost:5432/pulse"},
		{"postgresql://localhost/pulse", "pgx", "postgresql://localhost/pulse"},
		{"sqlite:///var/data/facts.db", "sqlite", "/var/data/facts.db"},
		{"file:facts.db?mode=ro", "sqlite", "file:facts.db?mode=ro"},
		{"./facts.sqlite", "sqlite", "./facts.sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, err := DriverFor(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}

	_, _, err := DriverFor("mysql://localhost/pulse")
	assert.Error(t, err)
}
