// Package results writes interview outcomes back to the relational database.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// Table and columns of the interview outcome row.
	Table           = "opportunity_results"
	ColumnID        = "id"
	ColumnStatus    = "interview_status"
	ColumnRecording = "recording_key"
)

var (
	// ErrNoRows is returned when an update matched nothing.
	ErrNoRows = errors.New("no matching row")
	// ErrIdentifier is returned for table or column names that are not plain identifiers.
	ErrIdentifier = errors.New("invalid SQL identifier")

	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Assignment is one column = value pair of a SET clause.
type Assignment struct {
	Column string
	Value  any
}

// Store runs updates against a database/sql handle.
type Store struct {
	DB     *sql.DB
	Driver string
}

// Open opens the database. driver is "postgres" or "sqlite".
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	}
	return &Store{DB: db, Driver: driver}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Update sets two columns on the rows where whereColumn = whereValue and returns
// the number of rows affected.
func (s *Store) Update(ctx context.Context, table string, set [2]Assignment, whereColumn string, whereValue any) (int64, error) {
	for _, name := range []string{table, set[0].Column, set[1].Column, whereColumn} {
		if !identRe.MatchString(name) {
			return 0, fmt.Errorf("%w: %q", ErrIdentifier, name)
		}
	}

	query := fmt.Sprintf("UPDATE %s SET %s = %s, %s = %s WHERE %s = %s",
		table,
		set[0].Column, s.placeholder(1),
		set[1].Column, s.placeholder(2),
		whereColumn, s.placeholder(3),
	)
	res, err := s.DB.ExecContext(ctx, query, set[0].Value, set[1].Value, whereValue)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return n, nil
}

// RecordInterview stores the interview status and the recording key for one
// opportunity result.
func (s *Store) RecordInterview(ctx context.Context, opportunityResultID, status, recordingKey string) error {
	n, err := s.Update(ctx, Table, [2]Assignment{
		{Column: ColumnStatus, Value: status},
		{Column: ColumnRecording, Value: recordingKey},
	}, ColumnID, opportunityResultID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNoRows, Table, opportunityResultID)
	}
	return nil
}

// EnsureSchema creates the outcome table for local sqlite databases. Postgres
// schemas are owned elsewhere.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.Driver != DriverSQLite {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS opportunity_results (
	id TEXT PRIMARY KEY,
	interview_status TEXT,
	recording_key TEXT,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`)
	return err
}

func (s *Store) placeholder(n int) string {
	if strings.EqualFold(s.Driver, DriverPostgres) {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
