package results

import (
	"context"
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO opportunity_results (id, interview_status) VALUES ('OR-1', 'pending')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return s
}

func TestRecordInterview(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RecordInterview(ctx, "OR-1", "completed", "rec/c1/a.wav"); err != nil {
		t.Fatalf("RecordInterview failed: %v", err)
	}

	var status, key string
	row := s.DB.QueryRowContext(ctx, `SELECT interview_status, recording_key FROM opportunity_results WHERE id = ?`, "OR-1")
	if err := row.Scan(&status, &key); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if status != "completed" || key != "rec/c1/a.wav" {
		t.Errorf("Expected completed/rec/c1/a.wav, got %s/%s", status, key)
	}
}

func TestRecordInterview_NoRow(t *testing.T) {
	s := openTestStore(t)

	err := s.RecordInterview(context.Background(), "OR-404", "completed", "k")
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("Expected ErrNoRows, got %v", err)
	}
}

func TestUpdate_RowsAffected(t *testing.T) {
	s := openTestStore(t)

	n, err := s.Update(context.Background(), Table, [2]Assignment{
		{Column: ColumnStatus, Value: "x"},
		{Column: ColumnRecording, Value: "y"},
	}, ColumnID, "OR-1")
	if err != nil || n != 1 {
		t.Errorf("Expected 1 row, got %d (%v)", n, err)
	}
}

func TestUpdate_RejectsIdentifiers(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Update(context.Background(), "opportunity_results; DROP TABLE x", [2]Assignment{
		{Column: "a", Value: 1},
		{Column: "b", Value: 2},
	}, "id", "1")
	if !errors.Is(err, ErrIdentifier) {
		t.Errorf("Expected ErrIdentifier, got %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	pg := &Store{Driver: DriverPostgres}
	lite := &Store{Driver: DriverSQLite}
	if pg.placeholder(2) != "$2" || lite.placeholder(2) != "?" {
		t.Errorf("Unexpected placeholders %s %s", pg.placeholder(2), lite.placeholder(2))
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
