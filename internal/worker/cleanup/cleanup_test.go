package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	queries []string
	args    [][]interface{}
	result  sql.Result
	err     error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.queries = append(m.queries, query)
	m.args = append(m.args, args)
	return m.result, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewCleanupJob_SetsRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{result: &fakeResult{}}, newTestLogger(&buf))

	if job.RetentionDays != 365 {
		t.Errorf("RetentionDays = %d, want 365", job.RetentionDays)
	}
}

func TestCleanupJob_Run_DeletesDosesAndAppointments(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 5}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(mock.queries) != 2 {
		t.Fatalf("len(queries) = %d, want 2", len(mock.queries))
	}
	if !strings.Contains(mock.queries[0], "DELETE FROM doses") {
		t.Errorf("1本目のクエリに 'DELETE FROM doses' が含まれていない: %s", mock.queries[0])
	}
	if !strings.Contains(mock.queries[0], "taken_at") {
		t.Errorf("1本目のクエリに 'taken_at' 条件が含まれていない: %s", mock.queries[0])
	}
	if !strings.Contains(mock.queries[1], "DELETE FROM appointments") {
		t.Errorf("2本目のクエリに 'DELETE FROM appointments' が含まれていない: %s", mock.queries[1])
	}
}

func TestCleanupJob_Run_UsesIntervalParameter(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&buf))
	job.RetentionDays = 30

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, args := range mock.args {
		if len(args) != 1 {
			t.Fatalf("クエリ%dの引数の数 = %d, want 1", i, len(args))
		}
		if args[0] != "30 days" {
			t.Errorf("クエリ%dの引数 = %v, want %q", i, args[0], "30 days")
		}
	}
}

func TestCleanupJob_Run_ReturnsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{err: errors.New("connection lost")}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run = nil, want error")
	}
}
