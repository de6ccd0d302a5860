package migrate

import (
	"context"
	"io"
	"log"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/mwalimu/darasa/core"
	logsvc "github.com/mwalimu/darasa/services/logger"
)

var migrationFS = fstest.MapFS{
	"migrations/001_users.sql":            {Data: []byte("CREATE TABLE users (id INT)")},
	"migrations/002_classes.sql":          {Data: []byte("CREATE TABLE classes (id INT)")},
	"migrations/rollback/001_users.sql":   {Data: []byte("DROP TABLE users")},
	"migrations/rollback/002_classes.sql": {Data: []byte("DROP TABLE classes")},
}

func testLogger() core.Logger {
	return logsvc.NewStdLogger(log.New(io.Discard, "", 0))
}

func newTestRunner(t *testing.T) (*Runner, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	runner, err := NewRunner(context.Background(), db, migrationFS, "migrations", testLogger())
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}
	return runner, mock
}

func expectApplied(mock sqlmock.Sqlmock, script, body string) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(body)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO migrations").WithArgs(script).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestRunAppliesPendingThenSkips(t *testing.T) {
	runner, mock := newTestRunner(t)
	ctx := context.Background()

	// first run: nothing ledgered, both scripts apply
	mock.ExpectQuery("SELECT migration FROM migrations").WillReturnRows(sqlmock.NewRows([]string{"migration"}))
	expectApplied(mock, "001_users", "CREATE TABLE users (id INT)")
	expectApplied(mock, "002_classes", "CREATE TABLE classes (id INT)")

	results, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if assert.Len(t, results, 2) {
		assert.Equal(t, Result{Script: "001_users", Outcome: OutcomeApplied, Message: "migration executed successfully"}, results[0])
		assert.Equal(t, OutcomeApplied, results[1].Outcome)
	}

	// second run: both ledgered, both skipped, no transactions started
	mock.ExpectQuery("SELECT migration FROM migrations").WillReturnRows(
		sqlmock.NewRows([]string{"migration"}).AddRow("001_users").AddRow("002_classes"))

	results, err = runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if assert.Len(t, results, 2) {
		for _, res := range results {
			assert.Equal(t, OutcomeSkipped, res.Outcome)
		}
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunFailureRollsBackAndContinues(t *testing.T) {
	runner, mock := newTestRunner(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT migration FROM migrations").WillReturnRows(sqlmock.NewRows([]string{"migration"}))

	// first script blows up mid-transaction: rolled back, not ledgered
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE users (id INT)")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	// second script still runs
	expectApplied(mock, "002_classes", "CREATE TABLE classes (id INT)")

	results, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if assert.Len(t, results, 2) {
		assert.Equal(t, OutcomeError, results[0].Outcome)
		assert.Contains(t, results[0].Message, assert.AnError.Error())
		assert.Equal(t, OutcomeApplied, results[1].Outcome)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSingleScriptBypassesSkipCheck(t *testing.T) {
	runner, mock := newTestRunner(t)

	// no ledger lookup: named scripts run directly
	expectApplied(mock, "002_classes", "CREATE TABLE classes (id INT)")

	results, err := runner.Run(context.Background(), "002_classes")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if assert.Len(t, results, 1) {
		assert.Equal(t, OutcomeApplied, results[0].Outcome)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMissingScript(t *testing.T) {
	runner, mock := newTestRunner(t)

	results, err := runner.Run(context.Background(), "042_nope")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if assert.Len(t, results, 1) {
		assert.Equal(t, OutcomeError, results[0].Outcome)
		assert.Contains(t, results[0].Message, "not found")
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatus(t *testing.T) {
	runner, mock := newTestRunner(t)

	mock.ExpectQuery("SELECT migration FROM migrations").WillReturnRows(
		sqlmock.NewRows([]string{"migration"}).AddRow("001_users"))

	status, err := runner.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	want := []ScriptStatus{
		{Script: "001_users", Executed: true, Path: "migrations/001_users.sql"},
		{Script: "002_classes", Executed: false, Path: "migrations/002_classes.sql"},
	}
	assert.Equal(t, want, status)
}

func TestMarkExecuted(t *testing.T) {
	runner, mock := newTestRunner(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT migration FROM migrations").WillReturnRows(sqlmock.NewRows([]string{"migration"}))
	mock.ExpectExec("INSERT INTO migrations").WithArgs("001_users").WillReturnResult(sqlmock.NewResult(1, 1))

	res := runner.MarkExecuted(ctx, "001_users")
	assert.Equal(t, OutcomeMarked, res.Outcome)

	// marking twice is a no-op
	mock.ExpectQuery("SELECT migration FROM migrations").WillReturnRows(
		sqlmock.NewRows([]string{"migration"}).AddRow("001_users"))

	res = runner.MarkExecuted(ctx, "001_users")
	assert.Equal(t, OutcomeNoop, res.Outcome)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRollbackLatest(t *testing.T) {
	runner, mock := newTestRunner(t)

	mock.ExpectQuery("SELECT migration FROM migrations ORDER BY executed_at DESC").WillReturnRows(
		sqlmock.NewRows([]string{"migration"}).AddRow("002_classes"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE classes")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM migrations").WithArgs("002_classes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res := runner.Rollback(context.Background())
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, "002_classes", res.Script)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRollbackNothingToDo(t *testing.T) {
	runner, mock := newTestRunner(t)

	mock.ExpectQuery("SELECT migration FROM migrations ORDER BY executed_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{"migration"}))

	res := runner.Rollback(context.Background())
	assert.Equal(t, OutcomeNoop, res.Outcome)
}
