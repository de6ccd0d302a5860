package migrate

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var seedFS = fstest.MapFS{
	"seeds/001_credits.sql": {Data: []byte("INSERT INTO credits (code) VALUES ('MATH')")},
	"seeds/002_classes.sql": {Data: []byte("INSERT INTO classes (name) VALUES ('Algebra');\nINSERT INTO class_credits (class_id) VALUES (1)")},
}

func newTestSeeder(t *testing.T) (*Seeder, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSeeder(db, seedFS, "seeds", testLogger()), mock
}

func expectSeeded(mock sqlmock.Sqlmock, body string) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(body)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestSeederRun(t *testing.T) {
	seeder, mock := newTestSeeder(t)

	expectSeeded(mock, "INSERT INTO credits (code) VALUES ('MATH')")
	expectSeeded(mock, "INSERT INTO classes (name) VALUES ('Algebra');")

	results, err := seeder.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if assert.Len(t, results, 2) {
		assert.Equal(t, Result{Script: "001_credits", Outcome: OutcomeApplied, Message: "seed executed successfully"}, results[0])
		assert.Equal(t, OutcomeApplied, results[1].Outcome)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeederRunFailureContinues(t *testing.T) {
	seeder, mock := newTestSeeder(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO credits")).WillReturnError(assert.AnError)
	mock.ExpectRollback()
	expectSeeded(mock, "INSERT INTO classes (name) VALUES ('Algebra');")

	results, err := seeder.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if assert.Len(t, results, 2) {
		assert.Equal(t, OutcomeError, results[0].Outcome)
		assert.Equal(t, OutcomeApplied, results[1].Outcome)
	}
}

func TestSeederRunMissingScript(t *testing.T) {
	seeder, _ := newTestSeeder(t)

	results, err := seeder.Run(context.Background(), "042_nope")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if assert.Len(t, results, 1) {
		assert.Equal(t, OutcomeError, results[0].Outcome)
		assert.Contains(t, results[0].Message, "not found")
	}
}

func TestSeederList(t *testing.T) {
	seeder, _ := newTestSeeder(t)

	list, err := seeder.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	want := []ScriptStatus{
		{Script: "001_credits", Path: "seeds/001_credits.sql"},
		{Script: "002_classes", Path: "seeds/002_classes.sql"},
	}
	assert.Equal(t, want, list)
}

func TestSeederTruncate(t *testing.T) {
	seeder, mock := newTestSeeder(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET session_replication_role = replica").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE TABLE credits RESTART IDENTITY CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE TABLE classes RESTART IDENTITY CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET session_replication_role = DEFAULT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	results, err := seeder.Truncate(context.Background(), []string{"credits", "classes"})
	if err != nil {
		t.Fatalf("Truncate() failed: %v", err)
	}
	assert.Len(t, results, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeederTruncateAllOrNothing(t *testing.T) {
	seeder, mock := newTestSeeder(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET session_replication_role = replica").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE TABLE credits RESTART IDENTITY CASCADE").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := seeder.Truncate(context.Background(), []string{"credits", "classes"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTablesFromSeeds(t *testing.T) {
	seeder, _ := newTestSeeder(t)

	tables, err := seeder.tablesFromSeeds()
	if err != nil {
		t.Fatalf("tablesFromSeeds() failed: %v", err)
	}
	// inferred from INSERT INTO statements, deduplicated and sorted
	assert.Equal(t, []string{"class_credits", "classes", "credits"}, tables)
}

func TestSeederRefreshInfersTables(t *testing.T) {
	seeder, mock := newTestSeeder(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET session_replication_role = replica").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE TABLE class_credits RESTART IDENTITY CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE TABLE classes RESTART IDENTITY CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE TABLE credits RESTART IDENTITY CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET session_replication_role = DEFAULT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	expectSeeded(mock, "INSERT INTO credits (code) VALUES ('MATH')")
	expectSeeded(mock, "INSERT INTO classes (name) VALUES ('Algebra');")

	results, err := seeder.Refresh(context.Background(), nil)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	assert.Len(t, results, 5)
	assert.NoError(t, mock.ExpectationsWereMet())
}
