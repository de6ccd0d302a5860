// Package migrate applies the SQL scripts shipped with the binary: schema
// migrations tracked in a ledger table, and untracked data seeds.
package migrate

import (
	"context"
	"database/sql"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core"
)

const (
	ledgerTable = "migrations"
	rollbackDir = "rollback"
	scriptExt   = ".sql"
)

type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeError      Outcome = "error"
	OutcomeMarked     Outcome = "marked"
	OutcomeRolledBack Outcome = "rolled back"
	OutcomeNoop       Outcome = "noop"
)

type (
	// Result reports the outcome of one script.
	Result struct {
		Script  string
		Outcome Outcome
		Message string
	}

	// ScriptStatus is the diagnostic view combining the script files and the
	// ledger.
	ScriptStatus struct {
		Script   string
		Executed bool
		Path     string
	}

	// Runner applies migration scripts in lexicographic filename order,
	// exactly once each, recording success in the ledger table. The ledger
	// is the single source of truth for "has this change been applied":
	// there is no content diffing, so a script renamed or edited after being
	// recorded never re-runs automatically.
	Runner struct {
		db     core.DB
		fsys   fs.FS
		dir    string
		logger core.Logger
	}
)

// NewRunner builds a Runner over the migration scripts in dir within fsys
// and ensures the ledger table exists.
func NewRunner(ctx context.Context, db core.DB, fsys fs.FS, dir string, logger core.Logger) (*Runner, error) {
	r := &Runner{db: db, fsys: fsys, dir: dir, logger: logger}
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS `+ledgerTable+` (
			id SERIAL PRIMARY KEY,
			migration VARCHAR(255) NOT NULL UNIQUE,
			executed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	); err != nil {
		return nil, errors.Wrap(err, "creating migrations ledger table")
	}
	return r, nil
}

// Run applies pending migrations. With a name it runs that single script
// directly, even out of order; this is an operator escape hatch for manual
// repair and bypasses the skip check. Without a name it enumerates every
// script in sorted order, skips the ones already in the ledger and applies
// the rest; a failing script is rolled back, reported and does not stop the
// batch.
func (r *Runner) Run(ctx context.Context, name ...string) ([]Result, error) {
	if len(name) > 0 && name[0] != "" {
		return []Result{r.runScript(ctx, name[0])}, nil
	}

	scripts, err := r.scriptNames()
	if err != nil {
		return nil, err
	}
	executed, err := r.executedSet(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(scripts))
	for _, script := range scripts {
		if executed[script] {
			results = append(results, Result{Script: script, Outcome: OutcomeSkipped, Message: "already executed"})
			continue
		}
		results = append(results, r.runScript(ctx, script))
	}
	return results, nil
}

// runScript executes one migration all-or-nothing: the script body and the
// ledger insert share a transaction.
func (r *Runner) runScript(ctx context.Context, script string) Result {
	body, err := fs.ReadFile(r.fsys, path.Join(r.dir, script+scriptExt))
	if err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: "migration file not found: " + script + scriptExt}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: err.Error()}
	}
	if _, err = tx.ExecContext(ctx, string(body)); err != nil {
		_ = tx.Rollback()
		return Result{Script: script, Outcome: OutcomeError, Message: "migration failed: " + err.Error()}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO `+ledgerTable+` (migration) VALUES ($1)`, script); err != nil {
		_ = tx.Rollback()
		return Result{Script: script, Outcome: OutcomeError, Message: "recording migration: " + err.Error()}
	}
	if err = tx.Commit(); err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: err.Error()}
	}

	r.logger.Info("applied migration " + script)
	return Result{Script: script, Outcome: OutcomeApplied, Message: "migration executed successfully"}
}

// Status lists every script file alongside its ledger state.
func (r *Runner) Status(ctx context.Context) ([]ScriptStatus, error) {
	scripts, err := r.scriptNames()
	if err != nil {
		return nil, err
	}
	executed, err := r.executedSet(ctx)
	if err != nil {
		return nil, err
	}

	status := make([]ScriptStatus, 0, len(scripts))
	for _, script := range scripts {
		status = append(status, ScriptStatus{
			Script:   script,
			Executed: executed[script],
			Path:     path.Join(r.dir, script+scriptExt),
		})
	}
	return status, nil
}

// MarkExecuted records a script as done without running it. Operator escape
// hatch: used to recover when a script was applied by hand or partially
// succeeded outside the normal transaction.
func (r *Runner) MarkExecuted(ctx context.Context, script string) Result {
	executed, err := r.executedSet(ctx)
	if err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: err.Error()}
	}
	if executed[script] {
		return Result{Script: script, Outcome: OutcomeNoop, Message: "migration already marked as executed"}
	}

	if _, err := r.db.ExecContext(ctx, `INSERT INTO `+ledgerTable+` (migration) VALUES ($1)`, script); err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: "failed to mark migration as executed: " + err.Error()}
	}
	r.logger.Warn("marked migration " + script + " as executed without running it")
	return Result{Script: script, Outcome: OutcomeMarked, Message: "migration marked as executed"}
}

// Rollback executes the rollback counterpart of a script and removes its
// ledger row, in one transaction. Without a name it targets the most
// recently executed entry.
func (r *Runner) Rollback(ctx context.Context, name ...string) Result {
	script := ""
	if len(name) > 0 {
		script = name[0]
	}
	if script == "" {
		row := r.db.QueryRowContext(ctx, `SELECT migration FROM `+ledgerTable+` ORDER BY executed_at DESC, id DESC LIMIT 1`)
		if err := row.Scan(&script); err != nil {
			if err == sql.ErrNoRows {
				return Result{Outcome: OutcomeNoop, Message: "no migrations to rollback"}
			}
			return Result{Outcome: OutcomeError, Message: err.Error()}
		}
	}

	body, err := fs.ReadFile(r.fsys, path.Join(r.dir, rollbackDir, script+scriptExt))
	if err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: "rollback file not found: " + script + scriptExt}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: err.Error()}
	}
	if _, err = tx.ExecContext(ctx, string(body)); err != nil {
		_ = tx.Rollback()
		return Result{Script: script, Outcome: OutcomeError, Message: "rollback failed: " + err.Error()}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM `+ledgerTable+` WHERE migration = $1`, script); err != nil {
		_ = tx.Rollback()
		return Result{Script: script, Outcome: OutcomeError, Message: "removing ledger row: " + err.Error()}
	}
	if err = tx.Commit(); err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: err.Error()}
	}

	r.logger.Info("rolled back migration " + script)
	return Result{Script: script, Outcome: OutcomeRolledBack, Message: "migration rolled back successfully"}
}

func (r *Runner) scriptNames() ([]string, error) {
	return scriptNames(r.fsys, r.dir)
}

func (r *Runner) executedSet(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT migration FROM `+ledgerTable+` ORDER BY executed_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying migrations ledger")
	}
	defer func() { _ = rows.Close() }()

	executed := make(map[string]bool)
	for rows.Next() {
		var script string
		if err = rows.Scan(&script); err != nil {
			return nil, errors.Wrap(err, "scanning migrations ledger")
		}
		executed[script] = true
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "reading migrations ledger")
	}
	return executed, nil
}

// scriptNames lists the *.sql files directly in dir, sorted, without the
// extension. Lexicographic order is the execution order.
func scriptNames(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading script dir %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), scriptExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), scriptExt))
	}
	sort.Strings(names)
	return names, nil
}
