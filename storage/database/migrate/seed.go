package migrate

import (
	"context"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/mwalimu/darasa/core"
)

var insertIntoRegex = regexp.MustCompile(`(?i)INSERT\s+INTO\s+([a-zA-Z_][a-zA-Z0-9_]*)`)

// Seeder applies data-loading scripts. Unlike the migration Runner it tracks
// nothing: a seed re-runs every time it is asked to, so scripts must either
// be idempotent themselves (upsert-style inserts) or only ever target fresh
// and test databases.
type Seeder struct {
	db     core.DB
	fsys   fs.FS
	dir    string
	logger core.Logger
}

func NewSeeder(db core.DB, fsys fs.FS, dir string, logger core.Logger) *Seeder {
	return &Seeder{db: db, fsys: fsys, dir: dir, logger: logger}
}

// Run executes seed scripts, each in its own transaction; one failing seed
// is rolled back and reported without stopping the rest. With a name only
// that seed runs.
func (s *Seeder) Run(ctx context.Context, name ...string) ([]Result, error) {
	if len(name) > 0 && name[0] != "" {
		return []Result{s.runScript(ctx, name[0])}, nil
	}

	scripts, err := scriptNames(s.fsys, s.dir)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(scripts))
	for _, script := range scripts {
		results = append(results, s.runScript(ctx, script))
	}
	return results, nil
}

func (s *Seeder) runScript(ctx context.Context, script string) Result {
	body, err := fs.ReadFile(s.fsys, path.Join(s.dir, script+scriptExt))
	if err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: "seed file not found: " + script + scriptExt}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: err.Error()}
	}
	if _, err = tx.ExecContext(ctx, string(body)); err != nil {
		_ = tx.Rollback()
		return Result{Script: script, Outcome: OutcomeError, Message: "seed failed: " + err.Error()}
	}
	if err = tx.Commit(); err != nil {
		return Result{Script: script, Outcome: OutcomeError, Message: err.Error()}
	}

	s.logger.Info("applied seed " + script)
	return Result{Script: script, Outcome: OutcomeApplied, Message: "seed executed successfully"}
}

// List enumerates the available seed scripts.
func (s *Seeder) List() ([]ScriptStatus, error) {
	scripts, err := scriptNames(s.fsys, s.dir)
	if err != nil {
		return nil, err
	}
	list := make([]ScriptStatus, 0, len(scripts))
	for _, script := range scripts {
		list = append(list, ScriptStatus{Script: script, Path: path.Join(s.dir, script+scriptExt)})
	}
	return list, nil
}

// Truncate empties the named tables in one transaction, with referential
// integrity checks suspended for its duration. All-or-nothing: a failure
// rolls the whole truncation back.
func (s *Seeder) Truncate(ctx context.Context, tables []string) ([]Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `SET session_replication_role = replica`); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	results := make([]Result, 0, len(tables))
	for _, table := range tables {
		if _, err = tx.ExecContext(ctx, `TRUNCATE TABLE `+table+` RESTART IDENTITY CASCADE`); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		results = append(results, Result{Script: table, Outcome: OutcomeApplied, Message: "table truncated successfully"})
	}

	if _, err = tx.ExecContext(ctx, `SET session_replication_role = DEFAULT`); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return results, nil
}

// Refresh truncates then re-seeds. When no tables are given the set is
// inferred from the INSERT INTO statements in the seed bodies.
func (s *Seeder) Refresh(ctx context.Context, tables []string, name ...string) ([]Result, error) {
	if len(tables) == 0 {
		var err error
		if tables, err = s.tablesFromSeeds(); err != nil {
			return nil, err
		}
	}

	var results []Result
	if len(tables) > 0 {
		truncated, err := s.Truncate(ctx, tables)
		if err != nil {
			return nil, err
		}
		results = append(results, truncated...)
	}

	seeded, err := s.Run(ctx, name...)
	if err != nil {
		return results, err
	}
	return append(results, seeded...), nil
}

func (s *Seeder) tablesFromSeeds() ([]string, error) {
	scripts, err := scriptNames(s.fsys, s.dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	tables := make([]string, 0)
	for _, script := range scripts {
		body, err := fs.ReadFile(s.fsys, path.Join(s.dir, script+scriptExt))
		if err != nil {
			return nil, err
		}
		for _, match := range insertIntoRegex.FindAllStringSubmatch(string(body), -1) {
			table := strings.ToLower(match[1])
			if !seen[table] {
				seen[table] = true
				tables = append(tables, table)
			}
		}
	}
	sort.Strings(tables)
	return tables, nil
}
