package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/completion"
)

const selectCompletionQuery = `
SELECT uc.id, uc.user_id, uc.class_id, uc.completed_at, uc.created_at, uc.updated_at,
       c.name AS class_name, c.organizer, c.event_datetime
FROM user_class_completions uc
JOIN classes c ON c.id = uc.class_id`

type completionRow struct {
	ID          int       `db:"id"`
	UserID      string    `db:"user_id"`
	ClassID     int       `db:"class_id"`
	CompletedAt time.Time `db:"completed_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	ClassName     string    `db:"class_name"`
	Organizer     string    `db:"organizer"`
	EventDatetime time.Time `db:"event_datetime"`
}

func (row completionRow) completion() completion.Completion {
	return completion.Completion{
		ID:            row.ID,
		UserID:        row.UserID,
		ClassID:       row.ClassID,
		CompletedAt:   row.CompletedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		ClassName:     row.ClassName,
		Organizer:     row.Organizer,
		EventDatetime: row.EventDatetime,
	}
}

type completionRepository struct {
	db *sqlx.DB
}

var _ completion.Repository = (*completionRepository)(nil) // interface compliance check

func NewCompletionRepository(db *sqlx.DB) *completionRepository {
	return &completionRepository{db: db}
}

func (repo completionRepository) HasCompletion(ctx context.Context, userID string, classID int) (bool, error) {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM user_class_completions WHERE user_id = $1 AND class_id = $2)`,
		userID, classID,
	); err != nil {
		return false, errors.Wrap(err, "checking completion")
	}
	return exists, nil
}

func (repo completionRepository) RecordCompletion(ctx context.Context, userID string, classID int, completedAt time.Time) (completion.Completion, error) {
	// the unique key absorbs concurrent inserts for the same (user, class)
	var rec completion.Completion
	if err := repo.db.QueryRowContext(ctx,
		`INSERT INTO user_class_completions (user_id, class_id, completed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, class_id) DO UPDATE
		 SET completed_at = EXCLUDED.completed_at, updated_at = CURRENT_TIMESTAMP
		 RETURNING id, user_id, class_id, completed_at, created_at, updated_at`,
		userID, classID, completedAt.UTC(),
	).Scan(&rec.ID, &rec.UserID, &rec.ClassID, &rec.CompletedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return completion.Completion{}, errors.Wrap(err, "recording completion")
	}
	return rec, nil
}

func (repo completionRepository) QueryUserCompletions(ctx context.Context, userID string) ([]completion.Completion, error) {
	var rows []completionRow
	if err := repo.db.SelectContext(ctx, &rows,
		selectCompletionQuery+` WHERE uc.user_id = $1 ORDER BY uc.completed_at DESC`, userID,
	); err != nil {
		return nil, errors.Wrap(err, "querying user completions")
	}
	return completions(rows), nil
}

func (repo completionRepository) QueryClassCompletions(ctx context.Context, classID int) ([]completion.Completion, error) {
	var rows []completionRow
	if err := repo.db.SelectContext(ctx, &rows,
		selectCompletionQuery+` WHERE uc.class_id = $1 ORDER BY uc.completed_at DESC`, classID,
	); err != nil {
		return nil, errors.Wrap(err, "querying class completions")
	}
	return completions(rows), nil
}

func (repo completionRepository) DeleteCompletion(ctx context.Context, userID string, classID int) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM user_class_completions WHERE user_id = $1 AND class_id = $2`, userID, classID,
	)
	if err != nil {
		return errors.Wrap(err, "deleting completion")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return completion.ErrNotFound
	}
	return nil
}

func completions(rows []completionRow) []completion.Completion {
	recs := make([]completion.Completion, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.completion())
	}
	return recs
}
