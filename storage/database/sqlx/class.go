package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/class"
)

const selectClassQuery = `
SELECT id, name, description, organizer, event_datetime, duration_minutes, created_at, updated_at
FROM classes`

type classRow struct {
	ID              int       `db:"id"`
	Name            string    `db:"name"`
	Description     string    `db:"description"`
	Organizer       string    `db:"organizer"`
	EventDatetime   time.Time `db:"event_datetime"`
	DurationMinutes int       `db:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (row classRow) class() class.Class {
	return class.Class{
		ID:              row.ID,
		Name:            row.Name,
		Description:     row.Description,
		Organizer:       row.Organizer,
		EventDatetime:   row.EventDatetime,
		DurationMinutes: row.DurationMinutes,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

type classCreditRow struct {
	ClassID  int     `db:"class_id"`
	CreditID int     `db:"credit_id"`
	Code     string  `db:"code"`
	Amount   float64 `db:"amount"`
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to class.ErrNotFound
func (repo classRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return class.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	now := time.Now().UTC()
	cls.CreatedAt, cls.UpdatedAt = now, now

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	if err = tx.QueryRowContext(ctx,
		`INSERT INTO classes (name, description, organizer, event_datetime, duration_minutes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		cls.Name, cls.Description, cls.Organizer, cls.EventDatetime, cls.DurationMinutes, cls.CreatedAt, cls.UpdatedAt,
	).Scan(&cls.ID); err != nil {
		_ = tx.Rollback()
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	if err = setClassCredits(ctx, tx, cls.ID, cls.Credits); err != nil {
		_ = tx.Rollback()
		return class.Class{}, err
	}
	if err = tx.Commit(); err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) QueryAllClasses(ctx context.Context) ([]class.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, selectClassQuery+` ORDER BY event_datetime`); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return repo.withCredits(ctx, rows)
}

func (repo classRepository) GetClassByID(ctx context.Context, id int) (class.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, selectClassQuery+` WHERE id = $1`, id); err != nil {
		return class.Class{}, repo.trapNoRowsErr(err, "getting class by id")
	}
	classes, err := repo.withCredits(ctx, []classRow{row})
	if err != nil {
		return class.Class{}, err
	}
	return classes[0], nil
}

func (repo classRepository) ClassExists(ctx context.Context, id int) (bool, error) {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM classes WHERE id = $1)`, id); err != nil {
		return false, errors.Wrap(err, "checking class existence")
	}
	return exists, nil
}

func (repo classRepository) FilterClasses(ctx context.Context, filter class.QueryFilter) ([]class.Class, error) {
	query := selectClassQuery + ` WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		ph := arg("%" + filter.Search + "%")
		query += ` AND (name ILIKE ` + ph + ` OR description ILIKE ` + ph + `)`
	}
	if filter.Organizer != "" {
		query += ` AND organizer = ` + arg(filter.Organizer)
	}
	if !filter.EventFrom.IsZero() {
		query += ` AND event_datetime >= ` + arg(filter.EventFrom)
	}
	if !filter.EventTo.IsZero() {
		query += ` AND event_datetime <= ` + arg(filter.EventTo)
	}
	query += ` ORDER BY event_datetime`

	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering classes")
	}
	return repo.withCredits(ctx, rows)
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.UpdatedAt = time.Now().UTC()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE classes SET name = $2, description = $3, organizer = $4, event_datetime = $5,
		 duration_minutes = $6, updated_at = $7 WHERE id = $1`,
		cls.ID, cls.Name, cls.Description, cls.Organizer, cls.EventDatetime, cls.DurationMinutes, cls.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return class.Class{}, class.ErrNotFound
	}
	if err = setClassCredits(ctx, tx, cls.ID, cls.Credits); err != nil {
		_ = tx.Rollback()
		return class.Class{}, err
	}
	if err = tx.Commit(); err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	return cls, nil
}

func (repo classRepository) DeleteClassesByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM classes WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting classes")
	}
	return nil
}

func (repo classRepository) QueryAllCredits(ctx context.Context) ([]class.Credit, error) {
	var credits []class.Credit
	if err := repo.db.SelectContext(ctx, &credits,
		`SELECT id, code, label, category FROM credits ORDER BY code`,
	); err != nil {
		return nil, errors.Wrap(err, "querying credits")
	}
	return credits, nil
}

func (repo classRepository) GetCreditByCode(ctx context.Context, code string) (class.Credit, error) {
	var credit class.Credit
	if err := repo.db.GetContext(ctx, &credit,
		`SELECT id, code, label, category FROM credits WHERE code = $1`, code,
	); err != nil {
		if err == sql.ErrNoRows {
			return class.Credit{}, class.ErrCreditNotFound
		}
		return class.Credit{}, errors.Wrap(err, "getting credit by code")
	}
	return credit, nil
}

// withCredits loads the credit associations for a batch of classes in one
// query.
func (repo classRepository) withCredits(ctx context.Context, rows []classRow) ([]class.Class, error) {
	classes := make([]class.Class, 0, len(rows))
	if len(rows) == 0 {
		return classes, nil
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var creditRows []classCreditRow
	if err := repo.db.SelectContext(ctx, &creditRows,
		`SELECT cc.class_id, cc.credit_id, c.code, cc.amount
		 FROM class_credits cc
		 JOIN credits c ON c.id = cc.credit_id
		 WHERE cc.class_id = ANY($1)
		 ORDER BY c.code`,
		pq.Array(ids),
	); err != nil {
		return nil, errors.Wrap(err, "querying class credits")
	}

	byClass := make(map[int][]class.ClassCredit, len(rows))
	for _, cr := range creditRows {
		byClass[cr.ClassID] = append(byClass[cr.ClassID], class.ClassCredit{
			CreditID: cr.CreditID,
			Code:     cr.Code,
			Amount:   cr.Amount,
		})
	}
	for _, row := range rows {
		cls := row.class()
		cls.Credits = byClass[row.ID]
		classes = append(classes, cls)
	}
	return classes, nil
}

func setClassCredits(ctx context.Context, tx *sqlx.Tx, classID int, credits []class.ClassCredit) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM class_credits WHERE class_id = $1`, classID); err != nil {
		return errors.Wrap(err, "clearing class credits")
	}
	for _, cr := range credits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO class_credits (class_id, credit_id, amount) VALUES ($1, $2, $3)
			 ON CONFLICT (class_id, credit_id) DO UPDATE SET amount = EXCLUDED.amount`,
			classID, cr.CreditID, cr.Amount,
		); err != nil {
			return errors.Wrap(err, "setting class credits")
		}
	}
	return nil
}
