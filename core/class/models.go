package class

import (
	"time"

	"github.com/mwalimu/darasa/core"
)

type Class struct {
	ID              int           `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Organizer       string        `json:"organizer"`
	EventDatetime   time.Time     `json:"event_datetime"`
	DurationMinutes int           `json:"duration_minutes"`
	Credits         []ClassCredit `json:"credits"`
	CreatedAt       time.Time     `json:"created_at"` // UTC
	UpdatedAt       time.Time     `json:"updated_at"` // UTC
}

// Credit is static reference data: a unit-of-value category awarded for
// attending a class.
type Credit struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// ClassCredit associates a credit with a class and carries the awarded amount.
type ClassCredit struct {
	CreditID int     `json:"credit_id"`
	Code     string  `json:"code"`
	Amount   float64 `json:"amount"`
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name            string           `json:"name" validate:"required"`
	Description     string           `json:"description"`
	Organizer       string           `json:"organizer" validate:"required"`
	EventDatetime   time.Time        `json:"event_datetime" validate:"required"`
	DurationMinutes int              `json:"duration_minutes" validate:"required,gt=0"`
	Credits         []NewClassCredit `json:"credits" validate:"omitempty,dive"`
}

type NewClassCredit struct {
	Code   string  `json:"code" validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Organizer = core.CleanString(nc.Organizer)
	for i, cr := range nc.Credits {
		nc.Credits[i].Code = core.CleanString(cr.Code, true /* lower */)
	}
	return core.Validate.Struct(nc)
}

type QueryFilter struct {
	Search    string    `query:"search"`
	Organizer string    `query:"organizer"`
	EventFrom time.Time `query:"event_from"`
	EventTo   time.Time `query:"event_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Organizer == "" && qf.EventFrom.IsZero() && qf.EventTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Organizer = core.CleanString(qf.Organizer)
}
