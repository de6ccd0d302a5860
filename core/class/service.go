package class

import (
	"context"
	"errors"
	"time"

	"github.com/mwalimu/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("class not found")
	ErrCreditNotFound = errors.New("credit not found")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		QueryAllClasses(ctx context.Context) ([]Class, error)
		GetClassByID(ctx context.Context, id int) (Class, error)
		ClassExists(ctx context.Context, id int) (bool, error)
		// FilterClasses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Class.Name or Class.Description.
		FilterClasses(ctx context.Context, filter QueryFilter) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClassesByID(ctx context.Context, ids ...int) error

		QueryAllCredits(ctx context.Context) ([]Credit, error)
		GetCreditByCode(ctx context.Context, code string) (Credit, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		Name:            nc.Name,
		Description:     nc.Description,
		Organizer:       nc.Organizer,
		EventDatetime:   nc.EventDatetime,
		DurationMinutes: nc.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// resolve credit codes up front so a bad code fails the whole create
	for _, ncr := range nc.Credits {
		cr, err := svc.repo.GetCreditByCode(ctx, ncr.Code)
		if err != nil {
			if err == ErrCreditNotFound {
				return Class{}, core.NewValidationError(err, core.FieldError{Field: "credits", Error: "unknown credit code: " + ncr.Code})
			}
			return Class{}, err
		}
		cls.Credits = append(cls.Credits, ClassCredit{CreditID: cr.ID, Code: cr.Code, Amount: ncr.Amount})
	}

	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryAllClasses(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) Exists(ctx context.Context, id int) (bool, error) {
	return svc.repo.ClassExists(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Class, error) {
	filter.Clean()
	if filter.IsEmpty() {
		return svc.repo.QueryAllClasses(ctx)
	}
	return svc.repo.FilterClasses(ctx, filter)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteClassesByID(ctx, ids...)
}

func (svc *Service) QueryAllCredits(ctx context.Context) ([]Credit, error) {
	return svc.repo.QueryAllCredits(ctx)
}
