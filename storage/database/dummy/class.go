package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/mwalimu/darasa/core/class"
)

type classRepository struct {
	db *classTable
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) query() []class.Class {
	classes := make([]class.Class, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })
	return classes
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	cls.ID = repo.db.seq
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) QueryAllClasses(context.Context) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *classRepository) GetClassByID(_ context.Context, id int) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return *cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) ClassExists(_ context.Context, id int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, ok := repo.db.table[id]
	return ok, nil
}

func (repo *classRepository) FilterClasses(_ context.Context, filter class.QueryFilter) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matches := make([]class.Class, 0)
	search := strings.ToLower(filter.Search)
	for _, cls := range repo.query() {
		if search != "" &&
			!strings.Contains(strings.ToLower(cls.Name), search) &&
			!strings.Contains(strings.ToLower(cls.Description), search) {
			continue
		}
		if filter.Organizer != "" && cls.Organizer != filter.Organizer {
			continue
		}
		if !filter.EventFrom.IsZero() && cls.EventDatetime.Before(filter.EventFrom) {
			continue
		}
		if !filter.EventTo.IsZero() && cls.EventDatetime.After(filter.EventTo) {
			continue
		}
		matches = append(matches, cls)
	}
	return matches, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) DeleteClassesByID(_ context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *classRepository) QueryAllCredits(context.Context) ([]class.Credit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	credits := make([]class.Credit, 0, len(repo.db.credits))
	for _, cr := range repo.db.credits {
		credits = append(credits, *cr)
	}
	sort.Slice(credits, func(i, j int) bool { return credits[i].ID < credits[j].ID })
	return credits, nil
}

func (repo *classRepository) GetCreditByCode(_ context.Context, code string) (class.Credit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cr := range repo.db.credits {
		if cr.Code == code {
			return *cr, nil
		}
	}
	return class.Credit{}, class.ErrCreditNotFound
}

// AddCredit seeds a credit row; test setup helper.
func AddCredit(db *DB, cr class.Credit) class.Credit {
	db.class.Lock()
	defer db.class.Unlock()

	db.class.creditSeq++
	cr.ID = db.class.creditSeq
	db.class.credits[cr.ID] = &cr
	return cr
}
