package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/mwalimu/darasa/core/completion"
)

type completionRepository struct {
	db      *completionTable
	classes *classTable
}

var _ completion.Repository = (*completionRepository)(nil) // interface compliance check

func NewCompletionRepository(db *DB) completion.Repository {
	return &completionRepository{db: db.completion, classes: db.class}
}

func (repo *completionRepository) HasCompletion(_ context.Context, userID string, classID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, ok := repo.db.table[completionKey{userID, classID}]
	return ok, nil
}

func (repo *completionRepository) RecordCompletion(_ context.Context, userID string, classID int, completedAt time.Time) (completion.Completion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := completionKey{userID, classID}
	now := time.Now().UTC()

	// upsert semantics: a conflicting row gets its timestamp overwritten
	if cpl, ok := repo.db.table[key]; ok {
		cpl.CompletedAt = completedAt
		cpl.UpdatedAt = now
		return *cpl, nil
	}

	repo.db.seq++
	cpl := completion.Completion{
		ID:          repo.db.seq,
		UserID:      userID,
		ClassID:     classID,
		CompletedAt: completedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	repo.db.table[key] = &cpl
	return cpl, nil
}

func (repo *completionRepository) QueryUserCompletions(_ context.Context, userID string) ([]completion.Completion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cpls := make([]completion.Completion, 0)
	for key, cpl := range repo.db.table {
		if key.userID != userID {
			continue
		}
		c := *cpl
		repo.classes.RLock()
		if cls, ok := repo.classes.table[key.classID]; ok {
			c.ClassName = cls.Name
			c.Organizer = cls.Organizer
			c.EventDatetime = cls.EventDatetime
		}
		repo.classes.RUnlock()
		cpls = append(cpls, c)
	}
	sort.Slice(cpls, func(i, j int) bool { return cpls[i].CompletedAt.After(cpls[j].CompletedAt) })
	return cpls, nil
}

func (repo *completionRepository) QueryClassCompletions(_ context.Context, classID int) ([]completion.Completion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cpls := make([]completion.Completion, 0)
	for key, cpl := range repo.db.table {
		if key.classID == classID {
			cpls = append(cpls, *cpl)
		}
	}
	sort.Slice(cpls, func(i, j int) bool { return cpls[i].CompletedAt.After(cpls[j].CompletedAt) })
	return cpls, nil
}

func (repo *completionRepository) DeleteCompletion(_ context.Context, userID string, classID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := completionKey{userID, classID}
	if _, ok := repo.db.table[key]; !ok {
		return completion.ErrNotFound
	}
	delete(repo.db.table, key)
	return nil
}
