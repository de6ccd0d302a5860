// Package dummydb provides in-memory repositories for tests.
package dummydb

import (
	"sync"

	"github.com/mwalimu/darasa/core/class"
	"github.com/mwalimu/darasa/core/completion"
	"github.com/mwalimu/darasa/core/user"
)

type (
	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	classTable struct {
		sync.RWMutex
		seq       int
		table     map[int]*class.Class
		creditSeq int
		credits   map[int]*class.Credit
	}

	completionTable struct {
		sync.RWMutex
		seq   int
		table map[completionKey]*completion.Completion
	}

	completionKey struct {
		userID  string
		classID int
	}

	DB struct {
		user       *userTable
		class      *classTable
		completion *completionTable
	}
)

func Open() (*DB, error) {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		class:      &classTable{table: make(map[int]*class.Class), credits: make(map[int]*class.Credit)},
		completion: &completionTable{table: make(map[completionKey]*completion.Completion)},
	}, nil
}
