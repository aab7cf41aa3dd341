// Package inmemdb keeps wizard sessions in process memory.
package inmemdb

import (
	"sync"

	"github.com/aspirecraft/enrolment/core/enrolment"
)

type (
	sessionEntry struct {
		mutex sync.Mutex // serializes the actions of one session
		state *enrolment.State
	}

	sessionTable struct {
		mutex sync.RWMutex
		table map[string]*sessionEntry
	}

	DB struct {
		session *sessionTable
	}
)

func NewDB() *DB {
	return &DB{
		session: &sessionTable{table: make(map[string]*sessionEntry)},
	}
}
