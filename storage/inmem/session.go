package inmemdb

import (
	"time"

	"github.com/google/uuid"

	"github.com/aspirecraft/enrolment/core/enrolment"
)

type sessionRepository struct {
	db *sessionTable
}

var _ enrolment.SessionRepository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) enrolment.SessionRepository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) Create() (*enrolment.State, error) {
	st := enrolment.NewState(uuid.New().String())

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.table[st.ID] = &sessionEntry{state: st}
	return st, nil
}

func (repo *sessionRepository) entry(id string) (*sessionEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return e, nil
	}
	return nil, enrolment.ErrSessionNotFound
}

func (repo *sessionRepository) Do(id string, fn func(st *enrolment.State) error) error {
	e, err := repo.entry(id)
	if err != nil {
		return err
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return fn(e.state)
}

func (repo *sessionRepository) Delete(id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return enrolment.ErrSessionNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// PurgeIdle drops the sessions not updated since before and returns how many were dropped.
// Sessions with an action in flight are skipped.
func (repo *sessionRepository) PurgeIdle(before time.Time) int {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, e := range repo.db.table {
		if !e.mutex.TryLock() {
			continue
		}
		if e.state.UpdatedAt.Before(before) {
			delete(repo.db.table, id)
			n++
		}
		e.mutex.Unlock()
	}
	return n
}

func (repo *sessionRepository) Count() int {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.table)
}
