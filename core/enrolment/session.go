package enrolment

import (
	"time"

	"github.com/pkg/errors"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository holds the states of the live sessions.
// Do runs fn with exclusive access to the state of one session.
type SessionRepository interface {
	Create() (*State, error)
	Do(id string, fn func(st *State) error) error
	Delete(id string) error
	PurgeIdle(before time.Time) int
	Count() int
}
