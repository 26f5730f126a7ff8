package service

import (
	"errors"
	"fmt"

	"dayplan/internal/model"
)

// ErrOwnershipMismatch marks data returned for one user that belongs to another.
var ErrOwnershipMismatch = errors.New("task ownership mismatch")

// OwnershipError reports how many tasks failed the owner check. It carries no
// task content so it can be logged safely.
type OwnershipError struct {
	OwnerID    string
	Mismatched int
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%d task(s) not owned by user %s", e.Mismatched, e.OwnerID)
}

func (e *OwnershipError) Unwrap() error { return ErrOwnershipMismatch }

// AssertOwnership re-checks that every task belongs to ownerID.
func AssertOwnership(ownerID string, sets ...[]model.Task) error {
	mismatched := 0
	for _, tasks := range sets {
		for _, task := range tasks {
			if task.OwnerID != ownerID {
				mismatched++
			}
		}
	}
	if mismatched > 0 {
		return &OwnershipError{OwnerID: ownerID, Mismatched: mismatched}
	}
	return nil
}
