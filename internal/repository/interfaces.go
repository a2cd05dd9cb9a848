package repository

import (
	"errors"
	"fmt"

	"photocurator/internal/model"
)

var (
	// ErrNotSuggested is returned by a decision on a filename the ledger has never seen.
	ErrNotSuggested = errors.New("photo was never suggested")
	// ErrAlreadyDecided is returned when the opposite terminal flag is already set,
	// or when a decided row is suggested again.
	ErrAlreadyDecided = errors.New("photo already has a different decision")
)

// StorageError reports a ledger failure. A pass that hits it is aborted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// LedgerRepository defines the interface for suggestion ledger operations.
// Every call is self-contained; none assumes exclusive access across calls.
type LedgerRepository interface {
	// Write operations
	UpsertSuggested(filename string, score float64, caption string) error
	SetApproved(filename string) error
	SetSkipped(filename string) error
	MarkApprovedBatch(filenames []string) (int, error)

	// Read operations
	Get(filename string) (*model.Photo, error)
	QueryUnprocessed(directory string, limit int) ([]string, error)
	Stats() (*model.LedgerStats, error)
}
