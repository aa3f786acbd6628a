package auction

import (
	"context"

	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/database/query"
)

var (
	ErrNotFound               = errors.New("auction record not found")
	ErrAlreadyExists          = errors.New("auction record already exists")
	ErrInvalidStateTransition = errors.New("invalid auction state transition")
)

type Store interface {
	// Put creates a new open auction record. A closed record at the same
	// address, left behind by a previous auction for the same initializer and
	// mint, is replaced and the new record gets a fresh id.
	//
	// Returns ErrAlreadyExists if an open record exists for the address.
	Put(ctx context.Context, record *Record) error

	// Update moves an open auction record to a terminal state.
	//
	// Returns ErrNotFound if no record exists, and ErrInvalidStateTransition
	// if the stored record is no longer open.
	Update(ctx context.Context, record *Record) error

	// GetByAddress finds the auction record for an auction account.
	//
	// Returns ErrNotFound if no record is found.
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetAllByState returns auction records in the provided state.
	//
	// Returns ErrNotFound if no records are found.
	GetAllByState(ctx context.Context, state State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByState returns the number of auction records in the provided state.
	CountByState(ctx context.Context, state State) (uint64, error)
}
