package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/dutch-auction/pkg/data/auction"
	"github.com/code-payments/dutch-auction/pkg/database/query"
	"github.com/code-payments/dutch-auction/pkg/metrics"
)

const metricsStructName = "auction.postgres.store"

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) auction.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements auction.Store.Put
func (s *store) Put(ctx context.Context, record *auction.Record) error {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Put").End()

	if record.State != auction.StateOpen {
		return auction.ErrInvalidStateTransition
	}

	obj, err := toAuctionModel(record)
	if err != nil {
		return err
	}
	if err := obj.dbPut(ctx, s.db); err != nil {
		return err
	}

	fromAuctionModel(obj).CopyTo(record)
	return nil
}

// Update implements auction.Store.Update
func (s *store) Update(ctx context.Context, record *auction.Record) error {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Update").End()

	obj, err := toAuctionModel(record)
	if err != nil {
		return err
	}
	if err := obj.dbUpdate(ctx, s.db); err != nil {
		return err
	}

	fromAuctionModel(obj).CopyTo(record)
	return nil
}

// GetByAddress implements auction.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*auction.Record, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetByAddress").End()

	obj, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromAuctionModel(obj), nil
}

// GetAllByState implements auction.Store.GetAllByState
func (s *store) GetAllByState(ctx context.Context, state auction.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*auction.Record, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetAllByState").End()

	models, err := dbGetAllByState(ctx, s.db, state, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*auction.Record, len(models))
	for i, model := range models {
		res[i] = fromAuctionModel(model)
	}
	return res, nil
}

// CountByState implements auction.Store.CountByState
func (s *store) CountByState(ctx context.Context, state auction.State) (uint64, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "CountByState").End()

	return dbCountByState(ctx, s.db, state)
}
