package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/dutch-auction/pkg/data/auction"
	"github.com/code-payments/dutch-auction/pkg/pointer"

	pgutil "github.com/code-payments/dutch-auction/pkg/database/postgres"
	q "github.com/code-payments/dutch-auction/pkg/database/query"
)

const (
	auctionTableName = "dutchauction__core_auction"

	allAuctionColumns = `id, address, initializer, mint, token_account, starting_price, reserved_price, price_step, interval_seconds, starting_timestamp, bump, state, taker, settled_price, open_signature, close_signature, created_at, last_updated_at`
)

type auctionModel struct {
	Id                sql.NullInt64  `db:"id"`
	Address           string         `db:"address"`
	Initializer       string         `db:"initializer"`
	Mint              string         `db:"mint"`
	TokenAccount      string         `db:"token_account"`
	StartingPrice     uint64         `db:"starting_price"`
	ReservedPrice     uint64         `db:"reserved_price"`
	PriceStep         uint64         `db:"price_step"`
	Interval          uint64         `db:"interval_seconds"`
	StartingTimestamp int64          `db:"starting_timestamp"`
	Bump              uint           `db:"bump"`
	State             uint           `db:"state"`
	Taker             sql.NullString `db:"taker"`
	SettledPrice      sql.NullInt64  `db:"settled_price"`
	OpenSignature     string         `db:"open_signature"`
	CloseSignature    sql.NullString `db:"close_signature"`
	CreatedAt         time.Time      `db:"created_at"`
	LastUpdatedAt     time.Time      `db:"last_updated_at"`
}

func toAuctionModel(obj *auction.Record) (*auctionModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	m := &auctionModel{
		Address:           obj.Address,
		Initializer:       obj.Initializer,
		Mint:              obj.Mint,
		TokenAccount:      obj.TokenAccount,
		StartingPrice:     obj.StartingPrice,
		ReservedPrice:     obj.ReservedPrice,
		PriceStep:         obj.PriceStep,
		Interval:          obj.Interval,
		StartingTimestamp: obj.StartingTimestamp,
		Bump:              uint(obj.Bump),
		State:             uint(obj.State),
		OpenSignature:     obj.OpenSignature,
		CreatedAt:         obj.CreatedAt,
		LastUpdatedAt:     obj.LastUpdatedAt,
	}
	if obj.Taker != nil {
		m.Taker = sql.NullString{String: *obj.Taker, Valid: true}
	}
	if obj.SettledPrice != nil {
		m.SettledPrice = sql.NullInt64{Int64: int64(*obj.SettledPrice), Valid: true}
	}
	if obj.CloseSignature != nil {
		m.CloseSignature = sql.NullString{String: *obj.CloseSignature, Valid: true}
	}
	return m, nil
}

func fromAuctionModel(obj *auctionModel) *auction.Record {
	return &auction.Record{
		Id:                uint64(obj.Id.Int64),
		Address:           obj.Address,
		Initializer:       obj.Initializer,
		Mint:              obj.Mint,
		TokenAccount:      obj.TokenAccount,
		StartingPrice:     obj.StartingPrice,
		ReservedPrice:     obj.ReservedPrice,
		PriceStep:         obj.PriceStep,
		Interval:          obj.Interval,
		StartingTimestamp: obj.StartingTimestamp,
		Bump:              uint8(obj.Bump),
		State:             auction.State(obj.State),
		Taker:             pointer.StringIfValid(obj.Taker.Valid, obj.Taker.String),
		SettledPrice:      pointer.Uint64IfValid(obj.SettledPrice.Valid, uint64(obj.SettledPrice.Int64)),
		OpenSignature:     obj.OpenSignature,
		CloseSignature:    pointer.StringIfValid(obj.CloseSignature.Valid, obj.CloseSignature.String),
		CreatedAt:         obj.CreatedAt.UTC(),
		LastUpdatedAt:     obj.LastUpdatedAt.UTC(),
	}
}

// dbPut inserts an open record, replacing a closed one at the same address.
func (m *auctionModel) dbPut(ctx context.Context, db *sqlx.DB) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.LastUpdatedAt = m.CreatedAt

	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		var state uint
		err := tx.GetContext(ctx, &state, `SELECT state FROM `+auctionTableName+` WHERE address = $1 FOR UPDATE`, m.Address)
		switch {
		case err == nil && auction.State(state) == auction.StateOpen:
			return auction.ErrAlreadyExists
		case err == nil:
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+auctionTableName+` WHERE address = $1`, m.Address); err != nil {
				return err
			}
		case err != sql.ErrNoRows:
			return err
		}

		return m.dbInsert(ctx, tx)
	})
}

func (m *auctionModel) dbInsert(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + auctionTableName + `
		(address, initializer, mint, token_account, starting_price, reserved_price, price_step, interval_seconds, starting_timestamp, bump, state, taker, settled_price, open_signature, close_signature, created_at, last_updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING ` + allAuctionColumns

	err := tx.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.Initializer,
		m.Mint,
		m.TokenAccount,
		m.StartingPrice,
		m.ReservedPrice,
		m.PriceStep,
		m.Interval,
		m.StartingTimestamp,
		m.Bump,
		m.State,
		m.Taker,
		m.SettledPrice,
		m.OpenSignature,
		m.CloseSignature,
		m.CreatedAt,
		m.LastUpdatedAt,
	).StructScan(m)

	return pgutil.CheckUniqueViolation(err, auction.ErrAlreadyExists)
}

// dbUpdate applies a state transition. The stored row is locked so concurrent
// transitions out of the open state serialize and only one wins.
func (m *auctionModel) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		existing := &auctionModel{}
		err := tx.GetContext(ctx, existing, `SELECT `+allAuctionColumns+` FROM `+auctionTableName+` WHERE address = $1 FOR UPDATE`, m.Address)
		if err != nil {
			return pgutil.CheckNoRows(err, auction.ErrNotFound)
		}
		if !fromAuctionModel(existing).CanTransitionTo(auction.State(m.State)) {
			return auction.ErrInvalidStateTransition
		}

		query := `UPDATE ` + auctionTableName + `
			SET state = $2, taker = $3, settled_price = $4, close_signature = $5, last_updated_at = $6
			WHERE address = $1
			RETURNING ` + allAuctionColumns

		err = tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.State,
			m.Taker,
			m.SettledPrice,
			m.CloseSignature,
			time.Now(),
		).StructScan(m)
		return pgutil.CheckNoRows(err, auction.ErrNotFound)
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*auctionModel, error) {
	res := &auctionModel{}

	query := `SELECT ` + allAuctionColumns + ` FROM ` + auctionTableName + ` WHERE address = $1`
	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, auction.ErrNotFound)
	}
	return res, nil
}

func dbGetAllByState(ctx context.Context, db *sqlx.DB, state auction.State, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*auctionModel, error) {
	res := []*auctionModel{}

	query := `SELECT ` + allAuctionColumns + ` FROM ` + auctionTableName + ` WHERE (state = $1)`
	opts := []interface{}{state}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, auction.ErrNotFound)
	}
	if len(res) == 0 {
		return nil, auction.ErrNotFound
	}
	return res, nil
}

func dbCountByState(ctx context.Context, db *sqlx.DB, state auction.State) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + auctionTableName + ` WHERE state = $1`
	if err := db.GetContext(ctx, &res, query, state); err != nil {
		return 0, err
	}
	return res, nil
}
