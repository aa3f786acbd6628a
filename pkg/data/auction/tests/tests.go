package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/dutch-auction/pkg/data/auction"
	"github.com/code-payments/dutch-auction/pkg/database/query"
	"github.com/code-payments/dutch-auction/pkg/pointer"
)

func RunTests(t *testing.T, s auction.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s auction.Store){
		testRoundTrip,
		testPutInvalid,
		testUpdate,
		testRelist,
		testGetAllByState,
		testCountByState,
	} {
		tf(t, s)
		teardown()
	}
}

func newOpenRecord(i int) *auction.Record {
	return &auction.Record{
		Address:           fmt.Sprintf("auction%d", i),
		Initializer:       fmt.Sprintf("initializer%d", i),
		Mint:              fmt.Sprintf("mint%d", i),
		TokenAccount:      fmt.Sprintf("token%d", i),
		StartingPrice:     1_000,
		ReservedPrice:     100,
		PriceStep:         10,
		Interval:          60,
		StartingTimestamp: 1_700_000_000,
		Bump:              254,
		State:             auction.StateOpen,
		OpenSignature:     fmt.Sprintf("open%d", i),
		CreatedAt:         time.Now().Add(-time.Minute),
	}
}

func testRoundTrip(t *testing.T, s auction.Store) {
	ctx := context.Background()

	actual, err := s.GetByAddress(ctx, "auction1")
	assert.Equal(t, auction.ErrNotFound, err)
	assert.Nil(t, actual)

	expected := newOpenRecord(1)
	cloned := expected.Clone()
	require.NoError(t, s.Put(ctx, expected))
	assert.EqualValues(t, 1, expected.Id)

	actual, err = s.GetByAddress(ctx, "auction1")
	require.NoError(t, err)
	assertEquivalentRecords(t, &cloned, actual)
	assert.EqualValues(t, 1, actual.Id)

	assert.Equal(t, auction.ErrAlreadyExists, s.Put(ctx, newOpenRecord(1)))
}

func testPutInvalid(t *testing.T, s auction.Store) {
	ctx := context.Background()

	for _, invalid := range []*auction.Record{
		{},
		{
			Address: "auction",
		},
		func() *auction.Record {
			r := newOpenRecord(1)
			r.PriceStep = 0
			return r
		}(),
		func() *auction.Record {
			r := newOpenRecord(1)
			r.ReservedPrice = r.StartingPrice + 1
			return r
		}(),
		func() *auction.Record {
			r := newOpenRecord(1)
			r.Taker = pointer.String("taker")
			return r
		}(),
	} {
		assert.Error(t, s.Put(ctx, invalid))
	}

	settled := newOpenRecord(1)
	settled.State = auction.StateSettled
	settled.Taker = pointer.String("taker")
	settled.SettledPrice = pointer.Uint64(500)
	settled.CloseSignature = pointer.String("close")
	assert.Equal(t, auction.ErrInvalidStateTransition, s.Put(ctx, settled))

	_, err := s.GetByAddress(ctx, "auction1")
	assert.Equal(t, auction.ErrNotFound, err)
}

func testUpdate(t *testing.T, s auction.Store) {
	ctx := context.Background()

	missing := newOpenRecord(1)
	missing.State = auction.StateCancelled
	missing.CloseSignature = pointer.String("close")
	assert.Equal(t, auction.ErrNotFound, s.Update(ctx, missing))

	record := newOpenRecord(1)
	require.NoError(t, s.Put(ctx, record))

	record.State = auction.StateSettled
	record.Taker = pointer.String("taker")
	record.SettledPrice = pointer.Uint64(500)
	record.CloseSignature = pointer.String("close")
	require.NoError(t, s.Update(ctx, record))
	assert.EqualValues(t, 1, record.Id)

	actual, err := s.GetByAddress(ctx, "auction1")
	require.NoError(t, err)
	assert.Equal(t, auction.StateSettled, actual.State)
	assert.Equal(t, "taker", *actual.Taker)
	assert.EqualValues(t, 500, *actual.SettledPrice)
	assert.Equal(t, "close", *actual.CloseSignature)
	assert.True(t, actual.LastUpdatedAt.After(actual.CreatedAt))

	// Terminal states never change.
	cancelled := actual.Clone()
	cancelled.State = auction.StateCancelled
	cancelled.Taker = nil
	cancelled.SettledPrice = nil
	assert.Equal(t, auction.ErrInvalidStateTransition, s.Update(ctx, &cancelled))

	closed := actual.Clone()
	closed.State = auction.StateClosed
	closed.Taker = nil
	closed.SettledPrice = nil
	assert.Equal(t, auction.ErrInvalidStateTransition, s.Update(ctx, &closed))

	actual, err = s.GetByAddress(ctx, "auction1")
	require.NoError(t, err)
	assert.Equal(t, auction.StateSettled, actual.State)
}

func testRelist(t *testing.T, s auction.Store) {
	ctx := context.Background()

	first := newOpenRecord(1)
	require.NoError(t, s.Put(ctx, first))

	first.State = auction.StateCancelled
	first.CloseSignature = pointer.String("close")
	require.NoError(t, s.Update(ctx, first))

	relisted := newOpenRecord(1)
	relisted.StartingTimestamp += 3600
	relisted.OpenSignature = "reopen"
	cloned := relisted.Clone()
	require.NoError(t, s.Put(ctx, relisted))
	assert.True(t, relisted.Id > first.Id)

	actual, err := s.GetByAddress(ctx, "auction1")
	require.NoError(t, err)
	assertEquivalentRecords(t, &cloned, actual)
	assert.Nil(t, actual.CloseSignature)

	count, err := s.CountByState(ctx, auction.StateCancelled)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	count, err = s.CountByState(ctx, auction.StateOpen)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// An open record cannot be replaced
	assert.Equal(t, auction.ErrAlreadyExists, s.Put(ctx, newOpenRecord(1)))
}

func testGetAllByState(t *testing.T, s auction.Store) {
	ctx := context.Background()

	_, err := s.GetAllByState(ctx, auction.StateOpen, query.EmptyCursor, 10, query.Ascending)
	assert.Equal(t, auction.ErrNotFound, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Put(ctx, newOpenRecord(i)))
	}

	cancelled, err := s.GetByAddress(ctx, "auction3")
	require.NoError(t, err)
	cancelled.State = auction.StateCancelled
	cancelled.CloseSignature = pointer.String("close")
	require.NoError(t, s.Update(ctx, cancelled))

	actual, err := s.GetAllByState(ctx, auction.StateOpen, query.EmptyCursor, 10, query.Ascending)
	require.NoError(t, err)
	require.Len(t, actual, 4)
	for i, address := range []string{"auction1", "auction2", "auction4", "auction5"} {
		assert.Equal(t, address, actual[i].Address)
	}

	actual, err = s.GetAllByState(ctx, auction.StateOpen, query.EmptyCursor, 2, query.Descending)
	require.NoError(t, err)
	require.Len(t, actual, 2)
	assert.Equal(t, "auction5", actual[0].Address)
	assert.Equal(t, "auction4", actual[1].Address)

	actual, err = s.GetAllByState(ctx, auction.StateOpen, query.ToCursor(actual[1].Id), 10, query.Descending)
	require.NoError(t, err)
	require.Len(t, actual, 2)
	assert.Equal(t, "auction2", actual[0].Address)
	assert.Equal(t, "auction1", actual[1].Address)

	actual, err = s.GetAllByState(ctx, auction.StateOpen, query.ToCursor(2), 1, query.Ascending)
	require.NoError(t, err)
	require.Len(t, actual, 1)
	assert.Equal(t, "auction4", actual[0].Address)

	_, err = s.GetAllByState(ctx, auction.StateOpen, query.ToCursor(5), 10, query.Ascending)
	assert.Equal(t, auction.ErrNotFound, err)

	actual, err = s.GetAllByState(ctx, auction.StateCancelled, query.EmptyCursor, 10, query.Ascending)
	require.NoError(t, err)
	require.Len(t, actual, 1)
	assert.Equal(t, "auction3", actual[0].Address)
}

func testCountByState(t *testing.T, s auction.Store) {
	ctx := context.Background()

	count, err := s.CountByState(ctx, auction.StateOpen)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Put(ctx, newOpenRecord(i)))
	}

	closed, err := s.GetByAddress(ctx, "auction2")
	require.NoError(t, err)
	closed.State = auction.StateClosed
	require.NoError(t, s.Update(ctx, closed))

	for state, expected := range map[auction.State]uint64{
		auction.StateOpen:      2,
		auction.StateClosed:    1,
		auction.StateSettled:   0,
		auction.StateCancelled: 0,
	} {
		count, err := s.CountByState(ctx, state)
		require.NoError(t, err)
		assert.Equal(t, expected, count, state.String())
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *auction.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Initializer, obj2.Initializer)
	assert.Equal(t, obj1.Mint, obj2.Mint)
	assert.Equal(t, obj1.TokenAccount, obj2.TokenAccount)
	assert.Equal(t, obj1.StartingPrice, obj2.StartingPrice)
	assert.Equal(t, obj1.ReservedPrice, obj2.ReservedPrice)
	assert.Equal(t, obj1.PriceStep, obj2.PriceStep)
	assert.Equal(t, obj1.Interval, obj2.Interval)
	assert.Equal(t, obj1.StartingTimestamp, obj2.StartingTimestamp)
	assert.Equal(t, obj1.Bump, obj2.Bump)
	assert.Equal(t, obj1.State, obj2.State)
	assert.Equal(t, obj1.Taker, obj2.Taker)
	assert.Equal(t, obj1.SettledPrice, obj2.SettledPrice)
	assert.Equal(t, obj1.OpenSignature, obj2.OpenSignature)
	assert.Equal(t, obj1.CloseSignature, obj2.CloseSignature)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}
