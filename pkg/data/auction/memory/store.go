package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/dutch-auction/pkg/data/auction"
	"github.com/code-payments/dutch-auction/pkg/database/query"
	"github.com/code-payments/dutch-auction/pkg/pointer"
)

type store struct {
	mu      sync.Mutex
	records []*auction.Record
	last    uint64
}

type ById []*auction.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

func New() auction.Store {
	return &store{}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = nil
	s.last = 0
	s.mu.Unlock()
}

func (s *store) findAddress(address string) *auction.Record {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}
	return nil
}

func (s *store) remove(record *auction.Record) {
	for i, item := range s.records {
		if item == record {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

func (s *store) findByState(state auction.State) []*auction.Record {
	var res []*auction.Record
	for _, item := range s.records {
		if item.State == state {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) filter(items []*auction.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*auction.Record {
	var start uint64
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*auction.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	} else {
		sort.Sort(ById(res))
	}

	if limit > 0 && len(res) > int(limit) {
		return res[:limit]
	}
	return res
}

func (s *store) Put(ctx context.Context, record *auction.Record) error {
	if record.State != auction.StateOpen {
		return auction.ErrInvalidStateTransition
	}
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findAddress(record.Address); item != nil {
		if item.State == auction.StateOpen {
			return auction.ErrAlreadyExists
		}
		s.remove(item)
	}

	s.last++
	record.Id = s.last
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.LastUpdatedAt = record.CreatedAt

	cloned := record.Clone()
	s.records = append(s.records, &cloned)
	return nil
}

func (s *store) Update(ctx context.Context, record *auction.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findAddress(record.Address)
	if item == nil {
		return auction.ErrNotFound
	}
	if !item.CanTransitionTo(record.State) {
		return auction.ErrInvalidStateTransition
	}

	item.State = record.State
	item.Taker = pointer.StringCopy(record.Taker)
	item.SettledPrice = pointer.Uint64Copy(record.SettledPrice)
	item.CloseSignature = pointer.StringCopy(record.CloseSignature)
	item.LastUpdatedAt = time.Now()

	item.CopyTo(record)
	return nil
}

func (s *store) GetByAddress(ctx context.Context, address string) (*auction.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findAddress(address); item != nil {
		cloned := item.Clone()
		return &cloned, nil
	}
	return nil, auction.ErrNotFound
}

func (s *store) GetAllByState(ctx context.Context, state auction.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*auction.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.filter(s.findByState(state), cursor, limit, direction)
	if len(res) == 0 {
		return nil, auction.ErrNotFound
	}
	return clonedRecords(res), nil
}

func (s *store) CountByState(ctx context.Context, state auction.State) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.findByState(state))), nil
}

func clonedRecords(items []*auction.Record) []*auction.Record {
	res := make([]*auction.Record, len(items))
	for i, item := range items {
		cloned := item.Clone()
		res[i] = &cloned
	}
	return res
}
