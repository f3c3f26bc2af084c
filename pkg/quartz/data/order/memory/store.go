package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quartz-labs/quartz-protocol/pkg/database/query"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
)

type store struct {
	mu      sync.Mutex
	records []*order.Record
	last    uint64
}

type ById []*order.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

// New returns a new in memory order.Store
func New() order.Store {
	return &store{}
}

// Put implements order.Store.Put
func (s *store) Put(_ context.Context, data *order.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(data.Address); item != nil {
		return order.ErrOrderAlreadyExists
	}

	s.last++
	data.Id = s.last
	data.LastUpdatedAt = time.Now()
	s.records = append(s.records, data.Clone())

	return nil
}

// MarkFulfilled implements order.Store.MarkFulfilled
func (s *store) MarkFulfilled(_ context.Context, address string) error {
	return s.transition(address, order.StateFulfilled)
}

// MarkCancelled implements order.Store.MarkCancelled
func (s *store) MarkCancelled(_ context.Context, address string) error {
	return s.transition(address, order.StateCancelled)
}

// GetByAddress implements order.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*order.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(address); item != nil {
		return item.Clone(), nil
	}
	return nil, order.ErrOrderNotFound
}

// GetAllByOwner implements order.Store.GetAllByOwner
func (s *store) GetAllByOwner(_ context.Context, owner string) ([]*order.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*order.Record
	for _, item := range s.records {
		if item.Owner == owner {
			res = append(res, item.Clone())
		}
	}

	if len(res) == 0 {
		return nil, order.ErrOrderNotFound
	}
	return res, nil
}

// GetAllReleased implements order.Store.GetAllReleased
func (s *store) GetAllReleased(_ context.Context, currentSlot uint64, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*order.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*order.Record
	for _, item := range s.records {
		if item.OrderState == order.StateInitiated && item.IsReleased(currentSlot) {
			items = append(items, item.Clone())
		}
	}

	res := s.filter(items, cursor, limit, direction)
	if len(res) == 0 {
		return nil, order.ErrOrderNotFound
	}
	return res, nil
}

// GetCountByState implements order.Store.GetCountByState
func (s *store) GetCountByState(_ context.Context, state order.State) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	for _, item := range s.records {
		if item.OrderState == state {
			count++
		}
	}
	return count, nil
}

func (s *store) transition(address string, next order.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByAddress(address)
	if item == nil {
		return order.ErrOrderNotFound
	}

	if item.OrderState != order.StateInitiated {
		return order.ErrInvalidOrderState
	}

	item.OrderState = next
	item.LastUpdatedAt = time.Now()

	return nil
}

func (s *store) findByAddress(address string) *order.Record {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}
	return nil
}

func (s *store) filter(items []*order.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*order.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*order.Record
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
	}

	if len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
