package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger"
)

type store struct {
	mu      sync.Mutex
	records []*repayledger.Record
	last    uint64
}

// New returns a new in memory repayledger.Store
func New() repayledger.Store {
	return &store{}
}

// Put implements repayledger.Store.Put
func (s *store) Put(_ context.Context, data *repayledger.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(data.Address); item != nil {
		return repayledger.ErrLedgerAlreadyExists
	}

	s.last++
	data.Id = s.last
	data.LastUpdatedAt = time.Now()
	s.records = append(s.records, data.Clone())

	return nil
}

// Save implements repayledger.Store.Save
func (s *store) Save(_ context.Context, data *repayledger.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByAddress(data.Address)
	if item == nil {
		return repayledger.ErrLedgerNotFound
	}

	item.Deposit = data.Deposit
	item.Withdraw = data.Withdraw
	item.LastUpdatedAt = time.Now()

	item.CopyTo(data)

	return nil
}

// GetByAddress implements repayledger.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*repayledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(address); item != nil {
		return item.Clone(), nil
	}
	return nil, repayledger.ErrLedgerNotFound
}

// Delete implements repayledger.Store.Delete
func (s *store) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.records {
		if item.Address == address {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count implements repayledger.Store.Count
func (s *store) Count(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.records)), nil
}

func (s *store) findByAddress(address string) *repayledger.Record {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}
	return nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
