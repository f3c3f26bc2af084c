package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
)

type store struct {
	mu      sync.Mutex
	records []*vault.Record
	last    uint64
}

// New returns a new in memory vault.Store
func New() vault.Store {
	return &store{}
}

// Put implements vault.Store.Put
func (s *store) Put(_ context.Context, data *vault.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(data.Address); item != nil {
		return vault.ErrVaultAlreadyExists
	}

	s.last++
	data.Id = s.last
	data.LastUpdatedAt = time.Now()
	s.records = append(s.records, data.Clone())

	return nil
}

// Save implements vault.Store.Save
func (s *store) Save(_ context.Context, data *vault.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByAddress(data.Address)
	if item == nil {
		return vault.ErrVaultNotFound
	}

	item.SpendLimitPerTransaction = data.SpendLimitPerTransaction
	item.SpendLimitPerTimeframe = data.SpendLimitPerTimeframe
	item.RemainingSpendLimitPerTimeframe = data.RemainingSpendLimitPerTimeframe
	item.NextTimeframeResetTimestamp = data.NextTimeframeResetTimestamp
	item.TimeframeInSeconds = data.TimeframeInSeconds
	item.LastUpdatedAt = time.Now()

	item.CopyTo(data)

	return nil
}

// GetByAddress implements vault.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*vault.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(address); item != nil {
		return item.Clone(), nil
	}
	return nil, vault.ErrVaultNotFound
}

// GetByOwner implements vault.Store.GetByOwner
func (s *store) GetByOwner(_ context.Context, owner string) (*vault.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.Owner == owner {
			return item.Clone(), nil
		}
	}
	return nil, vault.ErrVaultNotFound
}

// Delete implements vault.Store.Delete
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

// Count implements vault.Store.Count
func (s *store) Count(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.records)), nil
}

func (s *store) findByAddress(address string) *vault.Record {
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
