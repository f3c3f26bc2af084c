package engine

import (
	"context"
	"crypto/ed25519"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
)

type entryStatus uint8

const (
	statusClean entryStatus = iota
	statusCreated
	statusDirty
	statusDeleted
)

type vaultEntry struct {
	record  *vault.Record
	status  entryStatus
	existed bool
}

type orderEntry struct {
	record  *order.Record
	status  entryStatus
	existed bool

	finalState order.State
}

type ledgerEntry struct {
	record  *repayledger.Record
	status  entryStatus
	existed bool
}

// session buffers record mutations for one batch. Reads see the batch's own
// writes; nothing reaches the stores until commit, so a failed batch leaves
// no partial state behind.
type session struct {
	vaults  vault.Store
	orders  order.Store
	ledgers repayledger.Store

	vaultEntries  map[string]*vaultEntry
	orderEntries  map[string]*orderEntry
	ledgerEntries map[string]*ledgerEntry

	// Protocol owned token accounts opened by this batch and not yet closed.
	// Their balances are re-checked across external calls.
	openMules []ed25519.PublicKey
}

func newSession(vaults vault.Store, orders order.Store, ledgers repayledger.Store) *session {
	return &session{
		vaults:  vaults,
		orders:  orders,
		ledgers: ledgers,

		vaultEntries:  make(map[string]*vaultEntry),
		orderEntries:  make(map[string]*orderEntry),
		ledgerEntries: make(map[string]*ledgerEntry),
	}
}

func (s *session) getVault(ctx context.Context, address string) (*vault.Record, error) {
	if entry, ok := s.vaultEntries[address]; ok {
		if entry.status == statusDeleted {
			return nil, vault.ErrVaultNotFound
		}
		return entry.record, nil
	}

	record, err := s.vaults.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	s.vaultEntries[address] = &vaultEntry{
		record:  record,
		existed: true,
	}
	return record, nil
}

func (s *session) createVault(ctx context.Context, record *vault.Record) error {
	if entry, ok := s.vaultEntries[record.Address]; ok && entry.status != statusDeleted {
		return ErrAccountAlreadyInitialized
	} else if !ok {
		_, err := s.vaults.GetByAddress(ctx, record.Address)
		if err == nil {
			return ErrAccountAlreadyInitialized
		} else if err != vault.ErrVaultNotFound {
			return err
		}
	}

	existed := false
	if entry, ok := s.vaultEntries[record.Address]; ok {
		existed = entry.existed
	}

	s.vaultEntries[record.Address] = &vaultEntry{
		record:  record,
		status:  statusCreated,
		existed: existed,
	}
	return nil
}

func (s *session) saveVault(record *vault.Record) {
	entry := s.vaultEntries[record.Address]
	entry.record = record
	if entry.status == statusClean {
		entry.status = statusDirty
	}
}

func (s *session) deleteVault(ctx context.Context, address string) error {
	if _, err := s.getVault(ctx, address); err != nil {
		return err
	}

	s.vaultEntries[address].status = statusDeleted
	return nil
}

// getOrder returns an order in the initiated state. Orders that were already
// consumed look like closed accounts to the batch.
func (s *session) getOrder(ctx context.Context, address string) (*order.Record, error) {
	if entry, ok := s.orderEntries[address]; ok {
		if entry.status == statusDeleted {
			return nil, order.ErrInvalidOrderState
		}
		return entry.record, nil
	}

	record, err := s.orders.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if record.OrderState != order.StateInitiated {
		return nil, order.ErrInvalidOrderState
	}

	s.orderEntries[address] = &orderEntry{
		record:  record,
		existed: true,
	}
	return record, nil
}

func (s *session) createOrder(ctx context.Context, record *order.Record) error {
	if entry, ok := s.orderEntries[record.Address]; ok && entry.status != statusDeleted {
		return ErrAccountAlreadyInitialized
	}

	existing, err := s.orders.GetByAddress(ctx, record.Address)
	if err == nil && existing.OrderState == order.StateInitiated {
		return ErrAccountAlreadyInitialized
	} else if err != nil && err != order.ErrOrderNotFound {
		return err
	}

	s.orderEntries[record.Address] = &orderEntry{
		record: record,
		status: statusCreated,
	}
	return nil
}

func (s *session) consumeOrder(ctx context.Context, address string, finalState order.State) error {
	if _, err := s.getOrder(ctx, address); err != nil {
		return err
	}

	entry := s.orderEntries[address]
	entry.finalState = finalState
	if entry.status != statusCreated {
		entry.status = statusDeleted
	} else {
		// Created and consumed within one batch. Persist both transitions so
		// the scan history stays complete.
		entry.status = statusDeleted
		entry.existed = false
	}
	return nil
}

func (s *session) getLedger(ctx context.Context, address string) (*repayledger.Record, error) {
	if entry, ok := s.ledgerEntries[address]; ok {
		if entry.status == statusDeleted {
			return nil, repayledger.ErrLedgerNotFound
		}
		return entry.record, nil
	}

	record, err := s.ledgers.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	s.ledgerEntries[address] = &ledgerEntry{
		record:  record,
		existed: true,
	}
	return record, nil
}

// putLedger creates the ledger record, or overwrites one abandoned by an
// earlier batch.
func (s *session) putLedger(ctx context.Context, record *repayledger.Record) error {
	existed := false
	if entry, ok := s.ledgerEntries[record.Address]; ok {
		existed = entry.existed
	} else {
		_, err := s.ledgers.GetByAddress(ctx, record.Address)
		if err == nil {
			existed = true
		} else if err != repayledger.ErrLedgerNotFound {
			return err
		}
	}

	s.ledgerEntries[record.Address] = &ledgerEntry{
		record:  record,
		status:  statusCreated,
		existed: existed,
	}
	return nil
}

func (s *session) saveLedger(record *repayledger.Record) {
	entry := s.ledgerEntries[record.Address]
	entry.record = record
	if entry.status == statusClean {
		entry.status = statusDirty
	}
}

func (s *session) deleteLedger(ctx context.Context, address string) error {
	if _, err := s.getLedger(ctx, address); err != nil {
		return err
	}

	s.ledgerEntries[address].status = statusDeleted
	return nil
}

func (s *session) trackMule(account ed25519.PublicKey) {
	s.openMules = append(s.openMules, account)
}

func (s *session) untrackMule(account ed25519.PublicKey) {
	for i, item := range s.openMules {
		if sameKey(item, account) {
			s.openMules = append(s.openMules[:i], s.openMules[i+1:]...)
			return
		}
	}
}

func (s *session) commit(ctx context.Context) error {
	for address, entry := range s.vaultEntries {
		switch entry.status {
		case statusDeleted:
			if entry.existed {
				if err := s.vaults.Delete(ctx, address); err != nil {
					return err
				}
			}
		case statusCreated:
			if entry.existed {
				if err := s.vaults.Delete(ctx, address); err != nil {
					return err
				}
			}
			if err := s.vaults.Put(ctx, entry.record); err != nil {
				return err
			}
		case statusDirty:
			if err := s.vaults.Save(ctx, entry.record); err != nil {
				return err
			}
		}
	}

	for address, entry := range s.orderEntries {
		if entry.status == statusCreated || (entry.status == statusDeleted && !entry.existed) {
			if err := s.orders.Put(ctx, entry.record); err != nil {
				return err
			}
		}
		if entry.status == statusDeleted {
			var err error
			if entry.finalState == order.StateCancelled {
				err = s.orders.MarkCancelled(ctx, address)
			} else {
				err = s.orders.MarkFulfilled(ctx, address)
			}
			if err != nil {
				return err
			}
		}
	}

	for address, entry := range s.ledgerEntries {
		switch entry.status {
		case statusDeleted:
			if entry.existed {
				if err := s.ledgers.Delete(ctx, address); err != nil {
					return err
				}
			}
		case statusCreated:
			if entry.existed {
				if err := s.ledgers.Delete(ctx, address); err != nil {
					return err
				}
			}
			if err := s.ledgers.Put(ctx, entry.record); err != nil {
				return err
			}
		case statusDirty:
			if err := s.ledgers.Save(ctx, entry.record); err != nil {
				return err
			}
		}
	}

	return nil
}
