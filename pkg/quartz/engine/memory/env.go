// Package memory provides an in memory engine.Env for tests and local use.
package memory

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/engine"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/risk"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/jupiter"
)

var (
	ErrTokenAccountNotFound = errors.New("token account not found")
	ErrInsufficientBalance  = errors.New("insufficient token balance")
	ErrOraclePriceNotFound  = errors.New("no price for oracle feed")
	ErrAccountNotEmpty      = errors.New("token account balance must be zero to close")
)

type tokenAccount struct {
	mint      ed25519.PublicKey
	authority ed25519.PublicKey
	balance   uint64
}

type position struct {
	deposited uint64
	borrowed  uint64
}

type state struct {
	accounts    map[string]*tokenAccount
	positions   map[string]map[uint16]*position
	rentRefunds map[string]int
}

func (s *state) clone() *state {
	cloned := newState()
	for key, account := range s.accounts {
		copied := *account
		cloned.accounts[key] = &copied
	}
	for key, markets := range s.positions {
		cloned.positions[key] = make(map[uint16]*position)
		for marketIndex, pos := range markets {
			copied := *pos
			cloned.positions[key][marketIndex] = &copied
		}
	}
	for key, count := range s.rentRefunds {
		cloned.rentRefunds[key] = count
	}
	return cloned
}

func newState() *state {
	return &state{
		accounts:    make(map[string]*tokenAccount),
		positions:   make(map[string]map[uint16]*position),
		rentRefunds: make(map[string]int),
	}
}

// Env is an in memory engine.Env. The zero value is not usable; construct
// with New.
type Env struct {
	slot uint64
	time int64

	// SwapInAmount is the amount an executed swap debits from its source
	// token account.
	SwapInAmount uint64

	// MarginFunc supplies margin calculations. Defaults to an empty
	// position.
	MarginFunc func(authority ed25519.PublicKey, depositMarketIndex, withdrawMarketIndex uint16) (risk.MarginCalculation, error)

	prices map[string]risk.OraclePrice

	state    *state
	snapshot *state
}

func New() *Env {
	return &Env{
		prices: make(map[string]risk.OraclePrice),
		state:  newState(),
	}
}

// SetClock positions the environment at the provided slot and timestamp.
func (e *Env) SetClock(slot uint64, time int64) {
	e.slot = slot
	e.time = time
}

// AdvanceSlots moves the clock forward by the provided number of slots.
func (e *Env) AdvanceSlots(slots uint64) {
	e.slot += slots
}

// CreateTokenAccount registers a token account with an initial balance.
func (e *Env) CreateTokenAccount(account, mint, authority ed25519.PublicKey, balance uint64) {
	e.state.accounts[base58.Encode(account)] = &tokenAccount{
		mint:      mint,
		authority: authority,
		balance:   balance,
	}
}

// SetPosition sets the lending venue position for an authority on a market.
func (e *Env) SetPosition(authority ed25519.PublicKey, marketIndex uint16, deposited, borrowed uint64) {
	pos := e.getPosition(authority, marketIndex)
	pos.deposited = deposited
	pos.borrowed = borrowed
}

// GetPosition returns the lending venue position for an authority on a
// market.
func (e *Env) GetPosition(authority ed25519.PublicKey, marketIndex uint16) (deposited, borrowed uint64) {
	pos := e.getPosition(authority, marketIndex)
	return pos.deposited, pos.borrowed
}

// SetPrice sets the latest price record for an oracle feed.
func (e *Env) SetPrice(feed string, price risk.OraclePrice) {
	e.prices[feed] = price
}

// RentRefundCount returns how many storage deposits have been refunded to
// the destination.
func (e *Env) RentRefundCount(destination ed25519.PublicKey) int {
	return e.state.rentRefunds[base58.Encode(destination)]
}

// CurrentSlot implements engine.Env.CurrentSlot
func (e *Env) CurrentSlot() uint64 {
	return e.slot
}

// CurrentTime implements engine.Env.CurrentTime
func (e *Env) CurrentTime() int64 {
	return e.time
}

// TokenBalance implements engine.Env.TokenBalance
func (e *Env) TokenBalance(account ed25519.PublicKey) (uint64, error) {
	item, ok := e.state.accounts[base58.Encode(account)]
	if !ok {
		return 0, ErrTokenAccountNotFound
	}
	return item.balance, nil
}

// OpenTokenAccount implements engine.Env.OpenTokenAccount
func (e *Env) OpenTokenAccount(account, mint, authority ed25519.PublicKey) error {
	key := base58.Encode(account)
	if _, ok := e.state.accounts[key]; ok {
		return engine.ErrAccountAlreadyInitialized
	}

	e.state.accounts[key] = &tokenAccount{
		mint:      mint,
		authority: authority,
	}
	return nil
}

// CloseAccount implements engine.Env.CloseAccount
func (e *Env) CloseAccount(account, rentDestination ed25519.PublicKey) error {
	key := base58.Encode(account)
	if item, ok := e.state.accounts[key]; ok {
		if item.balance != 0 {
			return ErrAccountNotEmpty
		}
		delete(e.state.accounts, key)
	}

	e.state.rentRefunds[base58.Encode(rentDestination)]++
	return nil
}

// Transfer implements engine.Env.Transfer
func (e *Env) Transfer(source, destination ed25519.PublicKey, amount uint64) error {
	from, ok := e.state.accounts[base58.Encode(source)]
	if !ok {
		return ErrTokenAccountNotFound
	}
	to, ok := e.state.accounts[base58.Encode(destination)]
	if !ok {
		return ErrTokenAccountNotFound
	}

	if from.balance < amount {
		return ErrInsufficientBalance
	}

	from.balance -= amount
	to.balance += amount
	return nil
}

// LendingDeposit implements engine.Env.LendingDeposit
func (e *Env) LendingDeposit(authority, source ed25519.PublicKey, marketIndex uint16, amount uint64, reduceOnly bool) (uint64, error) {
	from, ok := e.state.accounts[base58.Encode(source)]
	if !ok {
		return 0, ErrTokenAccountNotFound
	}

	pos := e.getPosition(authority, marketIndex)

	moved := amount
	if reduceOnly && moved > pos.borrowed {
		moved = pos.borrowed
	}
	if from.balance < moved {
		return 0, ErrInsufficientBalance
	}

	from.balance -= moved
	if moved <= pos.borrowed {
		pos.borrowed -= moved
	} else {
		pos.deposited += moved - pos.borrowed
		pos.borrowed = 0
	}
	return moved, nil
}

// LendingWithdraw implements engine.Env.LendingWithdraw
func (e *Env) LendingWithdraw(authority, destination ed25519.PublicKey, marketIndex uint16, amount uint64, reduceOnly bool) (uint64, error) {
	to, ok := e.state.accounts[base58.Encode(destination)]
	if !ok {
		return 0, ErrTokenAccountNotFound
	}

	pos := e.getPosition(authority, marketIndex)

	moved := amount
	if reduceOnly && moved > pos.deposited {
		moved = pos.deposited
	}

	if moved <= pos.deposited {
		pos.deposited -= moved
	} else {
		pos.borrowed += moved - pos.deposited
		pos.deposited = 0
	}

	to.balance += moved
	return moved, nil
}

// CalculateMargin implements engine.Env.CalculateMargin
func (e *Env) CalculateMargin(authority ed25519.PublicKey, depositMarketIndex, withdrawMarketIndex uint16) (risk.MarginCalculation, error) {
	if e.MarginFunc != nil {
		return e.MarginFunc(authority, depositMarketIndex, withdrawMarketIndex)
	}
	return risk.MarginCalculation{}, nil
}

// GetOraclePrice implements engine.Env.GetOraclePrice
func (e *Env) GetOraclePrice(feed string) (risk.OraclePrice, error) {
	price, ok := e.prices[feed]
	if !ok {
		return risk.OraclePrice{}, ErrOraclePriceNotFound
	}
	return price, nil
}

// ExecuteExternal implements engine.Env.ExecuteExternal. Whitelisted swaps
// move SwapInAmount out of the source account and the quoted out amount into
// the destination. Anything else is a no-op.
func (e *Env) ExecuteExternal(ixn solana.Instruction) error {
	swap, err := jupiter.DecompileExactOutRoute(ixn)
	if err != nil {
		return nil
	}

	from, ok := e.state.accounts[base58.Encode(swap.SourceTokenAccount)]
	if !ok {
		return ErrTokenAccountNotFound
	}
	to, ok := e.state.accounts[base58.Encode(swap.DestinationTokenAccount)]
	if !ok {
		return ErrTokenAccountNotFound
	}

	if from.balance < e.SwapInAmount {
		return ErrInsufficientBalance
	}

	from.balance -= e.SwapInAmount
	to.balance += swap.OutAmount
	return nil
}

// Begin implements engine.Env.Begin
func (e *Env) Begin() {
	e.snapshot = e.state.clone()
}

// Commit implements engine.Env.Commit
func (e *Env) Commit() {
	e.snapshot = nil
}

// Rollback implements engine.Env.Rollback
func (e *Env) Rollback() {
	if e.snapshot != nil {
		e.state = e.snapshot
		e.snapshot = nil
	}
}

func (e *Env) getPosition(authority ed25519.PublicKey, marketIndex uint16) *position {
	key := base58.Encode(authority)
	markets, ok := e.state.positions[key]
	if !ok {
		markets = make(map[uint16]*position)
		e.state.positions[key] = markets
	}

	pos, ok := markets[marketIndex]
	if !ok {
		pos = &position{}
		markets[marketIndex] = pos
	}
	return pos
}
