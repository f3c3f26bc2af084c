package async_fulfiller

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/google/uuid"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/quartz-labs/quartz-protocol/pkg/database/query"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/engine"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

func (p *service) fulfilReleasedOrders(ctx context.Context) error {
	currentSlot := p.slots.CurrentSlot()

	cursor := query.EmptyCursor
	for {
		records, err := p.orders.GetAllReleased(ctx, currentSlot, cursor, p.conf.BatchSize, query.Ascending)
		if err == order.ErrOrderNotFound {
			return nil
		} else if err != nil {
			return err
		}

		var wg sync.WaitGroup
		for _, record := range records {
			wg.Add(1)

			go func(record *order.Record) {
				defer wg.Done()

				p.maybeFulfilOrder(ctx, record)
			}(record)
		}
		wg.Wait()

		cursor = query.ToCursor(records[len(records)-1].Id)
	}
}

func (p *service) maybeFulfilOrder(ctx context.Context, record *order.Record) {
	log := p.log.WithFields(logrus.Fields{
		"method":     "maybeFulfilOrder",
		"order":      record.Address,
		"submission": uuid.New().String(),
	})

	allowed, err := p.limiter.Allow(record.Owner)
	if err != nil {
		log.WithError(err).Warn("failure checking rate limit")
		return
	} else if !allowed {
		log.Trace("owner is rate limited")
		return
	}

	var ixn solana.Instruction
	switch record.OrderType {
	case order.TypeWithdraw:
		ixn, err = p.makeFulfilWithdrawInstruction(record)
	case order.TypeSpendLimits:
		ixn, err = p.makeFulfilSpendLimitsInstruction(record)
	case order.TypeSpendHold:
		log.Trace("skipping spend hold owned by the spend caller")
		return
	default:
		err = errors.Errorf("unhandled order type %d", record.OrderType)
	}
	if err != nil {
		log.WithError(err).Warn("failure building fulfil instruction")
		return
	}

	err = p.submitter.Submit(ctx, &engine.Batch{
		Instructions: []solana.Instruction{ixn},
	})
	if err != nil {
		log.WithError(err).Warn("failure submitting fulfil instruction")
	}
}

func (p *service) makeFulfilWithdrawInstruction(record *order.Record) (solana.Instruction, error) {
	owner, orderAccount, rentPayer, err := decodeOrderAccounts(record)
	if err != nil {
		return solana.Instruction{}, err
	}

	destination, err := base58.Decode(record.Destination)
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "invalid withdraw destination")
	}

	market, err := markets.GetMarket(record.MarketIndex)
	if err != nil {
		return solana.Instruction{}, err
	}

	vault, _, err := quartz.GetVaultAddress(owner)
	if err != nil {
		return solana.Instruction{}, err
	}

	mule, _, err := quartz.GetWithdrawMuleAddress(owner, market.Mint)
	if err != nil {
		return solana.Instruction{}, err
	}

	depositAddress, _, err := quartz.GetDepositAddress(vault)
	if err != nil {
		return solana.Instruction{}, err
	}

	return quartz.NewFulfilWithdrawInstruction(&quartz.FulfilWithdrawInstructionAccounts{
		Caller:            p.conf.Caller,
		Owner:             owner,
		Vault:             vault,
		WithdrawOrder:     orderAccount,
		TimeLockRentPayer: rentPayer,
		Mule:              mule,
		Mint:              market.Mint,
		Destination:       destination,
		DepositAddress:    depositAddress,
	}), nil
}

func (p *service) makeFulfilSpendLimitsInstruction(record *order.Record) (solana.Instruction, error) {
	owner, orderAccount, rentPayer, err := decodeOrderAccounts(record)
	if err != nil {
		return solana.Instruction{}, err
	}

	vault, _, err := quartz.GetVaultAddress(owner)
	if err != nil {
		return solana.Instruction{}, err
	}

	return quartz.NewFulfilSpendLimitsInstruction(&quartz.FulfilSpendLimitsInstructionAccounts{
		Caller:            p.conf.Caller,
		Owner:             owner,
		Vault:             vault,
		SpendLimitsOrder:  orderAccount,
		TimeLockRentPayer: rentPayer,
	}), nil
}

func decodeOrderAccounts(record *order.Record) (owner, orderAccount, rentPayer ed25519.PublicKey, err error) {
	owner, err = base58.Decode(record.Owner)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "invalid order owner")
	}

	orderAccount, err = base58.Decode(record.Address)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "invalid order address")
	}

	rentPayer = owner
	if !record.IsOwnerPayer {
		rentPayer, _, err = quartz.GetTimeLockRentPayerAddress()
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return owner, orderAccount, rentPayer, nil
}
