package async_fulfiller

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/async"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/engine"
	"github.com/quartz-labs/quartz-protocol/pkg/rate"
)

const defaultBatchSize = 10

// Submitter submits instruction batches built by the fulfiller for execution.
type Submitter interface {
	Submit(ctx context.Context, batch *engine.Batch) error
}

// SlotObserver reports the current slot height, which decides whether an
// order's time lock has released.
type SlotObserver interface {
	CurrentSlot() uint64
}

type Config struct {
	// Caller signs the permissionless fulfil instructions built by this
	// service.
	Caller ed25519.PublicKey

	// BatchSize is the number of order records fetched per page while
	// scanning for released orders.
	BatchSize uint64
}

type service struct {
	log       *logrus.Entry
	conf      Config
	orders    order.Store
	slots     SlotObserver
	submitter Submitter
	limiter   rate.Limiter
}

// New returns a service that watches for released time-locked orders and
// submits the corresponding fulfil instructions. Spend holds are left to the
// spend caller, since only it knows the settlement destination.
func New(conf Config, orders order.Store, slots SlotObserver, submitter Submitter, limiter rate.Limiter) async.Service {
	if conf.BatchSize == 0 {
		conf.BatchSize = defaultBatchSize
	}

	if limiter == nil {
		limiter = &rate.NoLimiter{}
	}

	return &service{
		log:       logrus.StandardLogger().WithField("service", "fulfiller"),
		conf:      conf,
		orders:    orders,
		slots:     slots,
		submitter: submitter,
		limiter:   limiter,
	}
}

func (p *service) Start(ctx context.Context, interval time.Duration) error {

	go func() {
		err := p.orderFulfilmentWorker(ctx, interval)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("order fulfilment processing loop terminated unexpectedly")
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *service) orderFulfilmentWorker(serviceCtx context.Context, interval time.Duration) error {
	delay := interval

	for {
		select {
		case <-serviceCtx.Done():
			return serviceCtx.Err()
		case <-time.After(delay):
		}

		err := p.fulfilReleasedOrders(serviceCtx)
		if err != nil {
			p.log.WithError(err).Warn("failed to process released orders")
		}
	}
}
