package keeper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	auctiondata "github.com/code-payments/dutch-auction/pkg/data/auction"
	"github.com/code-payments/dutch-auction/pkg/database/query"
	"github.com/code-payments/dutch-auction/pkg/ledger"
	"github.com/code-payments/dutch-auction/pkg/metrics"
	"github.com/code-payments/dutch-auction/pkg/solana/dutchauction"
)

const metricsStructName = "auction.keeper"

// Result summarizes a reconciliation pass.
type Result struct {
	Checked uint64
	Open    uint64
	Closed  uint64
	Failed  uint64
}

// Keeper reconciles the auction index with the ledger. Auctions can be settled
// or cancelled by transactions this process never submitted, so open records
// are periodically checked against their accounts and marked Closed once the
// account is gone.
type Keeper struct {
	log      *logrus.Entry
	conf     *conf
	reader   ledger.Reader
	store    auctiondata.Store
	resolver *dutchauction.AddressResolver

	runMu   sync.Mutex
	cronMu  sync.Mutex
	cronJob *cron.Cron
}

func New(reader ledger.Reader, store auctiondata.Store, resolver *dutchauction.AddressResolver, configProvider ConfigProvider) *Keeper {
	return &Keeper{
		log:      logrus.StandardLogger().WithField("type", "auction/keeper"),
		conf:     configProvider(),
		reader:   reader,
		store:    store,
		resolver: resolver,
	}
}

// Start runs Reconcile on the configured cron schedule until ctx is done or
// Stop is called.
func (k *Keeper) Start(ctx context.Context) error {
	k.cronMu.Lock()
	defer k.cronMu.Unlock()

	if k.cronJob != nil {
		return errors.New("keeper already started")
	}

	schedule := k.conf.schedule.Get(ctx)
	cronJob := cron.New(cron.WithLocation(time.UTC))
	_, err := cronJob.AddFunc(schedule, func() {
		// Passes that overrun the schedule are skipped rather than queued.
		if !k.runMu.TryLock() {
			k.log.Debug("previous reconciliation still running, skipping")
			return
		}
		defer k.runMu.Unlock()

		if ctx.Err() != nil {
			return
		}

		txnCtx, end := metrics.StartBackgroundTransaction(ctx, "auction_keeper__reconcile")
		defer end()

		result, err := k.reconcile(txnCtx)
		if err != nil {
			k.log.WithError(err).Warn("failure reconciling auctions")
			return
		}
		k.log.WithFields(logrus.Fields{
			"checked": result.Checked,
			"closed":  result.Closed,
			"failed":  result.Failed,
		}).Debug("reconciled auctions")
	})
	if err != nil {
		return errors.Wrapf(err, "invalid keeper schedule %q", schedule)
	}

	k.cronJob = cronJob
	cronJob.Start()

	go func() {
		<-ctx.Done()
		k.Stop()
	}()

	return nil
}

// Stop halts the schedule and waits for a running pass to finish. Stop is
// idempotent.
func (k *Keeper) Stop() {
	k.cronMu.Lock()
	cronJob := k.cronJob
	k.cronJob = nil
	k.cronMu.Unlock()

	if cronJob != nil {
		<-cronJob.Stop().Done()
	}
}

// Reconcile checks every open auction record against the ledger once.
func (k *Keeper) Reconcile(ctx context.Context) (*Result, error) {
	k.runMu.Lock()
	defer k.runMu.Unlock()

	return k.reconcile(ctx)
}

func (k *Keeper) reconcile(ctx context.Context) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Reconcile")
	defer tracer.End()

	start := time.Now()
	result, err := k.reconcileAll(ctx)
	tracer.OnError(err)
	if result != nil {
		tracer.AddAttribute("checked", result.Checked)
		tracer.AddAttribute("closed", result.Closed)
		recordReconcileMetrics(ctx, result, time.Since(start))
	}
	return result, err
}

func (k *Keeper) reconcileAll(ctx context.Context) (*Result, error) {
	var (
		checked, open, closed, failed atomic.Uint64
		cursor                        = query.EmptyCursor
	)
	result := func() *Result {
		return &Result{
			Checked: checked.Load(),
			Open:    open.Load(),
			Closed:  closed.Load(),
			Failed:  failed.Load(),
		}
	}

	batchSize := k.conf.batchSize.Get(ctx)
	concurrency := int(k.conf.concurrency.Get(ctx))
	if concurrency < 1 {
		concurrency = 1
	}

	for {
		records, err := k.store.GetAllByState(ctx, auctiondata.StateOpen, cursor, batchSize, query.Ascending)
		if err == auctiondata.ErrNotFound {
			return result(), nil
		} else if err != nil {
			return result(), errors.Wrap(err, "failed to load open auctions")
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, record := range records {
			g.Go(func() error {
				checked.Add(1)

				isOpen, err := k.reconcileRecord(gCtx, record)
				switch {
				case err != nil:
					failed.Add(1)
					// Per-record failures are retried on the next pass.
					if gCtx.Err() != nil {
						return gCtx.Err()
					}
				case isOpen:
					open.Add(1)
				default:
					closed.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return result(), err
		}

		if uint64(len(records)) < batchSize {
			return result(), nil
		}
		cursor = query.ToCursor(records[len(records)-1].Id)
	}
}

// reconcileRecord reports whether the record's auction account is still open,
// marking the record Closed when it isn't.
func (k *Keeper) reconcileRecord(ctx context.Context, record *auctiondata.Record) (bool, error) {
	log := k.log.WithFields(logrus.Fields{
		"method":  "reconcileRecord",
		"auction": record.Address,
	})

	address, err := record.GetPublicKey()
	if err != nil {
		log.WithError(err).Warn("invalid auction address in record")
		return false, err
	}

	isOpen, err := k.isAuctionOpen(ctx, address)
	if err != nil {
		log.WithError(err).Warn("failure fetching auction account")
		return false, err
	}
	if isOpen {
		return true, nil
	}

	cloned := record.Clone()
	cloned.State = auctiondata.StateClosed
	err = k.store.Update(ctx, &cloned)
	switch err {
	case nil:
		log.Debug("auction marked closed")
		metrics.RecordEvent(ctx, auctionClosedEventName, map[string]interface{}{
			"auction":     record.Address,
			"initializer": record.Initializer,
			"mint":        record.Mint,
			"open_for_ms": time.Since(record.CreatedAt).Milliseconds(),
		})
	case auctiondata.ErrInvalidStateTransition:
		// Closed through a client call since the batch was loaded.
		log.Debug("auction already closed")
	default:
		log.WithError(err).Warn("failure marking auction closed")
		return false, err
	}
	return false, nil
}

func (k *Keeper) isAuctionOpen(ctx context.Context, address []byte) (bool, error) {
	account, err := k.reader.GetAccount(ctx, address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	// The address can be reused by an unrelated account once closed.
	if !account.IsOwnedBy(k.resolver.Program()) {
		return false, nil
	}
	var state dutchauction.AuctionAccount
	if err := state.Unmarshal(account.Data); err != nil {
		return false, nil
	}
	return true, nil
}
