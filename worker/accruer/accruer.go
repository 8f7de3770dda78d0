package accruer

import (
	"context"
	"time"

	"levee/core"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

// Accruer periodically accrues every reserve so indexes and the
// treasury skim do not wait for the next user action.
type Accruer struct {
	db         *db.DB
	reserves   core.ReserveStore
	reserveSrv core.ReserveService
}

// New new accruer worker
func New(db *db.DB, reserves core.ReserveStore, reserveSrv core.ReserveService) *Accruer {
	return &Accruer{
		db:         db,
		reserves:   reserves,
		reserveSrv: reserveSrv,
	}
}

// Run run worker
func (w *Accruer) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "accruer")
	ctx = logger.WithContext(ctx, log)

	dur := time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			if err := w.run(ctx); err == nil {
				dur = 10 * time.Second
			} else {
				dur = 500 * time.Millisecond
			}
		}
	}
}

func (w *Accruer) run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	reserves, err := w.reserves.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("reserves.All")
		return err
	}

	now := time.Now()
	for _, reserve := range reserves {
		if !reserve.IsInitialized() || reserve.LastUpdateTimestamp >= now.Unix() {
			continue
		}

		if err := w.accrue(ctx, reserve, now); err != nil {
			log.WithError(err).Errorln("accrue", reserve.AssetID)
			return err
		}
	}

	return nil
}

func (w *Accruer) accrue(ctx context.Context, reserve *core.Reserve, now time.Time) error {
	return w.db.Tx(func(tx *db.DB) error {
		if err := w.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
			return err
		}
		if err := w.reserveSrv.UpdateInterestRates(ctx, tx, reserve, uint256.NewInt(0), uint256.NewInt(0)); err != nil {
			return err
		}
		return w.reserves.Update(ctx, tx, reserve)
	})
}
