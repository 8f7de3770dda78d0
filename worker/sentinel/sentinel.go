package sentinel

import (
	"context"
	"time"

	"levee/core"
	"levee/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/lib/pq"
)

// Sentinel scans every borrower's health factor and keeps snapshots of
// the accounts a liquidator could act on.
type Sentinel struct {
	db          *db.DB
	reserves    core.ReserveStore
	userConfigs core.UserConfigStore
	accountSrv  core.AccountService
	accounts    core.AccountStore
}

// New new sentinel worker
func New(db *db.DB, reserves core.ReserveStore, userConfigs core.UserConfigStore, accountSrv core.AccountService, accounts core.AccountStore) *Sentinel {
	return &Sentinel{
		db:          db,
		reserves:    reserves,
		userConfigs: userConfigs,
		accountSrv:  accountSrv,
		accounts:    accounts,
	}
}

// Run run worker
func (w *Sentinel) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "sentinel")
	ctx = logger.WithContext(ctx, log)

	dur := time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			if err := w.run(ctx); err == nil {
				dur = 30 * time.Second
			} else {
				dur = 500 * time.Millisecond
			}
		}
	}
}

func (w *Sentinel) run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	borrowers, err := w.userConfigs.ListBorrowers(ctx)
	if err != nil {
		log.WithError(err).Errorln("userConfigs.ListBorrowers")
		return err
	}

	now := time.Now()
	for _, userID := range borrowers {
		if err := w.scan(ctx, userID, now); err != nil {
			log.WithError(err).Errorln("scan", userID)
			return err
		}
	}

	return nil
}

func (w *Sentinel) scan(ctx context.Context, userID string, now time.Time) error {
	data, err := w.accountSrv.CalculateAccountData(ctx, userID, now)
	if err != nil {
		return err
	}

	if data.IsSolvent() {
		return w.db.Tx(func(tx *db.DB) error {
			return w.accounts.DeleteSnapshot(ctx, tx, userID)
		})
	}

	logger.FromContext(ctx).
		WithField("user", userID).
		Infof("unhealthy account, health factor %s", data.HealthFactor.Dec())

	collaterals, err := w.collaterals(ctx, userID)
	if err != nil {
		return err
	}

	snapshot := &core.AccountSnapshot{
		UserID:       userID,
		HealthFactor: number.ToDecimal(data.HealthFactor),
		TotalDebt:    number.ToDecimal(data.TotalDebt),
		Collaterals:  collaterals,
		ScannedAt:    now,
	}
	return w.db.Tx(func(tx *db.DB) error {
		return w.accounts.SaveSnapshot(ctx, tx, snapshot)
	})
}

// collaterals the assets the user has flagged as collateral
func (w *Sentinel) collaterals(ctx context.Context, userID string) (pq.StringArray, error) {
	config, err := w.userConfigs.Find(ctx, userID)
	if err != nil || config == nil {
		return nil, err
	}

	reserves, err := w.reserves.All(ctx)
	if err != nil {
		return nil, err
	}

	var assets pq.StringArray
	for _, reserve := range reserves {
		if config.IsUsingAsCollateral(reserve.ReserveID) {
			assets = append(assets, reserve.AssetID)
		}
	}
	return assets, nil
}
