package pricefeed

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"levee/core"
	"levee/pkg/resthttp"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/pandodao/blst"
)

// Feed polls the oracle endpoint and persists quotes whose aggregate
// signature clears the signer threshold.
type Feed struct {
	db        *db.DB
	endpoint  string
	signers   []*core.Signer
	threshold int
	reserves  core.ReserveStore
	prices    core.PriceStore
}

// New builds the feed worker. Signer keys are base64 BLS public keys,
// the position in the list is the signer's mask bit.
func New(db *db.DB, cfg core.PriceFeed, reserves core.ReserveStore, prices core.PriceStore) (*Feed, error) {
	signers := make([]*core.Signer, len(cfg.Signers))
	for idx, key := range cfg.Signers {
		bts, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("pricefeed: decode signer %d: %w", idx, err)
		}

		pub := blst.PublicKey{}
		if err := pub.FromBytes(bts); err != nil {
			return nil, fmt.Errorf("pricefeed: parse signer %d: %w", idx, err)
		}

		signers[idx] = &core.Signer{
			Index:     uint64(idx),
			VerifyKey: &pub,
		}
	}

	return &Feed{
		db:        db,
		endpoint:  cfg.EndPoint,
		signers:   signers,
		threshold: cfg.Threshold,
		reserves:  reserves,
		prices:    prices,
	}, nil
}

// Run run worker
func (w *Feed) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "pricefeed")
	ctx = logger.WithContext(ctx, log)

	dur := time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			if err := w.run(ctx); err == nil {
				dur = 5 * time.Second
			} else {
				dur = 500 * time.Millisecond
			}
		}
	}
}

func (w *Feed) run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	quotes, err := w.fetch(ctx)
	if err != nil {
		log.WithError(err).Errorln("fetch quotes")
		return err
	}

	reserves, err := w.reserves.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("reserves.All")
		return err
	}
	listed := make(map[string]bool, len(reserves))
	for _, reserve := range reserves {
		listed[reserve.AssetID] = true
	}

	for _, quote := range quotes {
		if !listed[quote.AssetID] {
			continue
		}

		if err := quote.Verify(w.signers, w.threshold); err != nil {
			log.WithError(err).Warningln("quote rejected:", quote.AssetID)
			continue
		}

		price := &core.Price{
			AssetID:    quote.AssetID,
			Price:      quote.Price,
			MarketRate: quote.MarketRate,
			Timestamp:  quote.Timestamp,
			SignerMask: quote.Mask,
		}

		if err := w.db.Tx(func(tx *db.DB) error {
			return w.prices.Save(ctx, tx, price)
		}); err != nil {
			log.WithError(err).Errorln("prices.Save:", quote.AssetID)
			return err
		}
	}

	return nil
}

func (w *Feed) fetch(ctx context.Context) ([]*core.PriceData, error) {
	url := fmt.Sprintf("%s/prices?ts=%d", w.endpoint, time.Now().UTC().Unix())

	resp, err := resthttp.Request(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	var quotes []*core.PriceData
	if err := resthttp.ParseResponse(resp, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}
