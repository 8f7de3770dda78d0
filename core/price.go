package core

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/pandodao/blst"
	"github.com/shopspring/decimal"
)

// Price the last verified quote of one asset, in numeraire.
type Price struct {
	ID         uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID    string          `sql:"size:36;unique_index:idx_prices_asset" json:"asset_id"`
	Price      decimal.Decimal `sql:"type:decimal(32,12)" json:"price"`
	MarketRate decimal.Decimal `sql:"type:decimal(32,12);default:0" json:"market_rate"`
	Timestamp  int64           `sql:"default:0" json:"timestamp"`
	SignerMask uint64          `sql:"default:0" json:"signer_mask"`
	Version    int64           `sql:"default:0" json:"version"`
	UpdatedAt  time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// PriceStore verified price persistence
type PriceStore interface {
	Save(ctx context.Context, tx *db.DB, price *Price) error
	Find(ctx context.Context, assetID string) (*Price, error)
	All(ctx context.Context) ([]*Price, error)
}

// PriceData one signed quote from the feed. Signature is a BLS
// aggregate over Payload(); Mask marks which registered signers took
// part.
type PriceData struct {
	AssetID string          `json:"asset_id"`
	Price   decimal.Decimal `json:"price"`
	// MarketRate the lending market base borrow rate shipped with the quote
	MarketRate decimal.Decimal `json:"market_rate"`
	Timestamp  int64           `json:"timestamp"`
	Mask       uint64          `json:"mask"`
	Signature  blst.Signature  `json:"signature"`
}

// Payload the byte string signers committed to.
func (p *PriceData) Payload() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, p.AssetID...)
	buf = append(buf, '|')
	buf = append(buf, p.Price.String()...)
	buf = append(buf, '|')
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.Timestamp))
	return buf
}

// Signer one registered oracle signer.
type Signer struct {
	Index     uint64
	VerifyKey *blst.PublicKey
}

// Verify checks the aggregate signature against the signers selected
// by the mask and a minimum participant threshold.
func (p *PriceData) Verify(signers []*Signer, threshold int) error {
	var pubs []*blst.PublicKey
	for _, signer := range signers {
		if p.Mask&(0x1<<signer.Index) != 0 {
			pubs = append(pubs, signer.VerifyKey)
		}
	}

	if len(pubs) < threshold {
		return fmt.Errorf("price data signed by %d of %d required signers", len(pubs), threshold)
	}

	if !blst.AggregatePublicKeys(pubs).Verify(p.Payload(), &p.Signature) {
		return fmt.Errorf("price data signature verify failed")
	}

	return nil
}
