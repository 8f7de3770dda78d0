package core

import (
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Config levee config
type Config struct {
	App        App              `json:"app"`
	DB         db.Config        `json:"db"`
	PriceFeed  PriceFeed        `json:"price_feed"`
	RateOracle RateOracleConfig `json:"rate_oracle"`
	Admins     []string         `json:"admins"`
}

// IsAdmin check if the user is admin
func (c *Config) IsAdmin(userID string) bool {
	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}

	return false
}

// App app config
type App struct {
	// Treasury account credited with the reserve factor skim
	Treasury string `json:"treasury"`
	// Numeraire display symbol of the oracle unit
	Numeraire string `json:"numeraire"`
	Location  string `json:"location"`
}

// PriceFeed price feed config
type PriceFeed struct {
	EndPoint string `json:"end_point"`
	// Signers base64 BLS public keys, index position is the mask bit
	Signers   []string `json:"signers"`
	Threshold int      `json:"threshold"`
	// CacheTTLSeconds how long a quote may be served from cache
	CacheTTLSeconds int64 `json:"cache_ttl_seconds"`
}

// RateOracle market borrow rates for stable loans, per asset, human
// rates (0.05 = 5% APY). Used until the feed carries one.
type RateOracleConfig struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}
