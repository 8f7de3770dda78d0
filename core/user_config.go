package core

import (
	"context"
	"time"

	"levee/pkg/number"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// UserConfig per user reserve flags, 2 bits per reserve id: bit 0
// borrowing, bit 1 using as collateral.
type UserConfig struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string          `sql:"size:36;unique_index:idx_user_configs_user" json:"user_id"`
	Bitmask   decimal.Decimal `sql:"type:decimal(78,0);default:0" json:"bitmask"`
	Version   int64           `sql:"default:0" json:"version"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (c *UserConfig) mask() *uint256.Int {
	v, err := number.FromDecimal(c.Bitmask)
	if err != nil {
		return uint256.NewInt(0)
	}
	return v
}

func (c *UserConfig) setMask(v *uint256.Int) {
	c.Bitmask = number.ToDecimal(v)
}

func (c *UserConfig) setBit(pos uint, on bool) {
	v := c.mask()
	bit := new(uint256.Int).Lsh(uint256.NewInt(1), pos)
	if on {
		v.Or(v, bit)
	} else {
		v.And(v, new(uint256.Int).Not(bit))
	}
	c.setMask(v)
}

func (c *UserConfig) getBit(pos uint) bool {
	v := c.mask()
	bit := new(uint256.Int).Lsh(uint256.NewInt(1), pos)
	return !new(uint256.Int).And(v, bit).IsZero()
}

// SetBorrowing flags the reserve as borrowed by the user.
func (c *UserConfig) SetBorrowing(reserveID int64, on bool) {
	c.setBit(uint(reserveID*2), on)
}

// SetUsingAsCollateral flags the reserve as collateral for the user.
func (c *UserConfig) SetUsingAsCollateral(reserveID int64, on bool) {
	c.setBit(uint(reserveID*2+1), on)
}

// IsBorrowing reports the borrow flag of one reserve.
func (c *UserConfig) IsBorrowing(reserveID int64) bool {
	return c.getBit(uint(reserveID * 2))
}

// IsUsingAsCollateral reports the collateral flag of one reserve.
func (c *UserConfig) IsUsingAsCollateral(reserveID int64) bool {
	return c.getBit(uint(reserveID*2 + 1))
}

// UsesReserve reports whether either flag of the reserve is set.
func (c *UserConfig) UsesReserve(reserveID int64) bool {
	return c.IsBorrowing(reserveID) || c.IsUsingAsCollateral(reserveID)
}

// IsBorrowingAny reports whether any reserve carries the borrow flag.
func (c *UserConfig) IsBorrowingAny() bool {
	v := c.mask()
	// 0b01 repeated over the whole word
	borrowMask := uint256.MustFromHex("0x5555555555555555555555555555555555555555555555555555555555555555")
	return !new(uint256.Int).And(v, borrowMask).IsZero()
}

// IsEmpty reports whether the user touches no reserve at all.
func (c *UserConfig) IsEmpty() bool {
	return c.mask().IsZero()
}

// UserConfigStore user bitset persistence
type UserConfigStore interface {
	// FindOrCreate returns the user's config, creating the zero row
	FindOrCreate(ctx context.Context, tx *db.DB, userID string) (*UserConfig, error)
	Find(ctx context.Context, userID string) (*UserConfig, error)
	Update(ctx context.Context, tx *db.DB, config *UserConfig) error
	// ListBorrowers users with at least one borrow flag set
	ListBorrowers(ctx context.Context) ([]string, error)
}
