package strategy

import (
	"context"

	"levee/core"
	"levee/pkg/raymath"

	"github.com/holiman/uint256"
)

type strategyService struct {
	rateOracle core.LendingRateOracle
}

// New new interest rate strategy backed by the per reserve curve
// parameters and the lending rate oracle for the stable base rate.
func New(rateOracle core.LendingRateOracle) core.InterestRateStrategy {
	return &strategyService{rateOracle: rateOracle}
}

func (s *strategyService) CalculateInterestRates(
	ctx context.Context,
	reserve *core.Reserve,
	availableLiquidity *uint256.Int,
	totalStableDebt *uint256.Int,
	totalVariableDebt *uint256.Int,
	avgStableRate *uint256.Int,
	reserveFactor uint64,
) (*core.InterestRates, error) {
	totalDebt := new(uint256.Int).Add(totalStableDebt, totalVariableDebt)

	utilization := uint256.NewInt(0)
	if !totalDebt.IsZero() {
		var err error
		utilization, err = raymath.DivRay(totalDebt, new(uint256.Int).Add(availableLiquidity, totalDebt))
		if err != nil {
			return nil, err
		}
	}

	baseStableRate, err := s.rateOracle.GetMarketBorrowRate(ctx, reserve.AssetID)
	if err != nil {
		return nil, err
	}

	optimal := mustRay(reserve.OptimalUtilization.String())
	baseVariable := mustRay(reserve.BaseVariableRate.String())
	varSlope1 := mustRay(reserve.VariableSlope1.String())
	varSlope2 := mustRay(reserve.VariableSlope2.String())
	stableSlope1 := mustRay(reserve.StableSlope1.String())
	stableSlope2 := mustRay(reserve.StableSlope2.String())

	variable := new(uint256.Int).Set(baseVariable)
	stable := new(uint256.Int).Set(baseStableRate)

	if optimal.IsZero() || utilization.Cmp(optimal) <= 0 {
		// first regime: both slopes scale with utilization/optimal
		ratio := uint256.NewInt(0)
		if !optimal.IsZero() {
			ratio, err = raymath.DivRay(utilization, optimal)
			if err != nil {
				return nil, err
			}
		}

		v, err := raymath.MulRay(varSlope1, ratio)
		if err != nil {
			return nil, err
		}
		variable.Add(variable, v)

		sv, err := raymath.MulRay(stableSlope1, ratio)
		if err != nil {
			return nil, err
		}
		stable.Add(stable, sv)
	} else {
		// second regime: slope1 in full plus slope2 over the excess
		excess := new(uint256.Int).Sub(utilization, optimal)
		span := new(uint256.Int).Sub(raymath.Ray, optimal)
		excessRatio, err := raymath.DivRay(excess, span)
		if err != nil {
			return nil, err
		}

		v, err := raymath.MulRay(varSlope2, excessRatio)
		if err != nil {
			return nil, err
		}
		variable.Add(variable, varSlope1)
		variable.Add(variable, v)

		sv, err := raymath.MulRay(stableSlope2, excessRatio)
		if err != nil {
			return nil, err
		}
		stable.Add(stable, stableSlope1)
		stable.Add(stable, sv)
	}

	liquidity, err := overallBorrowRate(totalStableDebt, totalVariableDebt, variable, avgStableRate)
	if err != nil {
		return nil, err
	}
	liquidity, err = raymath.MulRay(liquidity, utilization)
	if err != nil {
		return nil, err
	}
	liquidity, err = raymath.PercentMul(liquidity, 10000-reserveFactor)
	if err != nil {
		return nil, err
	}

	return &core.InterestRates{
		LiquidityRate:      liquidity,
		StableBorrowRate:   stable,
		VariableBorrowRate: variable,
	}, nil
}

// MaxVariableBorrowRate the variable rate at full utilization.
func (s *strategyService) MaxVariableBorrowRate(reserve *core.Reserve) *uint256.Int {
	v := mustRay(reserve.BaseVariableRate.String())
	v.Add(v, mustRay(reserve.VariableSlope1.String()))
	v.Add(v, mustRay(reserve.VariableSlope2.String()))
	return v
}

// overallBorrowRate the debt weighted average of the stable and
// variable legs; lenders earn this prorated by utilization.
func overallBorrowRate(totalStableDebt, totalVariableDebt, variableRate, avgStableRate *uint256.Int) (*uint256.Int, error) {
	totalDebt := new(uint256.Int).Add(totalStableDebt, totalVariableDebt)
	if totalDebt.IsZero() {
		return uint256.NewInt(0), nil
	}

	stableLeg, err := raymath.MulRay(totalStableDebt, avgStableRate)
	if err != nil {
		return nil, err
	}
	variableLeg, err := raymath.MulRay(totalVariableDebt, variableRate)
	if err != nil {
		return nil, err
	}

	return raymath.DivRay(new(uint256.Int).Add(stableLeg, variableLeg), totalDebt)
}

func mustRay(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return uint256.NewInt(0)
	}
	return v
}
