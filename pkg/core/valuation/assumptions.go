package valuation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for an empty cash flow history or a non-positive share count.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidAssumptions is returned when the required rate does not exceed the perpetual growth rate.
	ErrInvalidAssumptions = errors.New("invalid assumptions")
)

// Assumptions holds the rates driving a DCF valuation, expressed as decimals (0.07 = 7%).
type Assumptions struct {
	RequiredRate        float64 `json:"required_rate" yaml:"required_rate"`               // r: discount rate / hurdle rate
	PerpetualGrowthRate float64 `json:"perpetual_growth_rate" yaml:"perpetual_growth_rate"` // g: growth after the projection window
	CashFlowGrowthRate  float64 `json:"cash_flow_growth_rate" yaml:"cash_flow_growth_rate"` // growth during the projection window
}

// DefaultAssumptions returns 7% required rate, 2% perpetual growth and 3% cash flow growth.
func DefaultAssumptions() Assumptions {
	return FromPercent(7, 2, 3)
}

// FromPercent builds Assumptions from whole-percent inputs (7 -> 0.07).
func FromPercent(requiredRate, perpetualRate, cashFlowGrowthRate float64) Assumptions {
	return Assumptions{
		RequiredRate:        requiredRate / 100,
		PerpetualGrowthRate: perpetualRate / 100,
		CashFlowGrowthRate:  cashFlowGrowthRate / 100,
	}
}

// Validate checks that the Gordon growth denominator (r - g) is positive.
// Domain ranges are not checked here.
func (a Assumptions) Validate() error {
	if a.RequiredRate <= a.PerpetualGrowthRate {
		return fmt.Errorf("%w: required rate %.4f must exceed perpetual growth rate %.4f",
			ErrInvalidAssumptions, a.RequiredRate, a.PerpetualGrowthRate)
	}
	return nil
}
