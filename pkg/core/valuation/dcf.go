package valuation

import (
	"fmt"
	"math"
)

// ProjectionYears is the length of the explicit forecast window.
const ProjectionYears = 4

// ProjectedYear is one row of the explicit forecast.
type ProjectedYear struct {
	Year           int     `json:"year"`
	FreeCashFlow   float64 `json:"free_cash_flow"`
	DiscountFactor float64 `json:"discount_factor"` // (1 + r)^year
	PresentValue   float64 `json:"present_value"`
}

// Projection holds the full DCF schedule behind a fair value estimate.
type Projection struct {
	BaseCashFlow      float64         `json:"base_cash_flow"`
	Years             []ProjectedYear `json:"years"`
	PV_FCF            float64         `json:"pv_fcf"`
	TerminalValue     float64         `json:"terminal_value"`
	PV_Terminal       float64         `json:"pv_terminal"`
	TotalPresentValue float64         `json:"total_present_value"`
	SharesOutstanding float64         `json:"shares_outstanding"`
	FairValue         float64         `json:"fair_value"` // per share, rounded to cents
}

// Project runs the DCF model and returns the intermediate schedule.
//
// FORMULA:
//
//	FCF_y       = base × (1 + g_fcf)^y            y = 1..4
//	TV          = base × (1 + g) / (r - g)
//	total       = Σ FCF_y / (1 + r)^y + TV / (1 + r)^4
//	fair value  = round(total / shares, 2)
//
// base is the most recent observed free cash flow (last element of fcfHistory).
// The terminal value is seeded from base rather than the year-4 projection.
func Project(fcfHistory []float64, sharesOutstanding float64, a Assumptions) (Projection, error) {
	if len(fcfHistory) == 0 {
		return Projection{}, fmt.Errorf("%w: free cash flow history is empty", ErrInvalidInput)
	}
	if sharesOutstanding <= 0 {
		return Projection{}, fmt.Errorf("%w: shares outstanding must be positive, got %v", ErrInvalidInput, sharesOutstanding)
	}
	if err := a.Validate(); err != nil {
		return Projection{}, err
	}

	base := fcfHistory[len(fcfHistory)-1]

	p := Projection{
		BaseCashFlow:      base,
		Years:             make([]ProjectedYear, 0, ProjectionYears),
		SharesOutstanding: sharesOutstanding,
	}

	for year := 1; year <= ProjectionYears; year++ {
		fcf := base * math.Pow(1+a.CashFlowGrowthRate, float64(year))
		df := math.Pow(1+a.RequiredRate, float64(year))
		pv := fcf / df
		p.Years = append(p.Years, ProjectedYear{
			Year:           year,
			FreeCashFlow:   fcf,
			DiscountFactor: df,
			PresentValue:   pv,
		})
		p.PV_FCF += pv
	}

	p.TerminalValue = base * (1 + a.PerpetualGrowthRate) / (a.RequiredRate - a.PerpetualGrowthRate)
	p.PV_Terminal = p.TerminalValue / math.Pow(1+a.RequiredRate, ProjectionYears)

	p.TotalPresentValue = p.PV_FCF + p.PV_Terminal
	p.FairValue = roundCents(p.TotalPresentValue / sharesOutstanding)

	return p, nil
}

// Compute returns the fair value per share, rounded to 2 decimals.
func Compute(fcfHistory []float64, sharesOutstanding float64, a Assumptions) (float64, error) {
	p, err := Project(fcfHistory, sharesOutstanding, a)
	if err != nil {
		return 0, err
	}
	return p.FairValue, nil
}

// UpsidePercent is the percentage gap between fair value and price: (fair - price) / price × 100.
// Returns false when price is not positive.
func UpsidePercent(fairValue, price float64) (float64, bool) {
	if price <= 0 {
		return 0, false
	}
	return (fairValue - price) / price * 100, true
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
