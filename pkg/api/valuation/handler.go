package valuation

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"fair_value/pkg/api/respond"
	"fair_value/pkg/core/report"
	"fair_value/pkg/core/store"
	coreValuation "fair_value/pkg/core/valuation"
)

// ReportBuilder is the part of report.Builder the handlers use.
type ReportBuilder interface {
	Build(ctx context.Context, ticker string, a coreValuation.Assumptions) (*report.Report, error)
	Portfolio(ctx context.Context, tickers []string, a coreValuation.Assumptions) []report.PortfolioRow
}

// Handler serves valuation reports, ad-hoc DCF and the watchlist portfolio.
type Handler struct {
	builder   ReportBuilder
	watchlist store.Watchlist
	defaults  coreValuation.Assumptions
}

// NewHandler creates a valuation handler.
func NewHandler(builder ReportBuilder, watchlist store.Watchlist, defaults coreValuation.Assumptions) *Handler {
	return &Handler{builder: builder, watchlist: watchlist, defaults: defaults}
}

// DCFRequest is the body of POST /api/valuation/dcf. Rates are in percent;
// zero rates take the server defaults.
type DCFRequest struct {
	FCFHistory        []float64 `json:"fcf_history" validate:"required,min=1"`
	SharesOutstanding float64   `json:"shares_outstanding" validate:"gt=0"`
	RequiredRate      float64   `json:"required_rate" validate:"omitempty,gte=5,lte=12"`
	PerpetualRate     float64   `json:"perpetual_rate" validate:"omitempty,gte=1,lte=3"`
	CashFlowGrowth    float64   `json:"cash_flow_growth_rate" validate:"omitempty,gte=2,lte=10"`
}

// DCFResponse carries the fair value and its schedule.
type DCFResponse struct {
	FairValue   float64                   `json:"fair_value"`
	Assumptions coreValuation.Assumptions `json:"assumptions"`
	Projection  coreValuation.Projection  `json:"projection"`
}

// PortfolioResponse lists the watchlist priced against DCF values.
type PortfolioResponse struct {
	Assumptions coreValuation.Assumptions `json:"assumptions"`
	Rows        []report.PortfolioRow     `json:"rows"`
}

// HandleReport serves GET /api/valuation/{ticker}.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	a, err := respond.AssumptionsFromQuery(r, h.defaults)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	rep, err := h.builder.Build(r.Context(), ticker, a)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	log.Info().Str("ticker", rep.Ticker).Str("verdict", string(rep.Verdict)).Msg("valuation report built")
	respond.JSON(w, http.StatusOK, rep)
}

// HandleDCF serves POST /api/valuation/dcf.
func (h *Handler) HandleDCF(w http.ResponseWriter, r *http.Request) {
	var req DCFRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	a := h.defaults
	if req.RequiredRate != 0 {
		a.RequiredRate = req.RequiredRate / 100
	}
	if req.PerpetualRate != 0 {
		a.PerpetualGrowthRate = req.PerpetualRate / 100
	}
	if req.CashFlowGrowth != 0 {
		a.CashFlowGrowthRate = req.CashFlowGrowth / 100
	}

	proj, err := coreValuation.Project(req.FCFHistory, req.SharesOutstanding, a)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, DCFResponse{FairValue: proj.FairValue, Assumptions: a, Projection: proj})
}

// HandlePortfolio serves GET /api/portfolio.
func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	a, err := respond.AssumptionsFromQuery(r, h.defaults)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	tickers, err := h.watchlist.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	rows := h.builder.Portfolio(r.Context(), tickers, a)
	if rows == nil {
		rows = []report.PortfolioRow{}
	}
	respond.JSON(w, http.StatusOK, PortfolioResponse{Assumptions: a, Rows: rows})
}
