package config

import (
	"net/http"

	"fair_value/pkg/api/respond"
	coreConfig "fair_value/pkg/core/config"
)

// Bounds is an inclusive range in percent.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Response describes the effective, non-secret configuration and the
// accepted assumption ranges.
type Response struct {
	Defaults         respond.AssumptionParams `json:"defaults"`
	Bounds           map[string]Bounds        `json:"bounds"`
	WatchlistBackend string                   `json:"watchlist_backend"`
	ProviderBaseURL  string                   `json:"provider_base_url"`
	ProviderKeySet   bool                     `json:"provider_key_set"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	cfg *coreConfig.Config
}

// NewHandler creates a new config handler
func NewHandler(cfg *coreConfig.Config) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	backend := h.cfg.Watchlist.Backend
	if backend == "" {
		backend = "memory"
	}
	respond.JSON(w, http.StatusOK, Response{
		Defaults: respond.AssumptionParams{
			RequiredRate:       h.cfg.Assumptions.RequiredRate,
			PerpetualRate:      h.cfg.Assumptions.PerpetualRate,
			CashFlowGrowthRate: h.cfg.Assumptions.CashFlowGrowthRate,
		},
		Bounds: map[string]Bounds{
			"required_rate":         {respond.MinRequiredRate, respond.MaxRequiredRate},
			"perpetual_rate":        {respond.MinPerpetualRate, respond.MaxPerpetualRate},
			"cash_flow_growth_rate": {respond.MinCashFlowGrowthRate, respond.MaxCashFlowGrowthRate},
		},
		WatchlistBackend: backend,
		ProviderBaseURL:  h.cfg.Provider.BaseURL,
		ProviderKeySet:   h.cfg.Provider.APIKey != "",
	})
}
