// Package respond holds the JSON, error mapping and request validation helpers
// shared by the API handlers.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/store"
	"fair_value/pkg/core/valuation"
)

var validate = validator.New()

// ErrBadRequest marks malformed or out-of-range request input.
var ErrBadRequest = errors.New("bad request")

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// Error maps err to a status code and writes the error envelope.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	}
	JSON(w, status, ErrorBody{Error: err.Error(), RequestID: w.Header().Get("X-Request-ID")})
}

// StatusFor returns the HTTP status for an error.
func StatusFor(err error) int {
	var se *ingest.StatusError
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, valuation.ErrInvalidInput),
		errors.Is(err, valuation.ErrInvalidAssumptions),
		errors.Is(err, store.ErrEmptyTicker):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrTickerNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ingest.ErrProviderError), errors.Is(err, ingest.ErrMissingAPIKey), errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON body into the struct pointed to by v and validates it.
func Decode(r *http.Request, v any) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return Validate(v)
}

// DecodeJSON reads a JSON body into v without validation.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", ErrBadRequest, err)
	}
	return nil
}

// Validate runs struct tag validation.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// Slider bounds for user supplied assumptions, in percent.
const (
	MinRequiredRate       = 5.0
	MaxRequiredRate       = 12.0
	MinPerpetualRate      = 1.0
	MaxPerpetualRate      = 3.0
	MinCashFlowGrowthRate = 2.0
	MaxCashFlowGrowthRate = 10.0
)

// AssumptionParams are DCF assumptions as entered by a user, in percent.
type AssumptionParams struct {
	RequiredRate       float64 `json:"required_rate" validate:"gte=5,lte=12"`
	PerpetualRate      float64 `json:"perpetual_rate" validate:"gte=1,lte=3"`
	CashFlowGrowthRate float64 `json:"cash_flow_growth_rate" validate:"gte=2,lte=10"`
}

// ParamsFrom converts decimal assumptions back to percent.
func ParamsFrom(a valuation.Assumptions) AssumptionParams {
	pct := func(v float64) float64 { return math.Round(v*100*1e6) / 1e6 }
	return AssumptionParams{
		RequiredRate:       pct(a.RequiredRate),
		PerpetualRate:      pct(a.PerpetualGrowthRate),
		CashFlowGrowthRate: pct(a.CashFlowGrowthRate),
	}
}

// Assumptions validates p and converts it to decimal assumptions.
func (p AssumptionParams) Assumptions() (valuation.Assumptions, error) {
	if err := Validate(p); err != nil {
		return valuation.Assumptions{}, err
	}
	return valuation.FromPercent(p.RequiredRate, p.PerpetualRate, p.CashFlowGrowthRate), nil
}

// AssumptionsFromQuery reads required_rate, perpetual_rate and
// cash_flow_growth_rate (percent) from the query. Missing parameters fall
// back to defaults; with none given, defaults are returned unchanged.
func AssumptionsFromQuery(r *http.Request, defaults valuation.Assumptions) (valuation.Assumptions, error) {
	p := ParamsFrom(defaults)
	q := r.URL.Query()
	given := false
	for name, dst := range map[string]*float64{
		"required_rate":         &p.RequiredRate,
		"perpetual_rate":        &p.PerpetualRate,
		"cash_flow_growth_rate": &p.CashFlowGrowthRate,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return valuation.Assumptions{}, fmt.Errorf("%w: %s must be a number", ErrBadRequest, name)
		}
		*dst = v
		given = true
	}
	if !given {
		return defaults, nil
	}
	return p.Assumptions()
}
