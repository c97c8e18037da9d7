// Package signals exposes the signal classifier over HTTP.
package signals

import (
	"net/http"

	"fair_value/pkg/api/respond"
	"fair_value/pkg/core/metrics"
	coreSignals "fair_value/pkg/core/signals"
)

// RowInput is one metric to classify.
type RowInput struct {
	Metric string `json:"metric" validate:"required"`
	Value  any    `json:"value"`
}

// RowsRequest is the body of POST /api/signals/rows. CurrentPrice is the
// reference the dcf row is compared against.
type RowsRequest struct {
	CurrentPrice *float64   `json:"current_price"`
	Rows         []RowInput `json:"rows" validate:"required,dive"`
}

type RowsResponse struct {
	Rows []coreSignals.Row `json:"rows"`
}

// HandleRows classifies each row with the shared rule table.
func HandleRows(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	ref := metrics.New()
	if req.CurrentPrice != nil {
		ref.Set(metrics.CurrentPrice, *req.CurrentPrice)
	}

	out := make([]coreSignals.Row, 0, len(req.Rows))
	for _, in := range req.Rows {
		out = append(out, coreSignals.ClassifyRow(in.Metric, in.Value, ref))
	}
	respond.JSON(w, http.StatusOK, RowsResponse{Rows: out})
}

// HandleFindings builds findings from a metrics bag posted as a JSON object.
func HandleFindings(w http.ResponseWriter, r *http.Request) {
	var bag metrics.Bag
	if err := respond.DecodeJSON(r, &bag); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, coreSignals.BuildFindings(bag))
}
