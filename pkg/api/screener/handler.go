// Package screener exposes the technical screener over HTTP.
package screener

import (
	"context"
	"net/http"
	"strings"

	"fair_value/pkg/api/respond"
	coreScreener "fair_value/pkg/core/screener"
)

// Screener is the part of screener.Screener the handler uses.
type Screener interface {
	Screen(ctx context.Context, symbols []string) []coreScreener.Result
}

type Handler struct {
	screener Screener
}

func NewHandler(s Screener) *Handler {
	return &Handler{screener: s}
}

type Response struct {
	Results []coreScreener.Result `json:"results"`
}

// HandleScreen serves GET /api/screener?symbols=A,B. Without symbols the
// default list is screened.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	for _, s := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	respond.JSON(w, http.StatusOK, Response{Results: h.screener.Screen(r.Context(), symbols)})
}
