// Package watchlist exposes the persistent ticker watchlist over HTTP.
package watchlist

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"fair_value/pkg/api/respond"
	"fair_value/pkg/core/store"
)

type Handler struct {
	store store.Watchlist
}

func NewHandler(s store.Watchlist) *Handler {
	return &Handler{store: s}
}

type AddRequest struct {
	Ticker string `json:"ticker" validate:"required"`
}

type ListResponse struct {
	Tickers []string `json:"tickers"`
}

// HandleList serves GET /api/watchlist.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.store.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, ListResponse{Tickers: tickers})
}

// HandleAdd serves POST /api/watchlist.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	ticker, err := store.NormalizeTicker(req.Ticker)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.store.Add(r.Context(), ticker); err != nil {
		respond.Error(w, r, err)
		return
	}
	log.Info().Str("ticker", ticker).Msg("added to watchlist")
	respond.JSON(w, http.StatusCreated, AddRequest{Ticker: ticker})
}

// HandleRemove serves DELETE /api/watchlist/{ticker}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(r.Context(), mux.Vars(r)["ticker"]); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
