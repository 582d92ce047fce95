package server

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/service"
)

// chartResponse is the payload of GET /api/candles.
type chartResponse struct {
	Symbol  string         `json:"symbol"`
	Period  string         `json:"period"`
	Candles []model.Candle `json:"candles"`
}

// tokenResponse is one entry of GET /api/tokens. Pool amounts are emitted as
// decimal strings since they exceed the safe integer range of JSON numbers.
type tokenResponse struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Decimals    int    `json:"decimals"`
	IsStable    bool   `json:"isStable"`
	IsWrapped   bool   `json:"isWrapped"`
	IsNative    bool   `json:"isNative"`
	IsShortable bool   `json:"isShortable"`

	State *tokenStateResponse `json:"state,omitempty"`
}

// tokenStateResponse mirrors the pool state fields the front end consumes.
type tokenStateResponse struct {
	PoolAmount        string `json:"poolAmount"`
	ReservedAmount    string `json:"reservedAmount"`
	AvailableAmount   string `json:"availableAmount"`
	AvailableUsd      string `json:"availableUsd"`
	ManagedUsd        string `json:"managedUsd"`
	UsdphAmount       string `json:"usdphAmount"`
	MaxUsdphAmount    string `json:"maxUsdphAmount"`
	TargetUsdphAmount string `json:"targetUsdphAmount"`
	Weight            string `json:"weight"`
	BufferAmount      string `json:"bufferAmount"`
	GuaranteedUsd     string `json:"guaranteedUsd"`
	GlobalShortSize   string `json:"globalShortSize"`
	RedemptionAmount  string `json:"redemptionAmount"`
	MinPrice          string `json:"minPrice"`
	MaxPrice          string `json:"maxPrice"`
}

// writeJSON marshals v and writes it with the given HTTP status code. If
// marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth responds with a simple JSON status indicating the server is alive.
// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCandles serves the gap-free candle chart for one symbol.
// GET /api/candles?symbol=PLS&period=5m
func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	period := q.Get("period")

	if symbol == "" || period == "" {
		writeError(w, http.StatusBadRequest, "symbol and period query parameters are required")
		return
	}

	candles, err := s.charts.CandlesFor(symbol, period)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownSymbol):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if candles == nil {
		candles = []model.Candle{}
	}

	writeJSON(w, http.StatusOK, chartResponse{
		Symbol:  symbol,
		Period:  period,
		Candles: candles,
	})
}

// handleTokens serves the whitelisted tokens with their latest pool state.
// GET /api/tokens
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.charts.TokenInfo()
	if err != nil {
		if errors.Is(err, service.ErrNotStarted) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tokens := make([]tokenResponse, 0, len(statuses))
	for _, st := range statuses {
		tokens = append(tokens, toTokenResponse(st))
	}

	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// toTokenResponse converts a token status into its wire representation.
func toTokenResponse(st service.TokenStatus) tokenResponse {
	resp := tokenResponse{
		Symbol:      st.Token.Symbol,
		Name:        st.Token.Name,
		Address:     st.Token.Address,
		Decimals:    st.Token.Decimals,
		IsStable:    st.Token.IsStable,
		IsWrapped:   st.Token.IsWrapped,
		IsNative:    st.Token.IsNative,
		IsShortable: st.Token.IsShortable,
	}

	if st.State != nil {
		resp.State = &tokenStateResponse{
			PoolAmount:        bigStr(st.State.PoolAmount),
			ReservedAmount:    bigStr(st.State.ReservedAmount),
			AvailableAmount:   bigStr(st.State.AvailableAmount),
			AvailableUsd:      bigStr(st.State.AvailableUsd),
			ManagedUsd:        bigStr(st.State.ManagedUsd),
			UsdphAmount:       bigStr(st.State.UsdphAmount),
			MaxUsdphAmount:    bigStr(st.State.MaxUsdphAmount),
			TargetUsdphAmount: bigStr(st.State.TargetUsdphAmount),
			Weight:            bigStr(st.State.Weight),
			BufferAmount:      bigStr(st.State.BufferAmount),
			GuaranteedUsd:     bigStr(st.State.GuaranteedUsd),
			GlobalShortSize:   bigStr(st.State.GlobalShortSize),
			RedemptionAmount:  bigStr(st.State.RedemptionAmount),
			MinPrice:          bigStr(st.State.MinPrice),
			MaxPrice:          bigStr(st.State.MaxPrice),
		}
	}

	return resp
}

// bigStr renders a pool amount as a decimal string, treating nil as zero.
func bigStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
