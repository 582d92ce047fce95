package server

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/service"
)

// stubChartProvider implements ChartProvider with canned data, delegating
// subscriptions to a real dispatcher so WebSocket tests exercise the full
// fan-out path.
type stubChartProvider struct {
	candles    []model.Candle
	candlesErr error
	statuses   []service.TokenStatus
	statusErr  error
	dispatcher *service.Dispatcher
}

func (p *stubChartProvider) CandlesFor(symbol, period string) ([]model.Candle, error) {
	if p.candlesErr != nil {
		return nil, p.candlesErr
	}
	return p.candles, nil
}

func (p *stubChartProvider) TokenInfo() ([]service.TokenStatus, error) {
	if p.statusErr != nil {
		return nil, p.statusErr
	}
	return p.statuses, nil
}

func (p *stubChartProvider) Subscribe(symbols []string) (*service.Subscriber, error) {
	return p.dispatcher.Subscribe(symbols)
}

func (p *stubChartProvider) Unsubscribe(sub *service.Subscriber) error {
	return p.dispatcher.Unsubscribe(sub)
}

// newTestServer wires a Server around the stub provider with a live dispatcher
func newTestServer(t *testing.T, provider *stubChartProvider) (*Server, chan model.CandleUpdate) {
	t.Helper()

	updateCh := make(chan model.CandleUpdate, 10)
	provider.dispatcher = service.NewDispatcher(service.DispatcherConfig{MaxSymbolsAllowed: 10})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, provider.dispatcher.StartDispatching(ctx, updateCh))

	return NewServer(Config{}, provider), updateCh
}

// Test_HandleHealth tests the health-check endpoint
func Test_HandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubChartProvider{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

// Test_HandleCandles tests the chart endpoint
func Test_HandleCandles(t *testing.T) {
	chart := []model.Candle{
		{Time: 1700000100, Open: decimal.NewFromInt(1), High: decimal.NewFromInt(2),
			Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(2)},
	}

	tests := []struct {
		name         string
		target       string
		provider     *stubChartProvider
		expectedCode int
		description  string
	}{
		{
			name:         "Valid request",
			target:       "/api/candles?symbol=PLS&period=5m",
			provider:     &stubChartProvider{candles: chart},
			expectedCode: http.StatusOK,
			description:  "Should serve the chart with 200",
		},
		{
			name:         "Missing symbol",
			target:       "/api/candles?period=5m",
			provider:     &stubChartProvider{},
			expectedCode: http.StatusBadRequest,
			description:  "Should reject request without symbol",
		},
		{
			name:         "Missing period",
			target:       "/api/candles?symbol=PLS",
			provider:     &stubChartProvider{},
			expectedCode: http.StatusBadRequest,
			description:  "Should reject request without period",
		},
		{
			name:         "Unknown symbol",
			target:       "/api/candles?symbol=NOPE&period=5m",
			provider:     &stubChartProvider{candlesErr: fmt.Errorf("%w: NOPE", service.ErrUnknownSymbol)},
			expectedCode: http.StatusNotFound,
			description:  "Should map unknown symbols to 404",
		},
		{
			name:         "Service not started",
			target:       "/api/candles?symbol=PLS&period=5m",
			provider:     &stubChartProvider{candlesErr: service.ErrNotStarted},
			expectedCode: http.StatusServiceUnavailable,
			description:  "Should map a stopped service to 503",
		},
		{
			name:         "Unsupported period",
			target:       "/api/candles?symbol=PLS&period=3m",
			provider:     &stubChartProvider{candlesErr: fmt.Errorf("unsupported period %q", "3m")},
			expectedCode: http.StatusBadRequest,
			description:  "Should map validation errors to 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.provider)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.expectedCode, rec.Code, tt.description)

			if tt.expectedCode == http.StatusOK {
				var resp chartResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "PLS", resp.Symbol)
				assert.Equal(t, "5m", resp.Period)
				require.Len(t, resp.Candles, 1)
				assert.True(t, resp.Candles[0].Close.Equal(decimal.NewFromInt(2)))
			}
		})
	}

	t.Run("Empty chart serializes as empty array", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubChartProvider{candles: nil})

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/candles?symbol=PLS&period=5m", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"candles":[]`)
	})
}

// Test_HandleTokens tests the token listing endpoint
func Test_HandleTokens(t *testing.T) {
	statuses := []service.TokenStatus{
		{
			Token: model.Token{Symbol: "PLS", Name: "PulseChain", Decimals: 18, IsNative: true},
			State: &model.TokenPoolState{
				PoolAmount: big.NewInt(1000),
				MinPrice:   big.NewInt(42),
				MaxPrice:   big.NewInt(43),
			},
		},
		{
			Token: model.Token{Symbol: "USDC", Name: "USD Coin", Decimals: 6, IsStable: true},
		},
	}

	srv, _ := newTestServer(t, &stubChartProvider{statuses: statuses})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tokens []tokenResponse `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tokens, 2)

	assert.Equal(t, "PLS", resp.Tokens[0].Symbol)
	require.NotNil(t, resp.Tokens[0].State, "Snapshotted token should carry state")
	assert.Equal(t, "1000", resp.Tokens[0].State.PoolAmount, "Amounts should be decimal strings")
	assert.Equal(t, "42", resp.Tokens[0].State.MinPrice)
	assert.Equal(t, "0", resp.Tokens[0].State.ReservedAmount, "Missing amounts should render as zero")

	assert.Nil(t, resp.Tokens[1].State, "Token without snapshot should omit state")

	t.Run("Service not started", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubChartProvider{statusErr: service.ErrNotStarted})

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

// Test_HandleWS tests the live update stream end to end
func Test_HandleWS(t *testing.T) {
	srv, updateCh := newTestServer(t, &stubChartProvider{})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	t.Run("Missing symbols parameter", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws", nil)
		assert.Error(t, err, "Handshake should fail without symbols")
		if resp != nil {
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		}
		if conn != nil {
			conn.Close()
		}
	})

	t.Run("Streams candle updates", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?symbols=PLS,HEX", nil)
		require.NoError(t, err)
		defer conn.Close()

		update := model.CandleUpdate{
			Symbol: "PLS",
			Period: "5m",
			Candle: model.Candle{
				Time:  1700000100,
				Open:  decimal.NewFromInt(1),
				High:  decimal.NewFromInt(3),
				Low:   decimal.NewFromInt(1),
				Close: decimal.NewFromInt(2),
			},
		}

		// Re-send until the dispatcher has registered the client; the first
		// updates may arrive before registration and be dropped.
		stop := make(chan struct{})
		go func() {
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					updateCh <- update
				}
			}
		}()

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, frame, err := conn.ReadMessage()
		close(stop)
		require.NoError(t, err, "Client should receive the update")

		var envelope wsEnvelope
		require.NoError(t, json.Unmarshal(frame, &envelope))
		assert.Equal(t, "candle", envelope.Type)
		assert.Equal(t, "PLS", envelope.Payload.Symbol)
		assert.True(t, envelope.Payload.Candle.Close.Equal(decimal.NewFromInt(2)))
	})

	t.Run("Updates for other symbols are filtered", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?symbols=HEX", nil)
		require.NoError(t, err)
		defer conn.Close()

		updateCh <- model.CandleUpdate{Symbol: "PLSX", Period: "5m"}

		conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		_, _, err = conn.ReadMessage()
		assert.Error(t, err, "No frame should arrive for unsubscribed symbols")
	})
}
