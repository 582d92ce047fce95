// Live tick streaming from the indexer's WebSocket endpoint.
//
// The stream connector complements the paged REST backfill in client.go:
// backfill establishes history, the stream keeps charts current. Frames
// carry one tick each and are validated before being pushed downstream.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/utils"
	"github.com/nevermind0825/phamous-sub000/internal/websocket"
)

// defaultStreamConfig provides default configuration values for the tick stream.
var defaultStreamConfig = StreamConfig{
	BaseURL:    "wss://price.phamous.io",
	MaxSymbols: 20,
}

// StreamConfig defines settings for the live tick stream.
type StreamConfig struct {
	// BaseURL is the WebSocket endpoint URL of the indexer.
	BaseURL string

	// MaxSymbols is the maximum number of symbols per subscription.
	MaxSymbols int
}

// TickStream subscribes to the indexer's live price feed and converts raw
// frames into symbol-tagged ticks.
type TickStream struct {
	config   StreamConfig
	validate *validator.Validate
}

// subscribeMsg is the subscription request sent after connecting.
type subscribeMsg struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// tickFrame is the wire format of one live price update.
//
// Example frame:
//
//	{
//		"symbol": "PLS",
//		"timestamp": 1700000000123,
//		"price": "0.0000421"
//	}
//
// Timestamps arrive in Unix milliseconds; prices as strings to preserve
// precision.
type tickFrame struct {
	Symbol string `json:"symbol" validate:"required"`
	Time   int64  `json:"timestamp" validate:"required,gt=0"`
	Price  string `json:"price" validate:"required,numeric"`
}

// NewTickStream creates a live tick stream connector with the specified
// configuration. A nil configuration selects the defaults.
func NewTickStream(cfg *StreamConfig) (*TickStream, error) {
	if cfg == nil {
		cfg = &defaultStreamConfig
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultStreamConfig.BaseURL
	}
	if cfg.MaxSymbols <= 0 {
		cfg.MaxSymbols = defaultStreamConfig.MaxSymbols
	}

	return &TickStream{
		config:   *cfg,
		validate: validator.New(),
	}, nil
}

// SubscribeToTicks establishes a WebSocket connection to the indexer and
// subscribes to live price updates for the specified symbols.
//
// The returned channel delivers symbol-tagged ticks with timestamps
// normalized to Unix seconds. It is closed when the connection is lost;
// reconnecting is the caller's responsibility.
func (ts *TickStream) SubscribeToTicks(ctx context.Context, symbols []string) (<-chan model.SymbolTick, error) {
	if err := utils.ValidateSymbols(symbols, ts.config.MaxSymbols); err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		normalized = append(normalized, strings.ToUpper(s))
	}

	sub, err := json.Marshal(subscribeMsg{Op: "subscribe", Symbols: normalized})
	if err != nil {
		return nil, fmt.Errorf("failed to encode subscription: %w", err)
	}

	client, err := websocket.NewClient(ctx, websocket.Config{
		Endpoint:             ts.config.BaseURL + "/ws",
		Handler:              ts.handleTickFrame,
		SubscriptionMessages: [][]byte{sub},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create indexer WebSocket client")
		return nil, err
	}

	return client.TickChan, nil
}

// handleTickFrame processes one raw WebSocket frame and pushes the parsed
// tick downstream.
func (ts *TickStream) handleTickFrame(raw []byte, tickChan chan<- model.SymbolTick) error {
	var frame tickFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Error().Err(err).Msg("invalid tick frame JSON")
		return err
	}

	if err := ts.validate.Struct(&frame); err != nil {
		log.Warn().Err(err).Interface("frame", frame).Msg("tick frame validation failed")
		return err
	}

	price, err := decimal.NewFromString(frame.Price)
	if err != nil {
		log.Error().Err(err).Msg("invalid tick price")
		return err
	}

	tickChan <- model.SymbolTick{
		Symbol: strings.ToUpper(frame.Symbol),
		Tick: model.PriceTick{
			Time:  time.UnixMilli(frame.Time).Unix(),
			Price: price,
		},
	}

	return nil
}
