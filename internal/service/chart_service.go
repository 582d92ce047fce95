// Package service provides core business logic components for the exchange
// front-end core.
//
// The ChartService acts as the main orchestrator: it backfills price history
// from the indexer, folds live ticks into per-symbol chart builders, polls the
// chain for pool state, and fans candle updates out to subscribers.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/nevermind0825/phamous-sub000/internal/candles"
	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/utils"
	"github.com/nevermind0825/phamous-sub000/internal/vault"
)

// Error definitions for the chart service
var (
	ErrNotStarted    = errors.New("chart service not started")
	ErrUnknownSymbol = errors.New("symbol not tracked")
)

// defaultChartConfig provides default configuration values for the chart service.
var defaultChartConfig = ChartConfig{
	BasePeriod:        "5m",
	PollInterval:      15 * time.Second,
	MaxTicksPerSymbol: 100_000,
	MaxSymbols:        20,
}

// ChartConfig holds configuration parameters for the ChartService.
type ChartConfig struct {
	// BasePeriod is the period name used for indexer backfill queries and
	// for live candle updates pushed to subscribers.
	BasePeriod string

	// PollInterval is how often the on-chain pool state is refreshed.
	PollInterval time.Duration

	// MaxTicksPerSymbol bounds the tick history retained per symbol.
	MaxTicksPerSymbol int

	// MaxSymbols is the maximum number of symbols the service will track.
	MaxSymbols int
}

// TickBackfiller defines the interface for fetching historical price ticks.
type TickBackfiller interface {
	// FetchTicks returns the recorded tick history for one symbol.
	FetchTicks(ctx context.Context, symbol, period string) ([]model.PriceTick, error)
}

// TickStreamer defines the interface for live price subscriptions.
type TickStreamer interface {
	// SubscribeToTicks opens a live tick feed for the specified symbols.
	SubscribeToTicks(ctx context.Context, symbols []string) (<-chan model.SymbolTick, error)
}

// PoolStateFetcher defines the interface for reading on-chain vault state.
type PoolStateFetcher interface {
	// Tokens returns the whitelisted tokens of the configured chain.
	Tokens() []model.Token

	// FetchPoolState returns the decoded per-token pool state keyed by symbol.
	FetchPoolState(ctx context.Context) (map[string]*model.TokenPoolState, error)
}

// SubscriptionManager defines the interface for managing client subscriptions
// and distributing chart updates to multiple subscribers.
type SubscriptionManager interface {
	// Subscribe creates a new subscription for the specified symbols.
	Subscribe(symbols []string) (*Subscriber, error)

	// Unsubscribe removes a subscriber and cleans up associated resources.
	Unsubscribe(sub *Subscriber) error

	// StartDispatching begins the message distribution process.
	StartDispatching(ctx context.Context, ch <-chan model.CandleUpdate) error
}

// TokenStatus pairs a whitelisted token with its latest pool state.
// State is nil until the first successful chain snapshot.
type TokenStatus struct {
	Token model.Token
	State *model.TokenPoolState
}

// ChartService orchestrates the chart data pipeline.
//
// The service coordinates between:
//   - TickBackfiller: seeds per-symbol tick history from the indexer
//   - TickStreamer: folds live ticks into the chart builders
//   - PoolStateFetcher: keeps on-chain pool state current
//   - SubscriptionManager: fans candle updates out to clients
type ChartService struct {
	cfg        ChartConfig
	backfiller TickBackfiller
	streamer   TickStreamer
	snapshots  PoolStateFetcher
	manager    SubscriptionManager

	started atomic.Bool
	cancel  context.CancelFunc

	// updateCh carries live candle updates into the dispatcher.
	updateCh chan model.CandleUpdate

	// mu guards builders. Builders are appended to by the tick loop and
	// read by chart queries.
	mu       sync.RWMutex
	builders map[string]*candles.ChartBuilder

	// stateMu guards poolState, written by the poll loop.
	stateMu   sync.RWMutex
	poolState map[string]*model.TokenPoolState
}

// NewChartService creates a new ChartService instance with the provided
// dependencies. Zero-valued configuration fields fall back to defaults.
//
// The service is created in a stopped state and must be started with the
// Start method before it can serve charts.
func NewChartService(cfg ChartConfig, backfiller TickBackfiller, streamer TickStreamer,
	snapshots PoolStateFetcher, manager SubscriptionManager) *ChartService {

	if cfg.BasePeriod == "" {
		cfg.BasePeriod = defaultChartConfig.BasePeriod
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultChartConfig.PollInterval
	}
	if cfg.MaxTicksPerSymbol <= 0 {
		cfg.MaxTicksPerSymbol = defaultChartConfig.MaxTicksPerSymbol
	}
	if cfg.MaxSymbols <= 0 {
		cfg.MaxSymbols = defaultChartConfig.MaxSymbols
	}

	return &ChartService{
		cfg:        cfg,
		backfiller: backfiller,
		streamer:   streamer,
		snapshots:  snapshots,
		manager:    manager,
		updateCh:   make(chan model.CandleUpdate, 1000),
		builders:   make(map[string]*candles.ChartBuilder),
		poolState:  make(map[string]*model.TokenPoolState),
	}
}

// Start backfills history for the specified symbols, subscribes to the live
// feed, begins pool state polling and starts the dispatcher.
func (cs *ChartService) Start(ctx context.Context, symbols []string) error {
	if !cs.started.CompareAndSwap(false, true) {
		return errors.New("chart service has already started")
	}

	if err := utils.ValidateSymbols(symbols, cs.cfg.MaxSymbols); err != nil {
		cs.started.Store(false)
		return err
	}

	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		normalized = append(normalized, strings.ToUpper(s))
	}

	ctx, cancel := context.WithCancel(ctx)

	// Seed every symbol's builder from the indexer before going live.
	for _, symbol := range normalized {
		ticks, err := cs.backfiller.FetchTicks(ctx, symbol, cs.cfg.BasePeriod)
		if err != nil {
			cancel()
			cs.started.Store(false)
			return fmt.Errorf("failed to backfill %s: %w", symbol, err)
		}

		builder := candles.NewChartBuilder(cs.cfg.MaxTicksPerSymbol)
		builder.Seed(ticks)
		cs.builders[symbol] = builder

		log.Info().Str("symbol", symbol).Int("ticks", builder.TickCount()).Msg("backfilled symbol")
	}

	// First snapshot is best-effort: charts work without pool state.
	cs.refreshPoolState(ctx)

	tickCh, err := cs.streamer.SubscribeToTicks(ctx, normalized)
	if err != nil {
		cancel()
		cs.started.Store(false)
		return fmt.Errorf("failed to subscribe to live feed: %w", err)
	}

	if err := cs.manager.StartDispatching(ctx, cs.updateCh); err != nil {
		cancel()
		cs.started.Store(false)
		return fmt.Errorf("failed to start dispatching: %w", err)
	}

	go cs.tickLoop(ctx, tickCh)
	go cs.pollLoop(ctx)

	cs.cancel = cancel
	return nil
}

// Stop gracefully shuts down the chart service.
func (cs *ChartService) Stop() error {
	if !cs.started.CompareAndSwap(true, false) {
		return errors.New("service not started")
	}

	if cs.cancel != nil {
		cs.cancel()
		cs.cancel = nil
	}

	log.Info().Msg("ChartService stopped")
	return nil
}

// Subscribe creates a client subscription for the specified symbols.
func (cs *ChartService) Subscribe(symbols []string) (*Subscriber, error) {
	if !cs.started.Load() {
		return nil, ErrNotStarted
	}

	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		normalized = append(normalized, strings.ToUpper(s))
	}

	sub, err := cs.manager.Subscribe(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

// Unsubscribe removes a client subscription.
func (cs *ChartService) Unsubscribe(sub *Subscriber) error {
	return cs.manager.Unsubscribe(sub)
}

// CandlesFor returns the gap-free candle chart for one symbol at the named
// period, with the live on-chain average price folded into the current bucket
// when a pool snapshot is available.
func (cs *ChartService) CandlesFor(symbol, period string) ([]model.Candle, error) {
	if !cs.started.Load() {
		return nil, ErrNotStarted
	}

	periodSec, err := utils.ValidatePeriod(period)
	if err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(symbol)

	cs.mu.RLock()
	builder, ok := cs.builders[symbol]
	if !ok {
		cs.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	chart := builder.Candles(periodSec, cs.currentAverage(symbol), time.Now().Unix())
	cs.mu.RUnlock()

	return chart, nil
}

// TokenInfo returns the whitelisted tokens with their latest pool state.
func (cs *ChartService) TokenInfo() ([]TokenStatus, error) {
	if !cs.started.Load() {
		return nil, ErrNotStarted
	}

	cs.stateMu.RLock()
	defer cs.stateMu.RUnlock()

	tokens := cs.snapshots.Tokens()
	statuses := make([]TokenStatus, 0, len(tokens))
	for _, token := range tokens {
		statuses = append(statuses, TokenStatus{
			Token: token,
			State: cs.poolState[token.Symbol],
		})
	}
	return statuses, nil
}

// tickLoop folds live ticks into the chart builders and pushes the refreshed
// current candle to subscribers.
func (cs *ChartService) tickLoop(ctx context.Context, tickCh <-chan model.SymbolTick) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-tickCh:
			if !ok {
				log.Warn().Msg("live tick feed closed")
				return
			}
			cs.handleTick(tick)
		}
	}
}

// handleTick appends one live tick and emits the refreshed current candle.
func (cs *ChartService) handleTick(tick model.SymbolTick) {
	cs.mu.Lock()
	builder, ok := cs.builders[tick.Symbol]
	if !ok {
		cs.mu.Unlock()
		log.Debug().Str("symbol", tick.Symbol).Msg("tick for untracked symbol dropped")
		return
	}

	builder.Append(tick.Tick)

	periodSec, _ := model.PeriodSeconds(cs.cfg.BasePeriod)
	chart := builder.Candles(periodSec, cs.currentAverage(tick.Symbol), time.Now().Unix())
	cs.mu.Unlock()

	if len(chart) == 0 {
		return
	}

	update := model.CandleUpdate{
		Symbol: tick.Symbol,
		Period: cs.cfg.BasePeriod,
		Candle: chart[len(chart)-1],
	}

	select {
	case cs.updateCh <- update:
	default:
		log.Warn().Str("symbol", tick.Symbol).Msg("update channel full, dropping candle update")
	}
}

// pollLoop refreshes the on-chain pool state at the configured interval.
func (cs *ChartService) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(cs.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.refreshPoolState(ctx)
		}
	}
}

// refreshPoolState fetches and stores the latest chain snapshot. Failures
// are logged and the previous state is kept.
func (cs *ChartService) refreshPoolState(ctx context.Context) {
	state, err := cs.snapshots.FetchPoolState(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh pool state")
		return
	}

	cs.stateMu.Lock()
	cs.poolState = state
	cs.stateMu.Unlock()

	log.Debug().Int("tokens", len(state)).Msg("pool state refreshed")
}

// currentAverage derives the mid price of a token from its latest pool state,
// converting from the 30-decimal on-chain representation. Returns zero when
// no usable snapshot exists, which suppresses the live chart overlay.
func (cs *ChartService) currentAverage(symbol string) decimal.Decimal {
	cs.stateMu.RLock()
	defer cs.stateMu.RUnlock()

	st, ok := cs.poolState[symbol]
	if !ok || st.MinPrice == nil || st.MaxPrice == nil {
		return decimal.Zero
	}

	sum := new(big.Int).Add(st.MinPrice, st.MaxPrice)
	return decimal.NewFromBigInt(sum, -vault.UsdDecimals).Div(decimal.NewFromInt(2))
}
