/*
Package main implements the chart and token data server of the exchange
front end.

The server backfills price history from the indexer, folds the live tick
feed into per-symbol charts, polls the chain for liquidity pool state, and
serves everything over HTTP and WebSocket. It supports graceful shutdown
and a configurable set of tracked symbols.

Usage:

	go run main.go -addr=:8080 -chain=369 -symbols=PLS,WPLS,HEX,PLSX

The server will start listening for HTTP connections and begin streaming
candle updates for the specified symbols.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nevermind0825/phamous-sub000/internal/chain"
	"github.com/nevermind0825/phamous-sub000/internal/indexer"
	"github.com/nevermind0825/phamous-sub000/internal/server"
	"github.com/nevermind0825/phamous-sub000/internal/service"
)

// Command-line flags for configuring the server behavior
var (
	// addr specifies the TCP address for the HTTP server to listen on
	addr = flag.String("addr", ":8080", "The server listen address")
	// chainID selects the chain registry (369 mainnet, 943 testnet)
	chainID = flag.Int("chain", chain.PulseChain, "Chain id to serve")
	// symbols contains the comma-separated list of token symbols to track
	symbols = flag.String("symbols", "PLS,WPLS,HEX,PLSX", "Comma-separated list of symbols")
	// indexerURL is the REST endpoint used for price history backfill
	indexerURL = flag.String("indexer-url", "https://price.phamous.io", "Indexer REST base URL")
	// streamURL is the WebSocket endpoint of the live price feed
	streamURL = flag.String("stream-url", "wss://price.phamous.io", "Live feed WebSocket base URL")
	// snapshotURL is the endpoint serving chain pool state snapshots
	snapshotURL = flag.String("snapshot-url", "https://api.phamous.io", "Pool snapshot base URL")
	// pollInterval controls how often the pool state is refreshed
	pollInterval = flag.Duration("poll-interval", 15*time.Second, "Pool state poll interval")
)

// main is the entry point of the chart server application.
// It wires the indexer, live feed and chain clients into the chart service,
// starts the HTTP server, and handles graceful shutdown.
func main() {
	flag.Parse()

	// Initialize structured logger with timestamp and info level
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := validateConfig(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create context for managing application lifecycle and graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chartService, err := newChartService()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initiate chart service")
	}

	// Start backfill, live feed and pool state polling for the tracked symbols
	symbolList := strings.Split(*symbols, ",")
	if err := chartService.Start(ctx, symbolList); err != nil {
		log.Fatal().Err(err).Msg("failed to start chart service")
	}
	defer chartService.Stop()

	apiServer := server.NewServer(server.Config{Addr: *addr}, chartService)

	// Set up signal handling for graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("initiating graceful shutdown")
		cancel()
		if err := apiServer.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	log.Info().
		Str("addr", *addr).
		Int("chain", *chainID).
		Strs("symbols", symbolList).
		Msg("server starting")

	// Serve HTTP requests - this blocks until shutdown
	if err := apiServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to serve")
	}
}

// validateConfig performs validation of command-line configuration parameters.
func validateConfig() error {
	if addr == nil || *addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if symbols == nil || *symbols == "" {
		return fmt.Errorf("symbols list cannot be empty")
	}
	if *chainID != chain.PulseChain && *chainID != chain.PulseChainTestnet {
		return fmt.Errorf("unsupported chain id %d", *chainID)
	}
	if *pollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	return nil
}

// newChartService wires the indexer, live feed and chain snapshot clients
// into a chart service ready to start.
func newChartService() (*service.ChartService, error) {
	backfiller, err := indexer.NewClient(&indexer.Config{
		BaseURL: *indexerURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create indexer client")
		return nil, err
	}

	streamer, err := indexer.NewTickStream(&indexer.StreamConfig{
		BaseURL: *streamURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create tick stream")
		return nil, err
	}

	snapshots, err := chain.NewSnapshotClient(&chain.SnapshotConfig{
		BaseURL: *snapshotURL,
		ChainID: *chainID,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create snapshot client")
		return nil, err
	}

	// Dispatcher fans candle updates out to WebSocket subscribers
	dispatcher := service.NewDispatcher(service.DispatcherConfig{
		MaxSymbolsAllowed: 100, // Limit concurrent symbol subscriptions
	})

	return service.NewChartService(service.ChartConfig{
		PollInterval: *pollInterval,
	}, backfiller, streamer, snapshots, dispatcher), nil
}
