/*
Package main implements a WebSocket client for subscribing to live candle
updates.

The client connects to a chart server, subscribes to the specified token
symbols, and logs every candle update it receives. It supports graceful
shutdown via OS signals.

Usage:

	go run main.go -addr=localhost:8080 -symbols=PLS,HEX

The client will continuously receive and log candle updates until interrupted.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

// Command-line flags for configuring the client connection and subscription
var (
	// serverAddr specifies the chart server address to connect to
	serverAddr = flag.String("addr", "localhost:8080", "The server address in the format host:port")
	// symbols contains the comma-separated list of token symbols to subscribe to
	symbols = flag.String("symbols", "PLS,HEX", "Comma-separated list of symbols to subscribe to")
)

// envelope mirrors the server's WebSocket frame format.
type envelope struct {
	Type    string             `json:"type"`
	Payload model.CandleUpdate `json:"payload"`
}

// main is the entry point of the chart client application.
// It dials the chart server's WebSocket endpoint, subscribes to the given
// symbols, and continuously receives and logs candle updates.
func main() {
	flag.Parse()

	// Initialize structured logger with timestamp and info level
	log := zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	if err := validateConfig(); err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}

	// Create context for managing application lifecycle and cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	endpoint := url.URL{
		Scheme:   "ws",
		Host:     *serverAddr,
		Path:     "/ws",
		RawQuery: "symbols=" + url.QueryEscape(*symbols),
	}

	log.Info().Str("endpoint", endpoint.String()).Msg("subscribing to candle updates")

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("did not connect")
	}
	defer conn.Close()

	// Close the connection when the context is cancelled so the read loop
	// below unblocks.
	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	// Main message receiving loop
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("connection closed")
				return
			}
			log.Fatal().Err(err).Msg("failed to receive update")
		}

		var msg envelope
		if err := json.Unmarshal(frame, &msg); err != nil {
			log.Error().Err(err).Msg("failed to decode frame")
			continue
		}

		candle := msg.Payload.Candle
		log.Info().
			Str("symbol", msg.Payload.Symbol).
			Str("period", msg.Payload.Period).
			Str("open", candle.Open.String()).
			Str("high", candle.High.String()).
			Str("low", candle.Low.String()).
			Str("close", candle.Close.String()).
			Str("bucket_start", time.Unix(candle.Time, 0).Format(time.RFC3339)).
			Msg("received candle update")
	}
}

// validateConfig performs validation of command-line configuration.
func validateConfig() error {
	if len(*symbols) == 0 {
		return fmt.Errorf("symbols list cannot be empty")
	}
	if *serverAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	return nil
}
