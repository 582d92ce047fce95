package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

// createTestTickFrame builds a realistic indexer frame for testing
func createTestTickFrame(symbol, price string, timestampMillis int64) []byte {
	return []byte(fmt.Sprintf(
		`{"symbol":%q,"timestamp":%d,"price":%q}`,
		symbol, timestampMillis, price))
}

// Test_NewTickStream tests the stream constructor with various configurations
func Test_NewTickStream(t *testing.T) {
	tests := []struct {
		name        string
		config      *StreamConfig
		wantURL     string
		wantMax     int
		description string
	}{
		{
			name:        "Nil configuration uses defaults",
			config:      nil,
			wantURL:     defaultStreamConfig.BaseURL,
			wantMax:     defaultStreamConfig.MaxSymbols,
			description: "Should use default configuration when nil is provided",
		},
		{
			name: "Custom configuration",
			config: &StreamConfig{
				BaseURL:    "wss://price.testnet.phamous.io",
				MaxSymbols: 4,
			},
			wantURL:     "wss://price.testnet.phamous.io",
			wantMax:     4,
			description: "Should accept custom configuration values",
		},
		{
			name: "Empty BaseURL falls back to default",
			config: &StreamConfig{
				MaxSymbols: 8,
			},
			wantURL:     defaultStreamConfig.BaseURL,
			wantMax:     8,
			description: "Should fill missing BaseURL from defaults",
		},
		{
			name: "Non-positive MaxSymbols falls back to default",
			config: &StreamConfig{
				BaseURL:    "wss://price.phamous.io",
				MaxSymbols: -1,
			},
			wantURL:     defaultStreamConfig.BaseURL,
			wantMax:     defaultStreamConfig.MaxSymbols,
			description: "Should fill invalid MaxSymbols from defaults",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream, err := NewTickStream(tt.config)
			require.NoError(t, err, tt.description)
			assert.Equal(t, tt.wantURL, stream.config.BaseURL, tt.description)
			assert.Equal(t, tt.wantMax, stream.config.MaxSymbols, tt.description)
		})
	}
}

// Test_SubscribeToTicks_Validation tests symbol validation before dialing
func Test_SubscribeToTicks_Validation(t *testing.T) {
	stream, err := NewTickStream(&StreamConfig{MaxSymbols: 2})
	require.NoError(t, err)

	tests := []struct {
		name        string
		symbols     []string
		description string
	}{
		{
			name:        "No symbols",
			symbols:     nil,
			description: "Should reject empty symbol list",
		},
		{
			name:        "Too many symbols",
			symbols:     []string{"PLS", "WPLS", "HEX"},
			description: "Should reject more symbols than MaxSymbols",
		},
		{
			name:        "Malformed symbol",
			symbols:     []string{"PLS USD"},
			description: "Should reject malformed symbol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := stream.SubscribeToTicks(context.Background(), tt.symbols)
			assert.Error(t, err, tt.description)
			assert.Nil(t, ch, "No channel should be returned on validation failure")
		})
	}
}

// Test_handleTickFrame tests frame parsing and validation
func Test_handleTickFrame(t *testing.T) {
	stream, err := NewTickStream(nil)
	require.NoError(t, err)

	tests := []struct {
		name        string
		raw         []byte
		expectError bool
		expected    model.SymbolTick
		description string
	}{
		{
			name:        "Valid frame",
			raw:         createTestTickFrame("PLS", "0.0000421", 1700000000123),
			expectError: false,
			expected: model.SymbolTick{
				Symbol: "PLS",
				Tick: model.PriceTick{
					Time:  1700000000,
					Price: decimal.RequireFromString("0.0000421"),
				},
			},
			description: "Should parse valid frame and truncate millis to seconds",
		},
		{
			name:        "Lowercase symbol normalized",
			raw:         createTestTickFrame("hex", "0.005", 1700000000000),
			expectError: false,
			expected: model.SymbolTick{
				Symbol: "HEX",
				Tick: model.PriceTick{
					Time:  1700000000,
					Price: decimal.RequireFromString("0.005"),
				},
			},
			description: "Should uppercase symbols from the wire",
		},
		{
			name:        "Invalid JSON",
			raw:         []byte(`{"symbol":`),
			expectError: true,
			description: "Should reject malformed JSON",
		},
		{
			name:        "Missing symbol",
			raw:         []byte(`{"timestamp":1700000000123,"price":"1.5"}`),
			expectError: true,
			description: "Should reject frame without a symbol",
		},
		{
			name:        "Zero timestamp",
			raw:         createTestTickFrame("PLS", "1.5", 0),
			expectError: true,
			description: "Should reject frame with zero timestamp",
		},
		{
			name:        "Non-numeric price",
			raw:         createTestTickFrame("PLS", "not-a-price", 1700000000123),
			expectError: true,
			description: "Should reject frame with non-numeric price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tickChan := make(chan model.SymbolTick, 1)

			err := stream.handleTickFrame(tt.raw, tickChan)

			if tt.expectError {
				assert.Error(t, err, tt.description)
				assert.Empty(t, tickChan, "No tick should be pushed on error")
				return
			}

			require.NoError(t, err, tt.description)
			require.Len(t, tickChan, 1, "Exactly one tick should be pushed")

			got := <-tickChan
			assert.Equal(t, tt.expected.Symbol, got.Symbol, tt.description)
			assert.Equal(t, tt.expected.Tick.Time, got.Tick.Time, tt.description)
			assert.True(t, tt.expected.Tick.Price.Equal(got.Tick.Price),
				"Price mismatch: expected %s, got %s", tt.expected.Tick.Price, got.Tick.Price)
		})
	}
}
