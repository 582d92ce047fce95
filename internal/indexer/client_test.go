package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test_NewClient tests configuration validation and defaults.
func Test_NewClient(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		expectError bool
		description string
	}{
		{
			name:        "Valid minimal config",
			cfg:         &Config{BaseURL: "http://indexer.local/prices"},
			expectError: false,
			description: "Defaults fill page size, page count and timeout",
		},
		{
			name:        "Nil config is rejected",
			cfg:         nil,
			expectError: true,
			description: "A base URL is always required",
		},
		{
			name:        "Missing base URL is rejected",
			cfg:         &Config{PageSize: 10},
			expectError: true,
			description: "A base URL is always required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.expectError {
				require.Error(t, err, tt.description)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err, tt.description)
			assert.Equal(t, defaultConfig.PageSize, client.cfg.PageSize)
			assert.Equal(t, defaultConfig.PageCount, client.cfg.PageCount)
		})
	}
}

// Test_FetchTicks tests paging behavior and tolerant tick decoding against
// a stub indexer.
func Test_FetchTicks(t *testing.T) {
	t.Run("Walks pages until a short page", func(t *testing.T) {
		var requested []int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			requested = append(requested, page)

			w.Header().Set("Content-Type", "application/json")
			switch page {
			case 0: // full page
				_, _ = w.Write([]byte(`{"symbol":"WPLS","prices":[
					{"timestamp":100,"price":"1.5"},
					{"timestamp":200,"price":2.25}
				]}`))
			default: // short page ends paging
				_, _ = w.Write([]byte(`{"symbol":"WPLS","prices":[
					{"timestamp":"2023-11-14T22:13:20Z","price":"3"}
				]}`))
			}
		}))
		defer server.Close()

		client, err := NewClient(&Config{BaseURL: server.URL, PageSize: 2, PageCount: 10})
		require.NoError(t, err)

		ticks, err := client.FetchTicks(context.Background(), "WPLS", "5m")
		require.NoError(t, err)

		assert.Equal(t, []int{0, 1}, requested, "short page must stop the walk")
		require.Len(t, ticks, 3)
		assert.Equal(t, int64(100), ticks[0].Time)
		assert.Equal(t, "1.5", ticks[0].Price.String())
		assert.Equal(t, "2.25", ticks[1].Price.String())
		assert.Equal(t, int64(1700000000), ticks[2].Time, "RFC3339 timestamps decode to unix seconds")
	})

	t.Run("Millisecond timestamps are normalized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"HEX","prices":[{"timestamp":1700000000123,"price":"0.005"}]}`))
		}))
		defer server.Close()

		client, err := NewClient(&Config{BaseURL: server.URL, PageSize: 5})
		require.NoError(t, err)

		ticks, err := client.FetchTicks(context.Background(), "HEX", "1h")
		require.NoError(t, err)
		require.Len(t, ticks, 1)
		assert.Equal(t, int64(1700000000), ticks[0].Time)
	})

	t.Run("Missing symbol in page is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"prices":[{"timestamp":1,"price":"1"}]}`))
		}))
		defer server.Close()

		client, err := NewClient(&Config{BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.FetchTicks(context.Background(), "HEX", "1h")
		assert.Error(t, err)
	})

	t.Run("Upstream error status surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer server.Close()

		client, err := NewClient(&Config{BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.FetchTicks(context.Background(), "HEX", "1h")
		assert.Error(t, err)
	})
}
