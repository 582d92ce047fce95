// Package indexer fetches historical price ticks from the external indexing
// collaborator.
//
// The indexer serves ticks in fixed-size pages; the client walks up to a
// configured number of pages per request and returns the raw accumulated
// ticks. Overlapping pages can repeat or reorder ticks; deduplication is
// left to the candle pipeline.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

var (
	// ErrInvalidConfig indicates that the provided Config contains invalid
	// values.
	ErrInvalidConfig = errors.New("invalid configuration")

	// defaultConfig provides default paging parameters.
	defaultConfig = Config{
		PageSize:  1000,
		PageCount: 5,
		Timeout:   10 * time.Second,
	}
)

// Config configures the indexer client.
type Config struct {
	// BaseURL is the indexer's price history endpoint. Required.
	BaseURL string

	// PageSize is the number of ticks requested per page.
	PageSize int

	// PageCount is the maximum number of pages fetched per call.
	PageCount int

	// Timeout bounds a single page request.
	Timeout time.Duration
}

// pageEnvelope is the wire format of one tick page.
type pageEnvelope struct {
	Symbol string            `json:"symbol" validate:"required"`
	Prices []model.PriceTick `json:"prices"`
}

// Client pages through the indexer's tick history.
type Client struct {
	cfg      Config
	http     *http.Client
	validate *validator.Validate
}

// NewClient creates an indexer client, applying defaults for unset optional
// fields.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultConfig.PageSize
	}
	if cfg.PageCount <= 0 {
		cfg.PageCount = defaultConfig.PageCount
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultConfig.Timeout
	}

	return &Client{
		cfg:      *cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		validate: validator.New(),
	}, nil
}

// FetchTicks fetches up to PageCount pages of ticks for a symbol at the
// named chart period. Paging stops early on a short or empty page. The
// returned ticks are raw: possibly unordered, possibly duplicated across
// page boundaries.
func (c *Client) FetchTicks(ctx context.Context, symbol, period string) ([]model.PriceTick, error) {
	ticks := make([]model.PriceTick, 0, c.cfg.PageSize)

	for page := 0; page < c.cfg.PageCount; page++ {
		pageTicks, err := c.fetchPage(ctx, symbol, period, page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d for %s: %w", page, symbol, err)
		}

		ticks = append(ticks, pageTicks...)
		if len(pageTicks) < c.cfg.PageSize {
			break
		}
	}

	log.Debug().Str("symbol", symbol).Str("period", period).Int("ticks", len(ticks)).Msg("fetched tick history")
	return ticks, nil
}

// fetchPage requests a single page of ticks.
func (c *Client) fetchPage(ctx context.Context, symbol, period string, page int) ([]model.PriceTick, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("period", period)
	query.Set("limit", strconv.Itoa(c.cfg.PageSize))
	query.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope pageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse tick page: %w", err)
	}
	if err := c.validate.Struct(&envelope); err != nil {
		return nil, fmt.Errorf("invalid tick page: %w", err)
	}

	return envelope.Prices, nil
}
