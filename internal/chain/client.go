package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

var (
	// ErrInvalidConfig indicates that the provided SnapshotConfig contains
	// invalid values.
	ErrInvalidConfig = errors.New("invalid configuration")

	// defaultSnapshotConfig provides default values for snapshot polling.
	defaultSnapshotConfig = SnapshotConfig{
		Timeout: 10 * time.Second,
	}
)

// SnapshotConfig configures the pool snapshot client.
type SnapshotConfig struct {
	// BaseURL is the chain-reading collaborator's HTTP endpoint.
	// Required.
	BaseURL string

	// ChainID selects the token whitelist and must be a supported chain.
	ChainID int

	// Timeout bounds a single snapshot request.
	Timeout time.Duration
}

// snapshotEnvelope is the wire format of a pool snapshot response: the flat
// positional array of stringified integers, SnapshotStride values per
// whitelisted token.
type snapshotEnvelope struct {
	ChainID int      `json:"chainId" validate:"required"`
	Values  []string `json:"values" validate:"required,min=1"`
}

// SnapshotClient polls the chain-reading collaborator for pool state and
// decodes it into typed per-token snapshots.
type SnapshotClient struct {
	cfg      SnapshotConfig
	tokens   []model.Token
	http     *http.Client
	validate *validator.Validate
}

// NewSnapshotClient creates a snapshot client for the configured chain.
// The chain id is resolved against the static registry immediately, so a
// misconfigured id fails at startup.
func NewSnapshotClient(cfg *SnapshotConfig) (*SnapshotClient, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSnapshotConfig.Timeout
	}

	return &SnapshotClient{
		cfg:      *cfg,
		tokens:   TokensFor(cfg.ChainID),
		http:     &http.Client{Timeout: cfg.Timeout},
		validate: validator.New(),
	}, nil
}

// Tokens returns the whitelist the client decodes against.
func (c *SnapshotClient) Tokens() []model.Token {
	out := make([]model.Token, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// FetchPoolState requests and decodes one pool snapshot.
func (c *SnapshotClient) FetchPoolState(ctx context.Context) (map[string]*model.TokenPoolState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot response: %w", err)
	}

	var envelope snapshotEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot response: %w", err)
	}
	if err := c.validate.Struct(&envelope); err != nil {
		return nil, fmt.Errorf("invalid snapshot response: %w", err)
	}
	if envelope.ChainID != c.cfg.ChainID {
		return nil, fmt.Errorf("snapshot chain id %d does not match configured chain %d", envelope.ChainID, c.cfg.ChainID)
	}

	values := make([]*big.Int, len(envelope.Values))
	for i, raw := range envelope.Values {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("snapshot value %d is not an integer: %q", i, raw)
		}
		values[i] = v
	}

	states, err := DecodePoolSnapshot(c.tokens, values)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("tokens", len(states)).Int("chain", c.cfg.ChainID).Msg("decoded pool snapshot")
	return states, nil
}
