// Package utils provides common utility functions for input validation.
//
// This package contains utilities for validating token symbols and chart
// period names before they reach the vault or candle layers.
package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

// Error definitions for validation functions
var (
	ErrNoSymbols      = errors.New("zero symbols requested")
	ErrTooManySymbols = errors.New("too many symbols requested")
)

// supportedPeriodsCache is a pre-computed string of supported period names
// to avoid rebuilding this string on every validation error.
var supportedPeriodsCache = strings.Join(model.Periods(), ", ")

// ValidateSymbol validates that a token symbol follows the expected format.
//
// Symbols are short uppercase identifiers such as "PLS", "WPLS" or "USDC".
// Lowercase input is accepted; callers normalize with strings.ToUpper before
// lookups. Only letters and digits are allowed.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return errors.New("symbol cannot be empty")
	}

	if len(symbol) > 12 {
		return fmt.Errorf("symbol too long: %q", symbol)
	}

	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		default:
			return fmt.Errorf("invalid character %q in symbol %q", r, symbol)
		}
	}

	return nil
}

// ValidateSymbols validates a slice of token symbols and enforces quantity limits.
//
// This function performs two types of validation:
//  1. Quantity validation: Ensures the number of symbols is within acceptable limits
//  2. Format validation: Validates each symbol using ValidateSymbol
func ValidateSymbols(symbols []string, maxAllowed int) error {
	if len(symbols) == 0 {
		return ErrNoSymbols
	}

	if maxAllowed <= 0 {
		return fmt.Errorf("%w: max allowed must be positive, got %d",
			ErrTooManySymbols, maxAllowed)
	}

	if len(symbols) > maxAllowed {
		return fmt.Errorf("%w: requested %d symbols, maximum allowed %d",
			ErrTooManySymbols, len(symbols), maxAllowed)
	}

	for i, symbol := range symbols {
		if err := ValidateSymbol(symbol); err != nil {
			return fmt.Errorf("invalid symbol at index %d (%q): %w", i, symbol, err)
		}
	}

	return nil
}

// ValidatePeriod resolves a chart period name to its length in seconds.
//
// Supported period names: 5m, 15m, 1h, 4h, 1d.
func ValidatePeriod(period string) (int64, error) {
	seconds, ok := model.PeriodSeconds(period)
	if !ok {
		return 0, fmt.Errorf("unsupported period %q (supported: %s)",
			period, supportedPeriodsCache)
	}
	return seconds, nil
}
