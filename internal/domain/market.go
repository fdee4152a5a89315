package domain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// MarketScaling converts native integer price/quantity units into UI-scale
// decimals. It comes from the market description, never from the book
// account itself.
type MarketScaling struct {
	BaseDecimals  int32           `json:"base_decimals" yaml:"base_decimals"`
	QuoteDecimals int32           `json:"quote_decimals" yaml:"quote_decimals"`
	BaseLotSize   decimal.Decimal `json:"base_lot_size" yaml:"base_lot_size"`
	QuoteLotSize  decimal.Decimal `json:"quote_lot_size" yaml:"quote_lot_size"`
}

// Validate checks that the scaling can be applied without dividing by zero.
func (s MarketScaling) Validate() error {
	if !s.BaseLotSize.IsPositive() {
		return fmt.Errorf("base lot size must be positive, got %s", s.BaseLotSize)
	}
	if !s.QuoteLotSize.IsPositive() {
		return fmt.Errorf("quote lot size must be positive, got %s", s.QuoteLotSize)
	}
	return nil
}

// UIPrice converts a native price into UI scale:
// native * (quote_lot / base_lot) * 10^(base_decimals - quote_decimals).
func (s MarketScaling) UIPrice(native uint64) decimal.Decimal {
	return decimal.NewFromUint64(native).
		Mul(s.QuoteLotSize).
		Shift(s.BaseDecimals - s.QuoteDecimals).
		Div(s.BaseLotSize)
}

// UIQuantity converts a native quantity into UI scale:
// native * base_lot / 10^base_decimals.
func (s MarketScaling) UIQuantity(native uint64) decimal.Decimal {
	return decimal.NewFromUint64(native).
		Mul(s.BaseLotSize).
		Shift(-s.BaseDecimals)
}

// Market describes one perp market: its symbol, the addresses of its two
// book-side accounts and the scaling needed to read them.
type Market struct {
	Symbol  string           `json:"symbol"`
	Bids    solana.PublicKey `json:"bids"`
	Asks    solana.PublicKey `json:"asks"`
	Scaling MarketScaling    `json:"scaling"`
}

// SideAddress returns the book account address for the given side.
func (m Market) SideAddress(side Side) solana.PublicKey {
	if side == SideBids {
		return m.Bids
	}
	return m.Asks
}

// Validate checks addresses and scaling.
func (m Market) Validate() error {
	if m.Symbol == "" {
		return fmt.Errorf("market symbol is required")
	}
	if m.Bids.IsZero() {
		return fmt.Errorf("market %s: bids address is required", m.Symbol)
	}
	if m.Asks.IsZero() {
		return fmt.Errorf("market %s: asks address is required", m.Symbol)
	}
	if err := m.Scaling.Validate(); err != nil {
		return fmt.Errorf("market %s: %w", m.Symbol, err)
	}
	return nil
}
