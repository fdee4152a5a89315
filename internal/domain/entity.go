package domain

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// MarketRecord is the persisted description of a market (gorm entity).
// Only the description is stored; decoded book snapshots are never persisted.
type MarketRecord struct {
	Symbol        string    `gorm:"primaryKey" json:"symbol"`
	BidsAddress   string    `json:"bids_address"`
	AsksAddress   string    `json:"asks_address"`
	BaseDecimals  int32     `json:"base_decimals"`
	QuoteDecimals int32     `json:"quote_decimals"`
	BaseLotSize   string    `json:"base_lot_size"`
	QuoteLotSize  string    `json:"quote_lot_size"`
	IsActive      bool      `json:"is_active" gorm:"index"` // Watch this market on startup
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToMarket converts the stored row back into a validated Market.
func (r *MarketRecord) ToMarket() (Market, error) {
	bids, err := solana.PublicKeyFromBase58(r.BidsAddress)
	if err != nil {
		return Market{}, fmt.Errorf("market %s: bad bids address: %w", r.Symbol, err)
	}
	asks, err := solana.PublicKeyFromBase58(r.AsksAddress)
	if err != nil {
		return Market{}, fmt.Errorf("market %s: bad asks address: %w", r.Symbol, err)
	}
	baseLot, err := decimal.NewFromString(r.BaseLotSize)
	if err != nil {
		return Market{}, fmt.Errorf("market %s: bad base lot size: %w", r.Symbol, err)
	}
	quoteLot, err := decimal.NewFromString(r.QuoteLotSize)
	if err != nil {
		return Market{}, fmt.Errorf("market %s: bad quote lot size: %w", r.Symbol, err)
	}

	m := Market{
		Symbol: r.Symbol,
		Bids:   bids,
		Asks:   asks,
		Scaling: MarketScaling{
			BaseDecimals:  r.BaseDecimals,
			QuoteDecimals: r.QuoteDecimals,
			BaseLotSize:   baseLot,
			QuoteLotSize:  quoteLot,
		},
	}
	if err := m.Validate(); err != nil {
		return Market{}, err
	}
	return m, nil
}

// FromMarket builds the persistable row for a market description.
func FromMarket(m Market, active bool) *MarketRecord {
	return &MarketRecord{
		Symbol:        m.Symbol,
		BidsAddress:   m.Bids.String(),
		AsksAddress:   m.Asks.String(),
		BaseDecimals:  m.Scaling.BaseDecimals,
		QuoteDecimals: m.Scaling.QuoteDecimals,
		BaseLotSize:   m.Scaling.BaseLotSize.String(),
		QuoteLotSize:  m.Scaling.QuoteLotSize.String(),
		IsActive:      active,
	}
}
