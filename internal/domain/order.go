package domain

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Side identifies which half of the order book an account holds.
type Side uint8

const (
	SideBids Side = iota
	SideAsks
)

func (s Side) String() string {
	if s == SideBids {
		return "BIDS"
	}
	return "ASKS"
}

// OrderType mirrors the order_type byte stored in a leaf node.
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota
	OrderTypeIOC
	OrderTypePostOnly
	OrderTypeUnknown OrderType = 255
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeIOC:
		return "IOC"
	case OrderTypePostOnly:
		return "POST_ONLY"
	default:
		return "UNKNOWN"
	}
}

// Order is one resting order derived from a leaf node at traversal time.
// Price and Quantity are UI-scale decimals; the native integer units have
// already been converted via the market's lot sizes.
type Order struct {
	ID            bin.Uint128      `json:"id"`
	ClientOrderID uint64           `json:"client_order_id"`
	Owner         solana.PublicKey `json:"owner"`
	Side          Side             `json:"side"`
	Price         decimal.Decimal  `json:"price"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Type          OrderType        `json:"type"`
}
