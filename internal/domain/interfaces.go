package domain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// AccountFetcher reads the current raw bytes of a ledger account.
// Implementations return ErrAccountNotFound (possibly wrapped) when there is
// no account at the address.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// AccountSubscriber attaches to the push notification stream of a ledger
// account. Each update carries the full raw account bytes. Delivery is
// at-least-once and ordered per address only.
type AccountSubscriber interface {
	SubscribeAccount(ctx context.Context, address solana.PublicKey) (Subscription, error)
}

// Subscription is one live account feed. Updates is closed after
// Unsubscribe returns or when the transport shuts down.
type Subscription interface {
	Updates() <-chan []byte
	Unsubscribe()
}

// MarketRepository persists market descriptions (not snapshots).
type MarketRepository interface {
	UpsertMarket(m *MarketRecord) error
	FindMarket(symbol string) (*MarketRecord, error)
	FindAllMarkets() ([]*MarketRecord, error)
}
