package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bookwatch/internal/domain"
	"bookwatch/internal/slab"
	"bookwatch/internal/watch"

	"github.com/shopspring/decimal"
)

// OrderBook is a point-in-time two-sided view of one market: bids sorted
// descending, asks ascending, as produced by the slab traversal.
type OrderBook struct {
	Symbol string         `json:"symbol"`
	Bids   []domain.Order `json:"bids"`
	Asks   []domain.Order `json:"asks"`
}

// MarketBook keeps both sides of one market continuously current. The
// combined book is derived lazily at read time from the two side watchers,
// never cached separately.
type MarketBook struct {
	market domain.Market
	bids   *watch.AccountWatcher[[]domain.Order]
	asks   *watch.AccountWatcher[[]domain.Order]
	book   watch.Watcher[OrderBook]
}

// decodeSide builds the decode function one side watcher runs on every
// payload: parse the slab, traverse, collect.
func decodeSide(scaling domain.MarketScaling) func([]byte) ([]domain.Order, error) {
	return func(data []byte) ([]domain.Order, error) {
		side, err := slab.ParseBookSide(data, scaling)
		if err != nil {
			return nil, err
		}
		return side.AllOrders()
	}
}

// WatchMarket starts watchers for both book sides of a market. Both initial
// loads are synchronous; failure of either aborts construction and tears
// down whatever was already started.
func WatchMarket(ctx context.Context, deps watch.Deps, market domain.Market) (*MarketBook, error) {
	decode := decodeSide(market.Scaling)

	bids, err := watch.Watch(ctx, deps, market.Symbol+"/bids", market.Bids, decode)
	if err != nil {
		return nil, fmt.Errorf("market %s: %w", market.Symbol, err)
	}
	asks, err := watch.Watch(ctx, deps, market.Symbol+"/asks", market.Asks, decode)
	if err != nil {
		bids.Dispose()
		return nil, fmt.Errorf("market %s: %w", market.Symbol, err)
	}

	b := &MarketBook{market: market, bids: bids, asks: asks}
	b.book = watch.Derive(func() OrderBook {
		return OrderBook{Symbol: market.Symbol, Bids: bids.Latest(), Asks: asks.Latest()}
	})
	return b, nil
}

// Market returns the market description this book watches.
func (b *MarketBook) Market() domain.Market {
	return b.market
}

// Book returns the latest combined view. Never blocks.
func (b *MarketBook) Book() OrderBook {
	return b.book.Latest()
}

// BestBid returns the highest resting bid, or nil on an empty side.
func (b *MarketBook) BestBid() *domain.Order {
	orders := b.bids.Latest()
	if len(orders) == 0 {
		return nil
	}
	best := orders[0]
	return &best
}

// BestAsk returns the lowest resting ask, or nil on an empty side.
func (b *MarketBook) BestAsk() *domain.Order {
	orders := b.asks.Latest()
	if len(orders) == 0 {
		return nil
	}
	best := orders[0]
	return &best
}

// Spread returns best ask minus best bid, or nil when either side is empty.
func (b *MarketBook) Spread() *decimal.Decimal {
	bid := b.BestBid()
	ask := b.BestAsk()
	if bid == nil || ask == nil {
		return nil
	}
	spread := ask.Price.Sub(bid.Price)
	return &spread
}

// Dispose stops both side watchers. Idempotent.
func (b *MarketBook) Dispose() {
	b.bids.Dispose()
	b.asks.Dispose()
}

// BookService manages the live books of all watched markets.
type BookService struct {
	mu    sync.RWMutex
	books map[string]*MarketBook
}

// NewBookService creates an empty book service.
func NewBookService() *BookService {
	return &BookService{books: make(map[string]*MarketBook)}
}

// WatchAll starts a MarketBook for every market. On any failure the books
// already started are disposed and the error is returned.
func (s *BookService) WatchAll(ctx context.Context, deps watch.Deps, markets []domain.Market) error {
	for _, market := range markets {
		book, err := WatchMarket(ctx, deps, market)
		if err != nil {
			s.DisposeAll()
			return err
		}
		s.mu.Lock()
		s.books[market.Symbol] = book
		s.mu.Unlock()
	}
	return nil
}

// Get returns the live book for a symbol, or nil when not watched.
func (s *BookService) Get(symbol string) *MarketBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.books[symbol]
}

// All returns every watched book sorted by symbol.
func (s *BookService) All() []*MarketBook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*MarketBook, 0, len(s.books))
	for _, b := range s.books {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].market.Symbol < result[j].market.Symbol
	})
	return result
}

// DisposeAll stops every book and forgets it.
func (s *BookService) DisposeAll() {
	s.mu.Lock()
	books := s.books
	s.books = make(map[string]*MarketBook)
	s.mu.Unlock()

	for _, b := range books {
		b.Dispose()
	}
}
