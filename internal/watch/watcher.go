package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"bookwatch/internal/domain"
	"bookwatch/internal/health"
	"bookwatch/internal/infra"

	"github.com/gagliardetto/solana-go"
)

// Watcher is a live, read-only view over one feed's latest decoded value.
type Watcher[T any] interface {
	Latest() T
	Dispose()
}

// Deps bundles the collaborators a watcher needs. Health may be nil when no
// liveness reporting is wanted; OnDecodeError may be nil to fall back to
// logging.
type Deps struct {
	Fetcher       domain.AccountFetcher
	Subscriber    domain.AccountSubscriber
	Health        *health.Registry
	OnDecodeError func(error)
}

// AccountWatcher binds one account's notification stream to a decode
// pipeline feeding a snapshot cell. One goroutine per watcher; updates are
// applied in delivery order.
type AccountWatcher[T any] struct {
	name   string
	cell   *Cell[T]
	sub    domain.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Watch fetches and decodes the account once, synchronously, then attaches
// to its notification stream. Construction fails outright when the account
// does not exist or the initial payload does not decode; no partial watcher
// is returned. After that a malformed update is dropped (the previous
// snapshot stays) so the feed survives transient upstream glitches.
func Watch[T any](ctx context.Context, deps Deps, name string, address solana.PublicKey, decode func([]byte) (T, error)) (*AccountWatcher[T], error) {
	data, err := deps.Fetcher.FetchAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("watch %s: initial fetch of %s: %w", name, address, err)
	}
	initial, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("watch %s: initial decode of %s: %w", name, address, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub, err := deps.Subscriber.SubscribeAccount(ctx, address)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: subscribe to %s: %w", name, address, err)
	}

	w := &AccountWatcher[T]{
		name:   name,
		cell:   NewCell(initial),
		sub:    sub,
		cancel: cancel,
	}

	var probe *health.Probe
	if deps.Health != nil {
		probe = deps.Health.Register(name)
	}

	w.wg.Add(1)
	go w.run(ctx, probe, decode, deps.OnDecodeError)

	return w, nil
}

func (w *AccountWatcher[T]) run(ctx context.Context, probe *health.Probe, decode func([]byte) (T, error), onDecodeError func(error)) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-w.sub.Updates():
			if !ok {
				return
			}
			value, err := decode(payload)
			if err != nil {
				infra.GlobalMetrics.RecordDecodeFailure()
				if onDecodeError != nil {
					onDecodeError(err)
				} else {
					slog.Warn("Dropping malformed account update",
						slog.String("feed", w.name), slog.Any("error", err))
				}
				continue
			}
			w.cell.Store(value)
			if probe != nil {
				probe.MarkActive()
			}
			infra.GlobalMetrics.RecordUpdate()
		}
	}
}

// Name returns the feed name the watcher registered under.
func (w *AccountWatcher[T]) Name() string {
	return w.name
}

// Latest returns the most recent decoded value. Never blocks.
func (w *AccountWatcher[T]) Latest() T {
	return w.cell.Load()
}

// Dispose unsubscribes from the notification stream and waits for the
// update goroutine to stop. Idempotent. After Dispose returns no further
// write to the cell is observable.
func (w *AccountWatcher[T]) Dispose() {
	w.once.Do(func() {
		w.cancel()
		w.sub.Unsubscribe()
		w.wg.Wait()
	})
}
