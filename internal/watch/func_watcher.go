package watch

// FuncWatcher derives its latest value from other watchers by calling fn on
// every read. Nothing is cached: the combination stays consistent with its
// inputs for free. Dispose is a no-op because a derived watcher owns no feed.
type FuncWatcher[T any] struct {
	fn func() T
}

// Derive wraps a pure accessor as a Watcher.
func Derive[T any](fn func() T) *FuncWatcher[T] {
	return &FuncWatcher[T]{fn: fn}
}

func (w *FuncWatcher[T]) Latest() T {
	return w.fn()
}

func (w *FuncWatcher[T]) Dispose() {}
