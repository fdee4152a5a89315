package watch

import "sync"

// Disposable is anything with a Dispose teardown.
type Disposable interface {
	Dispose()
}

// Disposer collects disposables and tears them down in reverse registration
// order, so dependents go before their dependencies. Safe for concurrent
// Add; Dispose is idempotent.
type Disposer struct {
	mu          sync.Mutex
	disposables []Disposable
	once        sync.Once
}

// Add registers a disposable for teardown.
func (d *Disposer) Add(item Disposable) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disposables = append(d.disposables, item)
}

// AddFunc registers a plain function for teardown.
func (d *Disposer) AddFunc(fn func()) {
	d.Add(disposeFunc(fn))
}

// Dispose tears everything down once, last registered first.
func (d *Disposer) Dispose() {
	d.once.Do(func() {
		d.mu.Lock()
		items := d.disposables
		d.disposables = nil
		d.mu.Unlock()

		for i := len(items) - 1; i >= 0; i-- {
			items[i].Dispose()
		}
	})
}

type disposeFunc func()

func (f disposeFunc) Dispose() { f() }
