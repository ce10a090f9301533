package live

import "sync"

const (
	MinWindow = 30
	MaxWindow = 180
)

// Window keeps the most recent samples, dropping the oldest once full.
type Window[T any] struct {
	mu    sync.Mutex
	max   int
	items []T
}

func NewWindow[T any](size int) *Window[T] {
	w := &Window[T]{}
	w.SetMax(size)
	return w
}

// SetMax clamps size to [MinWindow, MaxWindow] and drops the oldest items
// that no longer fit.
func (w *Window[T]) SetMax(size int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.max = min(MaxWindow, max(MinWindow, size))
	w.trimLocked()
}

func (w *Window[T]) Max() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.max
}

func (w *Window[T]) Push(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, v)
	w.trimLocked()
}

func (w *Window[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Items returns a copy, oldest first.
func (w *Window[T]) Items() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Window[T]) trimLocked() {
	if n := len(w.items) - w.max; n > 0 {
		w.items = append(w.items[:0:0], w.items[n:]...)
	}
}
