package notify

import "sync"

// GestureKind names a user interaction that can unlock audio.
type GestureKind string

const (
	GestureClick GestureKind = "click"
	GestureTouch GestureKind = "touchstart"
	GestureKey   GestureKind = "keydown"
)

// UnlockGestures are the interactions the dispatcher listens for.
var UnlockGestures = []GestureKind{GestureClick, GestureTouch, GestureKey}

// GestureSource delivers user interactions. Subscribe returns a function that
// detaches the listener.
type GestureSource interface {
	Subscribe(kind GestureKind, fn func()) (unsubscribe func())
}

// GestureHub is an in-process GestureSource. The console emits into it from
// its input handling.
type GestureHub struct {
	mu   sync.Mutex
	next int
	subs map[GestureKind]map[int]func()
}

// NewGestureHub creates an empty hub.
func NewGestureHub() *GestureHub {
	return &GestureHub{subs: make(map[GestureKind]map[int]func())}
}

func (h *GestureHub) Subscribe(kind GestureKind, fn func()) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	set, ok := h.subs[kind]
	if !ok {
		set = make(map[int]func())
		h.subs[kind] = set
	}
	set[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs[kind], id)
		h.mu.Unlock()
	}
}

// Emit calls every listener of kind. Listeners run outside the hub lock and
// may unsubscribe themselves.
func (h *GestureHub) Emit(kind GestureKind) {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subs[kind]))
	for _, fn := range h.subs[kind] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listeners returns the number of listeners attached for kind.
func (h *GestureHub) Listeners(kind GestureKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[kind])
}
