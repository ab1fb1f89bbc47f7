package service

import (
	"sync"

	"ride-dispatch/internal/domain/ride"
)

// hub fans committed ride events out to watchers without ever blocking the
// writer: a full watcher buffer drops the event for that watcher.
type hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan ride.Event
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan ride.Event)}
}

func (h *hub) subscribe(buffer int) (<-chan ride.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan ride.Event, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *hub) publish(ev ride.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Watch streams committed ride changes until cancel is called.
func (service *dispatchService) Watch(buffer int) (<-chan ride.Event, func()) {
	return service.hub.subscribe(buffer)
}
