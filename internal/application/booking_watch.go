package application

import "sync"

// snapshotBuffer bounds how many snapshots a slow subscriber can lag behind
// before older ones are dropped in favor of the newest.
const snapshotBuffer = 4

// BookingSubscription delivers booking snapshots for a single room until
// cancelled.
type BookingSubscription struct {
	roomID string
	ch     chan []Booking
	once   sync.Once
	cancel func()
}

// Snapshots yields the subscription's snapshot stream. The channel is closed
// when the subscription is cancelled or the watcher shuts down.
func (s *BookingSubscription) Snapshots() <-chan []Booking {
	return s.ch
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *BookingSubscription) Cancel() {
	s.once.Do(s.cancel)
}

// deliver pushes a snapshot without blocking; when the subscriber is behind,
// the oldest buffered snapshot is evicted so the latest state wins.
func (s *BookingSubscription) deliver(bookings []Booking) {
	for {
		select {
		case s.ch <- bookings:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// BookingWatcher fans booking snapshots out to per-room subscribers.
type BookingWatcher struct {
	mu     sync.Mutex
	rooms  map[string]map[*BookingSubscription]struct{}
	closed bool
}

// NewBookingWatcher constructs an empty watcher.
func NewBookingWatcher() *BookingWatcher {
	return &BookingWatcher{rooms: make(map[string]map[*BookingSubscription]struct{})}
}

// Subscribe registers a subscriber for a room's snapshots.
func (w *BookingWatcher) Subscribe(roomID string) *BookingSubscription {
	sub := &BookingSubscription{
		roomID: roomID,
		ch:     make(chan []Booking, snapshotBuffer),
	}
	sub.cancel = func() { w.remove(sub) }

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		close(sub.ch)
		return sub
	}
	subs, ok := w.rooms[roomID]
	if !ok {
		subs = make(map[*BookingSubscription]struct{})
		w.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Publish distributes a snapshot to every subscriber of the room.
func (w *BookingWatcher) Publish(roomID string, bookings []Booking) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for sub := range w.rooms[roomID] {
		sub.deliver(bookings)
	}
}

// Close detaches every subscriber and closes their channels. Subsequent
// subscriptions observe an immediately closed stream.
func (w *BookingWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	for _, subs := range w.rooms {
		for sub := range subs {
			close(sub.ch)
		}
	}
	w.rooms = make(map[string]map[*BookingSubscription]struct{})
}

// send delivers to a single subscription, skipping it when it has already
// been detached.
func (w *BookingWatcher) send(sub *BookingSubscription, bookings []Booking) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if _, ok := w.rooms[sub.roomID][sub]; !ok {
		return
	}
	sub.deliver(bookings)
}

func (w *BookingWatcher) remove(sub *BookingSubscription) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	subs, ok := w.rooms[sub.roomID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(w.rooms, sub.roomID)
	}
	close(sub.ch)
}
