package notify

import (
	"sync"
	"time"
)

// Tray is the subscriber side of a [Bus]: it owns the list of visible notifications.
type Tray struct {
	mu      sync.Mutex
	items   []Notification
	timers  map[string]*time.Timer
	version uint64

	// deliverMu serializes onChange; delivered is the newest version it has seen.
	deliverMu sync.Mutex
	delivered uint64

	onChange func([]Notification)
	cancel   func()
}

// NewTray subscribes a tray to bus. onChange, if set, receives a copy of the list after every
// change. Calls never overlap and never go back to an older list; onChange must not call back
// into the tray synchronously.
func NewTray(bus *Bus, onChange func([]Notification)) *Tray {
	t := &Tray{timers: map[string]*time.Timer{}, onChange: onChange}
	t.cancel = bus.Subscribe(t.receive)
	return t
}

// Items returns a copy of the visible notifications, oldest first.
func (t *Tray) Items() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Notification(nil), t.items...)
}

// Dismiss removes the notification with id. Unknown ids are ignored.
func (t *Tray) Dismiss(id string) {
	t.mu.Lock()
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
	kept := t.items[:0]
	removed := false
	for _, n := range t.items {
		if n.ID == id {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	t.items = kept
	if !removed {
		t.mu.Unlock()
		return
	}
	snapshot, version := t.snapshot()
	t.mu.Unlock()

	t.changed(snapshot, version)
}

// Close unsubscribes and stops every pending dismissal.
func (t *Tray) Close() {
	t.cancel()
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *Tray) receive(n Notification) {
	t.mu.Lock()
	if n.IsClearAll() {
		for id, timer := range t.timers {
			timer.Stop()
			delete(t.timers, id)
		}
		t.items = nil
	} else {
		t.items = append(t.items, n)
		if n.AutoDismiss > 0 {
			id := n.ID
			t.timers[id] = time.AfterFunc(n.AutoDismiss, func() { t.Dismiss(id) })
		}
	}
	snapshot, version := t.snapshot()
	t.mu.Unlock()

	t.changed(snapshot, version)
}

// snapshot copies the list and stamps it with a new version. Callers hold mu.
func (t *Tray) snapshot() ([]Notification, uint64) {
	t.version++
	return append([]Notification(nil), t.items...), t.version
}

func (t *Tray) changed(items []Notification, version uint64) {
	if t.onChange == nil {
		return
	}
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()
	if version <= t.delivered {
		return
	}
	t.delivered = version
	t.onChange(items)
}
