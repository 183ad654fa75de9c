// package notify broadcasts user-facing notifications to whichever views are listening.
package notify

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ClearAllID is the id of the broadcast that tells subscribers to drop everything they show.
const ClearAllID = "clear-all"

// Kind is the severity of a [Notification].
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

// Notification is one message. AutoDismiss of zero means it stays until dismissed.
type Notification struct {
	ID          string
	Kind        Kind
	Message     string
	AutoDismiss time.Duration
}

// IsClearAll reports whether n is the clear-all command rather than a message.
func (n Notification) IsClearAll() bool { return n.ID == ClearAllID }

// Bus is a fire-and-forget broadcaster. It keeps no list of active notifications; a late
// subscriber sees nothing that was sent before it subscribed.
type Bus struct {
	next   atomic.Uint64
	mu     sync.Mutex
	subs   map[uint64]func(Notification)
	order  []uint64
	nextID uint64
}

// NewBus creates an empty [Bus].
func NewBus() *Bus {
	return &Bus{subs: map[uint64]func(Notification){}}
}

// Show assigns the next id and broadcasts. Ids are strictly increasing decimal strings.
func (b *Bus) Show(kind Kind, message string, autoDismiss time.Duration) Notification {
	n := Notification{
		ID:          strconv.FormatUint(b.next.Add(1)-1, 10),
		Kind:        kind,
		Message:     message,
		AutoDismiss: autoDismiss,
	}
	b.publish(n)
	return n
}

func (b *Bus) Success(message string) Notification { return b.Show(Success, message, 0) }
func (b *Bus) Error(message string) Notification   { return b.Show(Error, message, 0) }
func (b *Bus) Warning(message string) Notification { return b.Show(Warning, message, 0) }
func (b *Bus) Info(message string) Notification    { return b.Show(Info, message, 0) }

// ClearAll tells every subscriber to drop its list.
func (b *Bus) ClearAll() {
	b.publish(Notification{ID: ClearAllID, Kind: Info, Message: ClearAllID})
}

// Subscribe registers fn for future broadcasts and returns an idempotent cancel func.
func (b *Bus) Subscribe(fn func(Notification)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, o := range b.order {
				if o == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) publish(n Notification) {
	b.mu.Lock()
	fns := make([]func(Notification), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}
