// Package debuglog keeps the most recent decision calls for inspection.
package debuglog

import (
	"math"
	"slices"
	"sync"
	"time"

	"opagate/internal/domain"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted.
const DefaultCapacity = 50

// Observer receives the full buffer, oldest first, after every change.
// Observers run synchronously and must not call Record or Clear.
type Observer func(entries []domain.DebugEntry)

// Buffer is a bounded, thread-safe history of decision calls.
// When full, the oldest entry is dropped to make room for the new one.
type Buffer struct {
	mu       sync.Mutex
	entries  []domain.DebugEntry
	head     int // next write position
	tail     int // oldest entry
	count    int
	capacity int

	observers []subscription
	nextID    int
	closed    bool

	// notifyMu keeps notifications in record order.
	notifyMu sync.Mutex

	now func() time.Time

	// Stats
	evicted int64
}

type subscription struct {
	id int
	fn Observer
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithClock overrides time.Now for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		b.now = now
	}
}

// NewBuffer creates an empty buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.entries = make([]domain.DebugEntry, b.capacity)
	return b
}

// Record appends entry, evicting the oldest when full, and notifies
// observers.
func (b *Buffer) Record(entry domain.DebugEntry) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.evicted++
	}
	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	b.count++

	snapshot := b.snapshotLocked()
	observers := b.observersLocked()
	b.mu.Unlock()

	notify(observers, snapshot)
}

// Clear empties the buffer and notifies observers once with an empty list.
func (b *Buffer) Clear() {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	clear(b.entries)
	b.head, b.tail, b.count = 0, 0, 0
	observers := b.observersLocked()
	b.mu.Unlock()

	notify(observers, []domain.DebugEntry{})
}

// Snapshot returns a copy of the entries, oldest first.
func (b *Buffer) Snapshot() []domain.DebugEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Subscribe registers fn for change notifications. The returned function
// unsubscribes and is safe to call more than once. Subscribing to a closed
// buffer is a no-op.
func (b *Buffer) Subscribe(fn Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || fn == nil {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.observers {
				if s.id == id {
					b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Close drops every observer. Recording continues without notifications.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.observers = nil
}

// Len returns the current number of entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Evicted returns the total number of entries dropped for capacity.
func (b *Buffer) Evicted() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}

// Summary aggregates the buffered entries.
type Summary struct {
	TotalRequests   int   `json:"total_requests"`
	AllowedRequests int   `json:"allowed_requests"`
	DeniedRequests  int   `json:"denied_requests"`
	AverageDuration int64 `json:"average_duration"`
}

// Export is the downloadable form of the buffer.
type Export struct {
	Timestamp time.Time           `json:"timestamp"`
	Entries   []domain.DebugEntry `json:"entries"`
	Summary   Summary             `json:"summary"`
}

// ExportSummary returns the entries with request counts and the mean
// duration rounded to the nearest millisecond (0 when empty).
func (b *Buffer) ExportSummary() Export {
	entries := b.Snapshot()

	summary := Summary{TotalRequests: len(entries)}
	var total int64
	for _, e := range entries {
		if e.Allowed() {
			summary.AllowedRequests++
		}
		total += e.DurationMS
	}
	summary.DeniedRequests = summary.TotalRequests - summary.AllowedRequests
	if len(entries) > 0 {
		summary.AverageDuration = int64(math.Round(float64(total) / float64(len(entries))))
	}

	return Export{
		Timestamp: b.now().UTC(),
		Entries:   entries,
		Summary:   summary,
	}
}

func (b *Buffer) snapshotLocked() []domain.DebugEntry {
	out := make([]domain.DebugEntry, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.entries[(b.tail+i)%b.capacity]
	}
	return out
}

func (b *Buffer) observersLocked() []Observer {
	out := make([]Observer, len(b.observers))
	for i, s := range b.observers {
		out[i] = s.fn
	}
	return out
}

func notify(observers []Observer, entries []domain.DebugEntry) {
	for _, fn := range observers {
		fn(slices.Clone(entries))
	}
}
