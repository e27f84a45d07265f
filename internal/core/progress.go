package core

// progress.go tracks the completion estimate of the running operation.
//
// An operation is a sequence of phases. Each phase owns a band of the
// 0-100 range sized by its weight, and the percentage inside the band
// follows the record index. The reported percentage never decreases while
// an operation runs; it returns to zero a short delay after Finish.

import (
	"math"
	"sync"
	"time"
)

// Phase names one step of an import, restore or clear.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseClearing  Phase = "clearing"
	PhaseProducts  Phase = "products"
	PhaseCustomers Phase = "customers"
	PhaseInvoices  Phase = "invoices"
	PhaseBills     Phase = "bills"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
)

// phaseWeights are the relative band sizes. Unlisted phases weigh 1.
var phaseWeights = map[Phase]float64{
	PhaseClearing:  20,
	PhaseProducts:  15,
	PhaseCustomers: 15,
	PhaseInvoices:  25,
	PhaseBills:     25,
}

// PhaseForKind returns the progress phase records of kind are inserted in.
func PhaseForKind(kind EntityKind) Phase {
	switch kind {
	case KindProducts:
		return PhaseProducts
	case KindCustomers:
		return PhaseCustomers
	case KindInvoices:
		return PhaseInvoices
	default:
		return PhaseBills
	}
}

// DefaultProgressResetDelay is how long a finished percentage stays visible.
const DefaultProgressResetDelay = 3 * time.Second

// Progress is a point-in-time snapshot of the running operation.
type Progress struct {
	OperationID string    `json:"operationId,omitempty"`
	Operation   string    `json:"operation,omitempty"`
	Phase       Phase     `json:"phase"`
	Percent     int       `json:"percent"`
	Current     int       `json:"current"`
	Total       int       `json:"total"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type band struct{ lo, hi float64 }

// ProgressTracker holds the progress of one operation at a time and fans
// updates out to subscribers. The zero value is not usable; see NewProgressTracker.
type ProgressTracker struct {
	resetDelay time.Duration

	mu        sync.Mutex
	cur       Progress
	bands     map[Phase]band
	percent   float64
	gen       uint64
	listeners map[chan Progress]struct{}
}

// NewProgressTracker creates an idle tracker. A resetDelay <= 0 uses
// DefaultProgressResetDelay.
func NewProgressTracker(resetDelay time.Duration) *ProgressTracker {
	if resetDelay <= 0 {
		resetDelay = DefaultProgressResetDelay
	}
	return &ProgressTracker{
		resetDelay: resetDelay,
		cur:        Progress{Phase: PhaseIdle},
		listeners:  make(map[chan Progress]struct{}),
	}
}

// Start begins a new operation made of phases, in order.
func (t *ProgressTracker) Start(operationID, operation string, phases ...Phase) {
	var total float64
	for _, p := range phases {
		total += weightOf(p)
	}

	bands := make(map[Phase]band, len(phases))
	var cum float64
	for _, p := range phases {
		lo := cum / total * 100
		cum += weightOf(p)
		bands[p] = band{lo: lo, hi: cum / total * 100}
	}

	t.mu.Lock()
	t.gen++
	t.bands = bands
	t.percent = 0
	t.cur = Progress{
		OperationID: operationID,
		Operation:   operation,
		Phase:       PhaseIdle,
		UpdatedAt:   time.Now(),
	}
	if len(phases) > 0 {
		t.cur.Phase = phases[0]
	}
	t.notifyLocked()
	t.mu.Unlock()
}

func weightOf(p Phase) float64 {
	if w, ok := phaseWeights[p]; ok {
		return w
	}
	return 1
}

// Advance records that done of total records in phase are processed.
func (t *ProgressTracker) Advance(phase Phase, done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.bands[phase]
	if !ok {
		return
	}

	pct := b.hi
	if total > 0 {
		if done > total {
			done = total
		}
		pct = b.lo + (b.hi-b.lo)*float64(done)/float64(total)
	}
	if pct > t.percent {
		t.percent = pct
	}

	t.cur.Phase = phase
	t.cur.Current = done
	t.cur.Total = total
	t.cur.Percent = int(math.Floor(t.percent + 1e-9))
	t.cur.UpdatedAt = time.Now()
	t.notifyLocked()
}

// Finish marks the operation complete (or failed when err is non-nil) and
// schedules the reset to idle.
func (t *ProgressTracker) Finish(err error) {
	t.mu.Lock()
	if err != nil {
		t.cur.Phase = PhaseFailed
		t.cur.Error = err.Error()
	} else {
		t.cur.Phase = PhaseComplete
		t.percent = 100
		t.cur.Percent = 100
	}
	t.cur.UpdatedAt = time.Now()
	gen := t.gen
	t.notifyLocked()
	t.mu.Unlock()

	time.AfterFunc(t.resetDelay, func() { t.reset(gen) })
}

// reset returns to idle unless another operation started meanwhile.
func (t *ProgressTracker) reset(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.gen != gen {
		return
	}
	t.percent = 0
	t.bands = nil
	t.cur = Progress{Phase: PhaseIdle, UpdatedAt: time.Now()}
	t.notifyLocked()
}

// Snapshot returns the current progress without blocking.
func (t *ProgressTracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cur
}

// Subscribe returns a channel receiving every update, starting with the
// current snapshot, and a function that detaches it.
func (t *ProgressTracker) Subscribe() (<-chan Progress, func()) {
	ch := make(chan Progress, 10)

	t.mu.Lock()
	t.listeners[ch] = struct{}{}
	// Send current progress immediately
	ch <- t.cur
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, ch)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// notifyLocked sends the current progress to all listeners. Caller holds mu.
func (t *ProgressTracker) notifyLocked() {
	for ch := range t.listeners {
		select {
		case ch <- t.cur:
		default:
			// Listener is slow, skip this update
		}
	}
}
