package history

import (
	"math"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
)

// DefaultCapacity is the number of scoring passes kept for display
const DefaultCapacity = 5

// Entry is the compact record of one scoring pass
type Entry struct {
	Timestamp    time.Time          `json:"timestamp"`
	Probability  float64            `json:"probability"`
	RiskLevel    analysis.RiskLevel `json:"risk_level"`
	Severity     analysis.Severity  `json:"severity"`
	ExpectedLoss int64              `json:"expected_loss"`
}

// NewEntry rounds probability to two decimals and truncates the loss
func NewEntry(at time.Time, risk analysis.RiskAssessment) Entry {
	return Entry{
		Timestamp:    at,
		Probability:  math.Round(risk.Probability*100) / 100,
		RiskLevel:    risk.RiskLevel,
		Severity:     risk.Severity,
		ExpectedLoss: int64(risk.ExpectedLoss),
	}
}

// Buffer is a bounded FIFO of entries. Appends past capacity evict the oldest.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
	}
}

// Append adds e then truncates to capacity
func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, e)
	if over := len(b.entries) - b.capacity; over > 0 {
		b.entries = append(b.entries[:0], b.entries[over:]...)
	}
}

// Entries returns a copy in chronological order
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]Entry(nil), b.entries...)
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Buffer) Capacity() int { return b.capacity }

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
}
