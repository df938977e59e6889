package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
)

func TestNewEntry(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewEntry(at, analysis.AssessRisk(0.5625))

	assert.Equal(t, at, e.Timestamp)
	assert.Equal(t, 0.56, e.Probability)
	assert.Equal(t, analysis.RiskMedium, e.RiskLevel)
	assert.Equal(t, analysis.SeverityActSoon, e.Severity)
	assert.Equal(t, int64(56250), e.ExpectedLoss)
}

func TestBufferKeepsMostRecentFive(t *testing.T) {
	b := NewBuffer(DefaultCapacity)
	base := time.Now()

	for i := 1; i <= 7; i++ {
		b.Append(Entry{Timestamp: base.Add(time.Duration(i) * time.Second), ExpectedLoss: int64(i)})
	}

	entries := b.Entries()
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, int64(i+3), e.ExpectedLoss, "passes 3 through 7 in order")
	}
}

func TestBufferBelowCapacity(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, DefaultCapacity, b.Capacity())

	b.Append(Entry{ExpectedLoss: 1})
	b.Append(Entry{ExpectedLoss: 2})
	assert.Equal(t, 2, b.Len())

	entries := b.Entries()
	entries[0].ExpectedLoss = 99
	assert.Equal(t, int64(1), b.Entries()[0].ExpectedLoss, "Entries returns a copy")

	b.Clear()
	assert.Equal(t, 0, b.Len())
}
