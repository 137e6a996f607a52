package reembed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock advances by step on every reading.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestProgressTracker_ReportsEveryInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)
	tracker.now = fakeClock(time.Second)

	tracker.Start()
	tracker.Add(5)
	assert.Empty(t, buf.String(), "below the interval")

	tracker.Add(5)
	assert.Contains(t, buf.String(), "Reembedded 10/100 chunks (10.0%)")

	tracker.Add(40)
	assert.Equal(t, 2, strings.Count(buf.String(), "\r"))
	assert.Equal(t, 50, tracker.Done())
}

func TestProgressTracker_ETA(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 50)
	tracker.now = fakeClock(10 * time.Second)

	tracker.Start()  // t=10s
	tracker.Add(50) // printed at t=20s: 50 chunks in 10s, 50 remaining

	assert.Contains(t, buf.String(), "5.0 chunks/s, eta 10s")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Add(75)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100 chunks (100.0%)")
	assert.Contains(t, output, "eta -")
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestProgressTracker_ClampsToTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Add(150)

	assert.Equal(t, 100, tracker.Done())
	assert.Contains(t, buf.String(), "100/100")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 10)

	tracker.Start()
	tracker.Finish()
	assert.Contains(t, buf.String(), "0/0 chunks (0.0%)")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Add(5)
	tracker.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}
