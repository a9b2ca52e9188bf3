package embedding

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes periodic progress lines for an embedding run.
// It reports once per interval of processed chunks and a summary line
// on Finish. Safe for use from multiple goroutines.
type ProgressTracker struct {
	mu sync.Mutex

	w        io.Writer
	total    int
	every    int
	done     int
	reported int
	begun    time.Time
}

// NewProgressTracker returns a tracker that reports to w once per
// `every` chunks out of total. An interval below 1 is treated as 1.
func NewProgressTracker(w io.Writer, total, every int) *ProgressTracker {
	if every < 1 {
		every = 1
	}
	return &ProgressTracker{w: w, total: total, every: every}
}

// Start marks the beginning of a run and resets any prior progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begun = time.Now()
	p.done = 0
	p.reported = 0
}

// Increment advances progress by delta chunks, emitting a report when a
// full interval has passed since the last one. A no-op before Start.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.begun.IsZero() {
		return
	}
	p.done += delta
	if p.done > p.total {
		p.done = p.total
	}
	if p.done-p.reported >= p.every {
		p.emit()
		p.reported = p.done
	}
}

// Finish emits the final line and terminates the run.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.begun.IsZero() {
		return
	}
	p.done = p.total
	p.emit()
	fmt.Fprintln(p.w)
	p.begun = time.Time{}
}

// emit writes one progress line. Callers hold p.mu.
func (p *ProgressTracker) emit() {
	elapsed := time.Since(p.begun)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.done) / elapsed.Seconds()
	}
	pct := 0.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.w, "\rEmbedding: %d/%d chunks (%.1f%%) %.1f chunks/s",
		p.done, p.total, pct, rate)
}
