package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for batch audits.
type ProgressReporter interface {
	Start(total int)
	Update(done int)
	Finish()
	Error(err error)
}

// SimpleProgress renders a one-line text progress bar.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int
	done    int
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr so that stdout stays parseable.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		writer: w,
	}
}

// Start initializes the reporter with the number of documents.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.started = time.Now()

	p.render()
}

// Update records that done documents have finished. Updates may arrive
// out of order from concurrent workers; the count never goes backwards.
func (p *SimpleProgress) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if done <= p.done {
		return
	}
	p.done = done
	p.render()
}

// Finish marks the progress as complete.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error during progress.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\nError: %v\n", err)
}

func (p *SimpleProgress) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.done) / float64(p.total) * 100
	barWidth := 40
	filled := int(float64(barWidth) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	var rate float64
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.done) / elapsed
	}

	fmt.Fprintf(p.writer, "\rAuditing: [%s] %.1f%% (%d/%d) %.1f docs/s",
		bar, percent, p.done, p.total, rate)
}

// BatchProgress adapts a reporter to the batch runner's progress hook.
// The reporter is started on the first call.
func BatchProgress(p ProgressReporter) func(done, total int) {
	var once sync.Once
	return func(done, total int) {
		once.Do(func() { p.Start(total) })
		p.Update(done)
	}
}
