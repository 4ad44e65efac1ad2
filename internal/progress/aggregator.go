// Package progress bridges fractional and textual progress samples from
// pipeline workers to a user-facing update sink, throttling fractional
// updates so the sink is never flooded.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wisevoice/wisevoice/pkg/logger"
)

// Event is one progress sample. A non-empty Status marks a textual update;
// otherwise Fraction carries fractional completion in [0,1].
type Event struct {
	Fraction  float64
	Status    string
	Timestamp time.Time
}

// StatusEvent builds a textual event.
func StatusEvent(status string) Event {
	return Event{Status: status, Timestamp: time.Now().UTC()}
}

// FractionEvent builds a fractional event.
func FractionEvent(fraction float64) Event {
	return Event{Fraction: fraction, Timestamp: time.Now().UTC()}
}

// ErrUnchanged is returned by a Sink when the displayed content did not
// change. The aggregator treats it as a no-op, not a failure.
var ErrUnchanged = errors.New("update content unchanged")

// Sink receives rendered progress text for one logical target (for example
// a status message being edited in place). A Sink may reject an update with
// ErrUnchanged without that counting as an error.
type Sink interface {
	Update(ctx context.Context, target string, text string) error
}

const (
	minUpdateInterval = 3 * time.Second
	minFractionDelta  = 0.05
	barCells          = 10
)

// targetState is the last forwarded sample per logical target.
type targetState struct {
	lastTime     time.Time
	lastFraction float64
}

// Aggregator forwards progress events to a sink with rate- and delta-based
// throttling. Fractional state is tracked independently per target; the map
// is safe for concurrent jobs.
type Aggregator struct {
	sink   Sink
	logger *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	targets map[string]*targetState
}

// NewAggregator creates an aggregator over the given sink.
func NewAggregator(sink Sink, log *logger.Logger) *Aggregator {
	return &Aggregator{
		sink:    sink,
		logger:  log.Named("progress"),
		now:     time.Now,
		targets: make(map[string]*targetState),
	}
}

// Report conditionally forwards one event for the given target. A textual
// status is always forwarded; a fractional update is forwarded only when the
// elapsed time, the fraction delta, or near-completion crosses a threshold.
// Forwarding failures are logged and swallowed: progress reporting never
// aborts the pipeline.
func (a *Aggregator) Report(ctx context.Context, target string, event Event) {
	state := a.state(target)

	if event.Status != "" {
		if err := a.sink.Update(ctx, target, event.Status); err != nil {
			a.warnUpdate(target, err)
			return
		}
		a.mu.Lock()
		state.lastTime = a.now()
		a.mu.Unlock()
		return
	}

	a.mu.Lock()
	elapsed := a.now().Sub(state.lastTime)
	delta := event.Fraction - state.lastFraction
	if delta < 0 {
		delta = -delta
	}
	a.mu.Unlock()

	if elapsed < minUpdateInterval && event.Fraction < 0.99 && delta < minFractionDelta {
		return
	}

	fraction := clamp(event.Fraction)
	if err := a.sink.Update(ctx, target, renderFraction(fraction)); err != nil {
		a.warnUpdate(target, err)
		return
	}

	a.mu.Lock()
	state.lastTime = a.now()
	state.lastFraction = fraction
	a.mu.Unlock()
}

// Forget drops the throttle state for a target once its job has ended.
func (a *Aggregator) Forget(target string) {
	a.mu.Lock()
	delete(a.targets, target)
	a.mu.Unlock()
}

func (a *Aggregator) state(target string) *targetState {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.targets[target]
	if !ok {
		// lastFraction starts below zero so the first sample always
		// clears the delta threshold.
		state = &targetState{lastFraction: -1}
		a.targets[target] = state
	}
	return state
}

func (a *Aggregator) warnUpdate(target string, err error) {
	if errors.Is(err, ErrUnchanged) {
		return
	}
	a.logger.Warn("Failed to forward progress update",
		logger.String("target", target),
		logger.Error(err))
}

func clamp(fraction float64) float64 {
	if fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}

// renderFraction maps a fraction to a 10-cell bar, integer percentage, and
// band-specific wording.
func renderFraction(fraction float64) string {
	filled := int(fraction * barCells)
	if filled > barCells {
		filled = barCells
	}
	bar := strings.Repeat("🟪", filled) + strings.Repeat("⬜", barCells-filled)
	percent := int(fraction * 100)

	switch {
	case fraction < 0.3:
		return fmt.Sprintf("📥 Downloading video...\n%s %d%%", bar, percent)
	case fraction < 0.7:
		return fmt.Sprintf("⚙️ Processing audio...\n%s %d%%", bar, percent)
	default:
		return fmt.Sprintf("📊 Formatting...\n%s %d%%", bar, percent)
	}
}
