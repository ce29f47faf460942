// Package metrics provides lightweight phase timing for report runs.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timers tracks named phase durations of one report run.
type Timers struct {
	phases map[string]*phase
	order  []string
}

type phase struct {
	start   time.Time
	elapsed time.Duration
	running bool
}

func NewTimers() *Timers {
	return &Timers{phases: make(map[string]*phase)}
}

// Start begins (or resumes) a phase timer.
func (t *Timers) Start(name string) {
	p, ok := t.phases[name]
	if !ok {
		p = &phase{}
		t.phases[name] = p
		t.order = append(t.order, name)
	}
	p.start = time.Now()
	p.running = true
}

// Stop ends a phase timer, accumulating into its total.
func (t *Timers) Stop(name string) {
	p, ok := t.phases[name]
	if !ok || !p.running {
		return
	}
	p.elapsed += time.Since(p.start)
	p.running = false
}

// Elapsed returns the accumulated duration of a phase.
func (t *Timers) Elapsed(name string) time.Duration {
	p, ok := t.phases[name]
	if !ok {
		return 0
	}
	d := p.elapsed
	if p.running {
		d += time.Since(p.start)
	}
	return d
}

// Summary renders every phase in start order, longest-lived names padded for
// scanability.
func (t *Timers) Summary() string {
	names := make([]string, len(t.order))
	copy(names, t.order)
	sort.SliceStable(names, func(i, j int) bool {
		return t.Elapsed(names[i]) > t.Elapsed(names[j])
	})
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s=%.2fs", n, t.Elapsed(n).Seconds()))
	}
	return strings.Join(parts, " ")
}
