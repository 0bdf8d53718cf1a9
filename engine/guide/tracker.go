// Package guide tracks a user's progress through an ordered repair sequence.
package guide

// NoneExpanded is the sentinel for "no step detail panel is open".
const NoneExpanded = -1

// Tracker walks an immutable ordered step list. It tracks the active step,
// the single expanded step, and the growing set of completed step indices.
type Tracker struct {
	steps     int
	current   int
	expanded  int
	completed map[int]bool
}

// NewTracker creates a Tracker for a guide with the given number of steps.
func NewTracker(steps int) *Tracker {
	if steps < 0 {
		steps = 0
	}
	return &Tracker{
		steps:     steps,
		expanded:  NoneExpanded,
		completed: make(map[int]bool),
	}
}

// Steps returns the step count.
func (t *Tracker) Steps() int { return t.steps }

// CurrentStep returns the index of the active (highlighted) step.
func (t *Tracker) CurrentStep() int { return t.current }

// ExpandedStep returns the index of the open detail panel, or NoneExpanded.
func (t *Tracker) ExpandedStep() int { return t.expanded }

// IsComplete reports whether step i has been marked complete.
func (t *Tracker) IsComplete(i int) bool { return t.completed[i] }

// CompletedCount returns the number of completed steps.
func (t *Tracker) CompletedCount() int { return len(t.completed) }

// ToggleExpand opens step i's detail panel, collapsing any other open panel,
// and makes i the active step. Toggling the already-open step collapses it.
// Out-of-range indices are ignored.
func (t *Tracker) ToggleExpand(i int) {
	if i < 0 || i >= t.steps {
		return
	}
	if t.expanded == i {
		t.expanded = NoneExpanded
		return
	}
	t.expanded = i
	t.current = i
}

// MarkComplete adds step i to the completed set. Completion is monotone:
// there is no way to un-complete a step within a session. Unless i is the
// last step, the next step is auto-expanded and activated.
func (t *Tracker) MarkComplete(i int) {
	if i < 0 || i >= t.steps {
		return
	}
	t.completed[i] = true
	if i < t.steps-1 {
		t.expanded = i + 1
		t.current = i + 1
	}
}

// Progress returns the completed fraction in [0,1]. A guide with no steps
// reports 0.
func (t *Tracker) Progress() float64 {
	if t.steps == 0 {
		return 0
	}
	return float64(len(t.completed)) / float64(t.steps)
}

// AllComplete reports whether every step has been marked complete. The
// completion screen is reachable only once this is true.
func (t *Tracker) AllComplete() bool {
	return t.steps > 0 && len(t.completed) == t.steps
}
