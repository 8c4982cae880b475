/*
phase.go - Phase and Timeline value types

PURPOSE:
  A Timeline is the ordered list of installment phases splitting an approved
  grant amount. Order is significant (first/second/third installment). All
  operations return a new Timeline; the caller owns the value and decides
  when to persist or discard it.

INVARIANTS:
  1. Phase ids are unique within a timeline
  2. New ids are max(existing)+1, never reusing a gap
  3. Remove never leaves the timeline empty (ErrLastPhase)
*/
package disburse

// Phase is a single disbursement step. The id is local to one timeline;
// persisted stores derive their own identifiers on save.
type Phase struct {
	ID                   int    `json:"id"`
	Description          string `json:"description"`
	Percentage           int    `json:"percentage"`
	DueDate              Date   `json:"dueDate"`
	RequiresVerification bool   `json:"requiresVerification,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

// Timeline is an ordered sequence of phases.
type Timeline struct {
	Phases []Phase `json:"phases"`
}

// NewTimeline builds a timeline from phases, assigning sequential ids to any
// phase with a zero id.
func NewTimeline(phases ...Phase) Timeline {
	t := Timeline{}
	for _, p := range phases {
		t, _ = t.Append(p)
	}
	return t
}

// Len returns the number of phases.
func (t Timeline) Len() int { return len(t.Phases) }

// Get returns the phase with the given id.
func (t Timeline) Get(id int) (Phase, bool) {
	for _, p := range t.Phases {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// NextID returns one greater than the current maximum id, or 1 when empty.
func (t Timeline) NextID() int {
	max := 0
	for _, p := range t.Phases {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1
}

// Append adds a new phase at the end of the timeline. The supplied phase
// acts as field defaults; its id is always replaced with a fresh one.
// Returns the new timeline and the phase as appended.
func (t Timeline) Append(defaults Phase) (Timeline, Phase) {
	p := defaults
	p.ID = t.NextID()
	phases := make([]Phase, len(t.Phases), len(t.Phases)+1)
	copy(phases, t.Phases)
	return Timeline{Phases: append(phases, p)}, p
}

// Remove deletes the phase with the given id. Fails with ErrLastPhase if the
// removal would leave the timeline empty, and ErrPhaseNotFound if the id is
// not present.
func (t Timeline) Remove(id int) (Timeline, error) {
	idx := -1
	for i, p := range t.Phases {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return t, ErrPhaseNotFound
	}
	if len(t.Phases) == 1 {
		return t, ErrLastPhase
	}
	phases := make([]Phase, 0, len(t.Phases)-1)
	phases = append(phases, t.Phases[:idx]...)
	phases = append(phases, t.Phases[idx+1:]...)
	return Timeline{Phases: phases}, nil
}

// Update applies fn to the phase with the given id. The id itself is
// preserved even if fn changes it.
func (t Timeline) Update(id int, fn func(Phase) Phase) (Timeline, error) {
	idx := -1
	for i, p := range t.Phases {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return t, ErrPhaseNotFound
	}
	phases := make([]Phase, len(t.Phases))
	copy(phases, t.Phases)
	updated := fn(phases[idx])
	updated.ID = id
	phases[idx] = updated
	return Timeline{Phases: phases}, nil
}

// ReplaceAll overwrites the whole list. Used when loading scheme defaults
// and when restoring a persisted timeline for editing. A phase without an
// id, or with an id already placed, gets a fresh one so the result never
// holds duplicate ids.
func (t Timeline) ReplaceAll(phases []Phase) Timeline {
	replacement := Timeline{Phases: make([]Phase, 0, len(phases))}
	seen := make(map[int]bool, len(phases))
	for _, p := range phases {
		if p.ID == 0 || seen[p.ID] {
			p.ID = replacement.NextID()
		}
		seen[p.ID] = true
		replacement.Phases = append(replacement.Phases, p)
	}
	return replacement
}

// CheckPercentages validates each phase percentage is within 0..100.
func (t Timeline) CheckPercentages() error {
	for _, p := range t.Phases {
		if p.Percentage < 0 || p.Percentage > 100 {
			return ErrInvalidPercentage
		}
	}
	return nil
}
