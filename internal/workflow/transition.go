package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valksor/go-phaseflow/internal/events"
	"github.com/valksor/go-phaseflow/internal/phase"
)

// ErrNoCurrentPhase is returned when a transition needs a current phase and
// none is set.
var ErrNoCurrentPhase = errors.New("no current phase")

// ErrBlocked matches *BlockedError with errors.Is.
var ErrBlocked = errors.New("phase has pending tasks")

// BlockedError lists the tasks preventing a phase from completing.
type BlockedError struct {
	Phase   phase.Phase
	Pending []TaskWithStatus
}

func (e *BlockedError) Error() string {
	idx := make([]string, len(e.Pending))
	for i, t := range e.Pending {
		idx[i] = fmt.Sprintf("#%d", t.Index)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrBlocked, e.Phase, strings.Join(idx, ", "))
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrBlocked
}

// CompletePhaseIfReady completes the current phase when it has at least one
// tagged task and none of them are pending. It returns the phase and whether
// it is (now or already) complete. The current pointer does not move.
func (s *Store) CompletePhaseIfReady() (phase.Phase, bool) {
	s.mu.Lock()
	current := s.current
	if current == phase.None || !s.readyLocked(current) {
		s.mu.Unlock()
		return current, false
	}
	added := s.completePhaseLocked(current)
	s.mu.Unlock()

	if added {
		s.emit(events.PhaseCompletedEvent{Phase: string(current)})
	}
	return current, true
}

// readyLocked is the auto-advance guard: tagged tasks exist and all are done.
func (s *Store) readyLocked(p phase.Phase) bool {
	return len(s.tasksForPhaseLocked(p)) > 0 && len(s.pendingForPhaseLocked(p)) == 0
}

// AdvanceIfPossible completes the current phase and moves to the next phase
// of the scope, or to phase.None when the current phase was the last one.
// The move is recorded in the history with the given trigger.
//
// It fails with ErrNoCurrentPhase when nothing is current and with a
// *BlockedError when the current phase still has pending tasks; in both
// cases the store is unchanged.
func (s *Store) AdvanceIfPossible(trigger Trigger) (Transition, error) {
	s.mu.Lock()

	from := s.current
	if from == phase.None {
		s.mu.Unlock()
		return Transition{}, ErrNoCurrentPhase
	}
	if pending := s.pendingForPhaseLocked(from); len(pending) > 0 {
		s.mu.Unlock()
		return Transition{}, &BlockedError{Phase: from, Pending: pending}
	}

	added := s.completePhaseLocked(from)
	to := phase.Next(from, s.scope)
	s.current = to
	s.history = append(s.history, HistoryEntry{
		From:    from,
		To:      to,
		Trigger: trigger,
		At:      s.now(),
	})
	scope := s.scope
	s.mu.Unlock()

	evts := make([]events.Eventer, 0, 3)
	if added {
		evts = append(evts, events.PhaseCompletedEvent{Phase: string(from)})
	}
	evts = append(evts, events.PhaseAdvancedEvent{
		From:    string(from),
		To:      string(to),
		Trigger: string(trigger),
	})
	if to == phase.None {
		evts = append(evts, events.WorkflowCompletedEvent{Scope: string(scope)})
	}
	s.emit(evts...)

	return Transition{From: from, To: to, Finished: to == phase.None}, nil
}
