package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain admin commands
	PhaseDispatch                // 1: deliver last tick's events
	PhaseUpdate                  // 2: workload, timers
	PhasePostUpdate              // 3: publish stats
	PhasePersist                 // 4: snapshot to database
	PhaseCleanup                 // 5: flush deferred destroys
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
