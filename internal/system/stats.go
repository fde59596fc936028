package system

import (
	"time"

	coresys "github.com/l1jgo/pooling/internal/core/system"
	"github.com/l1jgo/pooling/internal/metrics"
	"github.com/l1jgo/pooling/internal/pool"
)

// StatsSystem publishes a registry snapshot for the admin API and metrics
// every tick. Phase 3 (PostUpdate).
type StatsSystem struct {
	registry *pool.Registry
	board    *metrics.Board
	ticks    uint64
	now      func() time.Time
}

func NewStatsSystem(reg *pool.Registry, board *metrics.Board) *StatsSystem {
	return &StatsSystem{registry: reg, board: board, now: time.Now}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *StatsSystem) Update(_ time.Duration) {
	s.ticks++
	s.Publish()
}

// Publish stores the current state without advancing the tick count.
func (s *StatsSystem) Publish() {
	s.board.Publish(&metrics.Snapshot{
		Tick:    s.ticks,
		Pooling: s.registry.PoolingEnabled(),
		Pools:   s.registry.Snapshot(),
		At:      s.now(),
	})
}
