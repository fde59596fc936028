package metrics

import (
	"sync/atomic"
	"time"

	"github.com/l1jgo/pooling/internal/pool"
)

// Snapshot is the registry state as of one tick.
type Snapshot struct {
	Tick    uint64       `json:"tick"`
	Pooling bool         `json:"pooling"`
	Pools   []pool.Stats `json:"pools"`
	At      time.Time    `json:"at"`
}

// Find returns the stats for kind.
func (s *Snapshot) Find(kind string) (pool.Stats, bool) {
	for _, p := range s.Pools {
		if p.Kind == kind {
			return p, true
		}
	}
	return pool.Stats{}, false
}

// Board is where the game loop publishes snapshots for other goroutines
// (admin HTTP, Prometheus scrapes). Published snapshots are never mutated.
type Board struct {
	cur atomic.Pointer[Snapshot]
}

func NewBoard() *Board {
	b := &Board{}
	b.cur.Store(&Snapshot{})
	return b
}

func (b *Board) Publish(s *Snapshot) {
	if s != nil {
		b.cur.Store(s)
	}
}

func (b *Board) Load() *Snapshot {
	return b.cur.Load()
}
