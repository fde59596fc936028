package system

import (
	"context"
	"time"

	coresys "github.com/l1jgo/pooling/internal/core/system"
	"github.com/l1jgo/pooling/internal/metrics"
	"go.uber.org/zap"
)

// SnapshotSaver stores one published snapshot (persist.SnapshotRepo).
type SnapshotSaver interface {
	Save(ctx context.Context, snap *metrics.Snapshot) error
}

// SnapshotPersistSystem writes the latest snapshot to the database every N
// ticks. Phase 4 (Persist).
type SnapshotPersistSystem struct {
	board     *metrics.Board
	saver     SnapshotSaver
	log       *zap.Logger
	tickCount int
	interval  int
	lastTick  uint64
}

func NewSnapshotPersistSystem(board *metrics.Board, saver SnapshotSaver, log *zap.Logger, intervalTicks int) *SnapshotPersistSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &SnapshotPersistSystem{
		board:    board,
		saver:    saver,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *SnapshotPersistSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *SnapshotPersistSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Flush saves the current snapshot unless it was already saved. Also
// called on shutdown.
func (s *SnapshotPersistSystem) Flush() {
	snap := s.board.Load()
	if snap == nil || snap.Tick == 0 || snap.Tick == s.lastTick {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.saver.Save(ctx, snap); err != nil {
		s.log.Error("save pool snapshot", zap.Uint64("tick", snap.Tick), zap.Error(err))
		return
	}
	s.lastTick = snap.Tick
}
