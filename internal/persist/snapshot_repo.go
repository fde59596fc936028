package persist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/pooling/internal/metrics"
)

const insertSnapshotSQL = `INSERT INTO pool_snapshots
	(run_id, tick, kind, available, in_use, capacity, created, allocations, recycled, exhausted, dropped, taken_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// SnapshotRepo writes pool stats history. Rows are never read back by
// poolsim itself; pools always start empty.
type SnapshotRepo struct {
	db    *DB
	runID uuid.UUID
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db, runID: uuid.New()}
}

func (r *SnapshotRepo) RunID() uuid.UUID { return r.runID }

// StartRun records this process's run.
func (r *SnapshotRepo) StartRun(ctx context.Context, serverName string, pooling bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO pool_runs (run_id, server_name, pooling) VALUES ($1, $2, $3)`,
		r.runID, serverName, pooling,
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's stop time.
func (r *SnapshotRepo) FinishRun(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE pool_runs SET stopped_at = now() WHERE run_id = $1`, r.runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Save writes one row per pool in a single batch.
func (r *SnapshotRepo) Save(ctx context.Context, snap *metrics.Snapshot) error {
	batch := buildSnapshotBatch(r.runID, snap)
	if batch.Len() == 0 {
		return nil
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save snapshot tick %d: %w", snap.Tick, err)
		}
	}
	return nil
}

func buildSnapshotBatch(runID uuid.UUID, snap *metrics.Snapshot) *pgx.Batch {
	batch := &pgx.Batch{}
	if snap == nil {
		return batch
	}
	for _, p := range snap.Pools {
		batch.Queue(insertSnapshotSQL,
			runID, int64(snap.Tick), p.Kind,
			p.Available, p.InUse, p.Capacity,
			int64(p.Created), int64(p.Allocations), int64(p.Recycled),
			int64(p.Exhausted), int64(p.Dropped),
			snap.At,
		)
	}
	return batch
}
