package persist

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/pooling/internal/metrics"
	"github.com/l1jgo/pooling/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		raw, err := fs.ReadFile(migrations, f)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "-- +goose Up", f)
		assert.Contains(t, string(raw), "-- +goose Down", f)
	}
}

func TestBuildSnapshotBatch(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, 0, buildSnapshotBatch(id, nil).Len())
	assert.Equal(t, 0, buildSnapshotBatch(id, &metrics.Snapshot{Tick: 1}).Len())

	b := buildSnapshotBatch(id, &metrics.Snapshot{Tick: 9, At: at, Pools: []pool.Stats{
		{Kind: "arrow", Available: 1, InUse: 2, Capacity: 3, Allocations: 4},
		{Kind: "slime", Capacity: 5, Dropped: 6},
	}})
	require.Equal(t, 2, b.Len())

	q := b.QueuedQueries[1]
	assert.True(t, strings.HasPrefix(q.SQL, "INSERT INTO pool_snapshots"))
	require.Len(t, q.Arguments, 12)
	assert.Equal(t, id, q.Arguments[0])
	assert.Equal(t, int64(9), q.Arguments[1])
	assert.Equal(t, "slime", q.Arguments[2])
	assert.Equal(t, int64(6), q.Arguments[10])
	assert.Equal(t, at, q.Arguments[11])
}

func TestRepoRunIDsDiffer(t *testing.T) {
	a, b := NewSnapshotRepo(nil), NewSnapshotRepo(nil)
	assert.NotEqual(t, a.RunID(), b.RunID())
}
