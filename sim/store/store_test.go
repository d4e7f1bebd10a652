package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/loss-sim/sim"
	"github.com/inference-sim/loss-sim/sim/traffic"
)

func model(a float64, v int) sim.ModelDescription {
	return sim.ModelDescription{
		Class: traffic.Descriptor{A: a, ArrivalType: traffic.Poisson, ArrivalE2D2: 1, ServiceType: traffic.Pareto, ServiceE2D2: 20},
		V:     v,
	}
}

func series(uuid, version string, minEvents uint64) sim.FinalizedStatistics {
	return sim.FinalizedStatistics{
		States:     []sim.Macrostate{{P: 0.25, OutNew: 1}, {P: 0.75, OutNew: 1, OutEnd: 0.5}},
		V:          1,
		NoOfEvents: 4242,
		Metadata:   sim.Metadata{UUID: uuid, Version: version, MinEventsPerState: minEvents, Threshold: minEvents, Converged: true},
	}
}

// resultStore is the shape every backend in this package satisfies.
type resultStore interface {
	Find(ctx context.Context, model sim.ModelDescription, minVersion string, minThreshold uint64) ([]sim.FinalizedStatistics, error)
	Insert(ctx context.Context, model sim.ModelDescription, stats sim.FinalizedStatistics) error
	Close() error
}

// runStoreTests runs the shared behavior suite against a backend.
func runStoreTests(t *testing.T, newStore func(t *testing.T) resultStore) {
	ctx := context.Background()

	t.Run("insert then find", func(t *testing.T) {
		s := newStore(t)
		want := series("u1", "v0.3.0", 100)
		require.NoError(t, s.Insert(ctx, model(8, 1), want))

		got, err := s.Find(ctx, model(8, 1), "v0.3.0", 100)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, want, got[0])
	})

	t.Run("keys separate cells", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, model(8, 1), series("a", "v0.3.0", 100)))
		require.NoError(t, s.Insert(ctx, model(9, 1), series("b", "v0.3.0", 100)))
		require.NoError(t, s.Insert(ctx, model(8, 2), series("c", "v0.3.0", 100)))

		got, err := s.Find(ctx, model(8, 1), "", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].Metadata.UUID)
	})

	t.Run("filters by version and threshold", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, model(8, 1), series("old", "v0.2.0", 1000)))
		require.NoError(t, s.Insert(ctx, model(8, 1), series("weak", "v0.4.0", 10)))
		require.NoError(t, s.Insert(ctx, model(8, 1), series("ok1", "v0.3.0", 100)))
		require.NoError(t, s.Insert(ctx, model(8, 1), series("ok2", "0.10.0", 200)))

		got, err := s.Find(ctx, model(8, 1), "v0.3.0", 100)
		require.NoError(t, err)
		uuids := make([]string, len(got))
		for i, g := range got {
			uuids[i] = g.Metadata.UUID
		}
		assert.Equal(t, []string{"ok1", "ok2"}, uuids)
	})

	t.Run("unknown cell is empty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Find(ctx, model(1, 1), "", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) resultStore {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) resultStore {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	// GIVEN a series written to a database file
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), model(10, 3), series("kept", "v0.3.0", 100)))
	require.NoError(t, s.Close())

	// WHEN the file is reopened
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	// THEN the series is still there
	got, err := s.Find(context.Background(), model(10, 3), "", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Metadata.UUID)
}

func TestSQLiteStore_DuplicateUUID_Errors(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(context.Background(), model(8, 1), series("dup", "v0.3.0", 1)))
	assert.Error(t, s.Insert(context.Background(), model(8, 1), series("dup", "v0.3.0", 1)))
}

func TestNewSQLiteStore_BadPath_Errors(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "dir", "results.db"))
	assert.Error(t, err)
}

func TestMemoryStore_Len(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Insert(context.Background(), model(8, 1), series("a", "v0.3.0", 1)))
	require.NoError(t, m.Insert(context.Background(), model(8, 2), series("b", "v0.3.0", 1)))
	assert.Equal(t, 2, m.Len())
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name       string
		version    string
		minEvents  uint64
		minVersion string
		threshold  uint64
		want       bool
	}{
		{"equal version and threshold", "v0.3.0", 100, "v0.3.0", 100, true},
		{"newer patch", "v0.3.1", 100, "v0.3.0", 100, true},
		{"numeric not lexical ordering", "v0.10.0", 100, "v0.9.0", 100, true},
		{"older version", "v0.2.9", 100, "v0.3.0", 100, false},
		{"below threshold", "v0.3.0", 99, "v0.3.0", 100, false},
		{"missing v prefix", "0.3.0", 100, "0.3.0", 100, true},
		{"empty minimum accepts any version", "garbage", 100, "", 100, true},
		{"unparseable record version", "garbage", 100, "v0.1.0", 100, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			md := sim.Metadata{Version: tc.version, MinEventsPerState: tc.minEvents}
			assert.Equal(t, tc.want, Compatible(md, tc.minVersion, tc.threshold))
		})
	}
}

func TestKey_StableAndDistinct(t *testing.T) {
	assert.Equal(t, Key(model(8, 1)), Key(model(8, 1)))
	assert.NotEqual(t, Key(model(8, 1)), Key(model(8, 2)))
	assert.NotEqual(t, Key(model(8, 1)), Key(model(8.5, 1)))
	assert.Equal(t, "a=8/arr=poisson/arr_e2d2=1/serv=pareto/serv_e2d2=20/v=1", Key(model(8, 1)))
}

func TestValidVersion(t *testing.T) {
	assert.True(t, ValidVersion("v0.3.0"))
	assert.True(t, ValidVersion("1.2.3"))
	assert.False(t, ValidVersion("latest"))
}
