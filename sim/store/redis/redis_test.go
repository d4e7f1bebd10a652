package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/loss-sim/sim"
	"github.com/inference-sim/loss-sim/sim/traffic"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	s := NewStore(client)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func model(v int) sim.ModelDescription {
	return sim.ModelDescription{
		Class: traffic.Descriptor{A: 2, ArrivalType: traffic.Gamma, ArrivalE2D2: 0.5, ServiceType: traffic.Poisson, ServiceE2D2: 1},
		V:     v,
	}
}

func series(uuid, version string, minEvents uint64) sim.FinalizedStatistics {
	return sim.FinalizedStatistics{
		States:     []sim.Macrostate{{P: 0.4, OutNew: 2}, {P: 0.6, OutNew: 2, OutEnd: 1}},
		V:          1,
		NoOfEvents: 1000,
		Metadata:   sim.Metadata{UUID: uuid, Version: version, MinEventsPerState: minEvents, Threshold: minEvents, Converged: true},
	}
}

func TestStore_InsertThenFind_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	want := series("u1", "v0.3.0", 100)
	require.NoError(t, s.Insert(ctx, model(1), want))

	got, err := s.Find(ctx, model(1), "v0.3.0", 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])

	cells, err := s.Cells(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cells)
}

func TestStore_Find_FiltersByVersionAndThreshold(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, model(1), series("old", "v0.2.9", 500)))
	require.NoError(t, s.Insert(ctx, model(1), series("weak", "v0.3.0", 50)))
	require.NoError(t, s.Insert(ctx, model(1), series("good", "v0.3.1", 500)))
	require.NoError(t, s.Insert(ctx, model(2), series("other-cell", "v0.3.1", 500)))

	got, err := s.Find(ctx, model(1), "v0.3.0", 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Metadata.UUID)
}

func TestStore_Find_UnknownCell_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.Find(context.Background(), model(7), "", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Find_CorruptDocument_Errors(t *testing.T) {
	s, mr := newTestStore(t)
	_, err := mr.RPush(s.makeKey(model(1)), "not json")
	require.NoError(t, err)

	_, err = s.Find(context.Background(), model(1), "", 0)
	assert.Error(t, err)
}

func TestStore_Insert_ServerDown_Errors(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()
	err := s.Insert(context.Background(), model(1), series("u", "v0.3.0", 1))
	assert.Error(t, err)
}

func TestDial_Unreachable_Errors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = Dial(context.Background(), addr)
	assert.Error(t, err)
}
