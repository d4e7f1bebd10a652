package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawStatistics_MinOutbound(t *testing.T) {
	r := NewRawStatistics(2)
	r.Record(NewCall, 0, 1)
	r.Record(NewCall, 0, 1)
	r.Record(NewCall, 1, 1)
	r.Record(EndCall, 1, 1)
	assert.Equal(t, uint64(0), r.MinOutbound(), "level 2 never left")

	r.Record(LostCall, 2, 1)
	assert.Equal(t, uint64(1), r.MinOutbound())
}

func TestRawStatistics_RecordOutOfRange_Panics(t *testing.T) {
	r := NewRawStatistics(1)
	assert.Panics(t, func() { r.Record(NewCall, 2, 1) })
	assert.Panics(t, func() { r.Record(NewCall, -1, 1) })
	assert.Panics(t, func() { r.Record(EventType(9), 0, 1) })
}

func TestRawStatistics_Finalize_NormalizesByTotalTime(t *testing.T) {
	// GIVEN 3 time units at level 0 and 1 unit at level 1
	r := NewRawStatistics(1)
	r.Record(NewCall, 0, 3)
	r.Record(LostCall, 1, 0.5)
	r.Record(EndCall, 1, 0.5)

	// WHEN finalized
	fs := r.Finalize(3, Metadata{UUID: "id", Version: "v1.0.0", Threshold: 1})

	// THEN probabilities and rates follow duration
	require.Len(t, fs.States, 2)
	assert.Equal(t, 1, fs.V)
	assert.InDelta(t, 0.75, fs.States[0].P, 1e-12)
	assert.InDelta(t, 0.25, fs.States[1].P, 1e-12)
	assert.InDelta(t, 1.0/3, fs.States[0].OutNew, 1e-12)
	assert.InDelta(t, 1.0, fs.States[1].OutNew, 1e-12)
	assert.InDelta(t, 1.0, fs.States[1].OutEnd, 1e-12)
	assert.Equal(t, uint64(3), fs.NoOfEvents)
	assert.Equal(t, uint64(1), fs.Metadata.MinEventsPerState)
	assert.Equal(t, "id", fs.Metadata.UUID)
}

func TestRawStatistics_Finalize_UnvisitedLevelIsZeroNotNaN(t *testing.T) {
	r := NewRawStatistics(3)
	r.Record(NewCall, 0, 2)
	fs := r.Finalize(1, Metadata{})
	for n := 1; n <= 3; n++ {
		assert.Equal(t, Macrostate{}, fs.States[n])
	}

	empty := NewRawStatistics(1).Finalize(0, Metadata{})
	assert.Equal(t, []Macrostate{{}, {}}, empty.States)
}

func TestRawStatistics_Reset(t *testing.T) {
	r := NewRawStatistics(1)
	r.Record(NewCall, 0, 2)
	r.Reset()
	assert.Equal(t, NewRawStatistics(1), r)
}
