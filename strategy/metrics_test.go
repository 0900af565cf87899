package strategy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocktesting "github.com/scigolib/gridextract/internal/testing"
)

func TestInstrumentRecordsReads(t *testing.T) {
	f := newFixture(t, window)
	metrics := NewMetrics()

	for _, kind := range Kinds {
		s, err := New(kind)
		require.NoError(t, err)
		_, err = Apply(Instrument(s, metrics), f.mapper, f.mem, Request{Variable: "temp"}, missing)
		require.NoError(t, err)
	}

	snap := metrics.Snapshot()
	assert.Equal(t, KindSnapshot{Runs: 1, Reads: 48, CellsFetched: 48, CellsUsed: 48}, withoutTime(snap.Kinds[KindPixel]))
	assert.Equal(t, KindSnapshot{Runs: 1, Reads: 1, CellsFetched: 48, CellsUsed: 48}, withoutTime(snap.Kinds[KindBoundingBox]))
	assert.Equal(t, KindSnapshot{Runs: 1, Reads: 6, CellsFetched: 48, CellsUsed: 48}, withoutTime(snap.Kinds[KindScanline]))
	assert.InDelta(t, 1.0, snap.Kinds[KindBoundingBox].Efficiency(), 1e-9)
	assert.Contains(t, metrics.String(), "scanline")

	data, err := snap.JSON()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "kinds")
}

func TestInstrumentRecordsErrors(t *testing.T) {
	f := newFixture(t, window)
	metrics := NewMetrics()
	mock := mocktesting.NewMockSource(f.mem).FailAfter(2)

	_, err := Apply(Instrument(Pixel{}, metrics), f.mapper, mock, Request{Variable: "temp"}, missing)
	require.ErrorIs(t, err, mocktesting.ErrInjected)

	ks := metrics.Snapshot().Kinds[KindPixel]
	assert.Equal(t, int64(1), ks.Runs)
	assert.Equal(t, int64(2), ks.Reads)
	assert.Equal(t, int64(1), ks.Errors)
	assert.Zero(t, ks.CellsUsed)
}

func TestMetricsDecisionsAndReset(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordDecision(Decision{Kind: KindScanline})
	metrics.RecordDecision(Decision{Kind: KindScanline})
	metrics.RecordDecision(Decision{Kind: "unknown"})
	metrics.RecordRead("unknown", 10)
	assert.Equal(t, int64(2), metrics.Snapshot().Decisions[KindScanline])

	metrics.RecordRead(KindPixel, 3)
	metrics.Reset()
	snap := metrics.Snapshot()
	assert.Zero(t, snap.Decisions[KindScanline])
	assert.Zero(t, snap.Kinds[KindPixel].Reads)
	assert.Zero(t, snap.Kinds[KindPixel].Efficiency())
}

func TestInstrumentNilMetrics(t *testing.T) {
	s := Instrument(Scanline{}, nil)
	assert.Equal(t, Scanline{}, s)
}

func withoutTime(k KindSnapshot) KindSnapshot {
	k.TotalTime = 0
	return k
}
