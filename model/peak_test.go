package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeaks() PeakList {
	return PeakList{
		{Mz: 100.0, Intensity: 10},
		{Mz: 200.0, Intensity: 50},
		{Mz: 200.001, Intensity: 5},
		{Mz: 300.0, Intensity: 100},
	}
}

func TestPeakListFindDa(t *testing.T) {
	pl := testPeaks()

	idx := pl.Find(200.0, 0.01, "Da")
	assert.Equal(t, []int{1, 2}, idx)

	idx = pl.Find(200.0, 0.0005, "Da")
	assert.Equal(t, []int{1}, idx)

	idx = pl.Find(500.0, 0.01, "Da")
	assert.Empty(t, idx)
}

func TestPeakListFindPpm(t *testing.T) {
	pl := testPeaks()

	// 10 ppm of 200 is 0.002, catching both close peaks.
	idx := pl.Find(200.0, 10, "ppm")
	assert.Equal(t, []int{1, 2}, idx)

	// 1 ppm of 200 is 0.0002, catching only the exact one.
	idx = pl.Find(200.0, 1, "ppm")
	assert.Equal(t, []int{1}, idx)
}

func TestPeakListFindDefaultTolerance(t *testing.T) {
	pl := testPeaks()
	idx := pl.Find(300.0, 0, "")
	assert.Equal(t, []int{3}, idx)
}

func TestPeakListEqual(t *testing.T) {
	a := testPeaks()
	b := testPeaks()
	require.True(t, a.Equal(b))

	// Noise below the tolerance still compares equal.
	b[0].Mz += 1e-7
	assert.True(t, a.Equal(b))

	b[0].Mz += 1
	assert.False(t, a.Equal(b))

	assert.False(t, a.Equal(b[:2]))
	assert.True(t, PeakList{}.Equal(PeakList{}))
}

func TestPeakListStats(t *testing.T) {
	pl := testPeaks()
	assert.Equal(t, 3, pl.BasePeak())
	assert.InDelta(t, 165.0, pl.TotalIonCurrent(), 1e-9)
	assert.Equal(t, -1, PeakList{}.BasePeak())
}
