package model

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/speclib/annotation"
)

// peakEqualTol bounds the relative and absolute difference tolerated when
// comparing peak coordinates; it mirrors what loose float equality means to
// the formats this library reads.
const peakEqualTol = 1e-5

// Peak is one row of a spectrum's peak table: an m/z, an intensity, the
// annotations attributed to the peak, and an optional aggregation column
// carried by consensus libraries.
type Peak struct {
	Mz          float64
	Intensity   float32
	Annotations []annotation.Annotation
	Aggregation string
}

// PeakList is a spectrum's peak table, ordered by ascending m/z. The
// ordering is established by writers and assumed by Find; it is not
// re-checked here.
type PeakList []Peak

// Equal compares two peak tables by approximate m/z and intensity. The
// comparison tolerates float noise from format conversions; annotations and
// aggregations do not participate.
func (pl PeakList) Equal(o PeakList) bool {
	if len(pl) != len(o) {
		return false
	}
	if len(pl) == 0 {
		return true
	}
	mzs := make([]float64, len(pl))
	omzs := make([]float64, len(o))
	ints := make([]float64, len(pl))
	oints := make([]float64, len(o))
	for i := range pl {
		mzs[i] = pl[i].Mz
		omzs[i] = o[i].Mz
		ints[i] = float64(pl[i].Intensity)
		oints[i] = float64(o[i].Intensity)
	}
	return floats.EqualApprox(mzs, omzs, peakEqualTol) &&
		floats.EqualApprox(ints, oints, peakEqualTol)
}

// Find returns the indexes of every peak within the tolerance window around
// mz. unit is "ppm" or "Da"; the default tolerance of 10 ppm applies when
// tol is zero.
func (pl PeakList) Find(mz, tol float64, unit string) []int {
	if tol == 0 {
		tol, unit = 10, "ppm"
	}
	window := tol
	if unit == "ppm" {
		window = mz * tol / 1e6
	}

	i := sort.Search(len(pl), func(j int) bool { return pl[j].Mz >= mz })
	var out []int
	for lo := i - 1; lo >= 0 && mz-pl[lo].Mz < window; lo-- {
		out = append(out, lo)
	}
	// Indexes below mz were collected walking down; reverse into ascending
	// order before appending the upper side.
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	for hi := i; hi < len(pl) && pl[hi].Mz-mz < window; hi++ {
		out = append(out, hi)
	}
	return out
}

// TotalIonCurrent sums the peak intensities.
func (pl PeakList) TotalIonCurrent() float64 {
	var sum float64
	for i := range pl {
		sum += float64(pl[i].Intensity)
	}
	return sum
}

// BasePeak returns the index of the most intense peak, or -1 for an empty
// table.
func (pl PeakList) BasePeak() int {
	best := -1
	var max float32
	for i := range pl {
		if best < 0 || pl[i].Intensity > max {
			best, max = i, pl[i].Intensity
		}
	}
	return best
}
