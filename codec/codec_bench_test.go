package codec

import (
	"testing"
)

type benchPeak struct {
	MZ         float64 `json:"mz"`
	Intensity  float64 `json:"intensity"`
	Annotation string  `json:"annotation,omitempty"`
}

type benchSpectrum struct {
	Key         uint64            `json:"key"`
	Name        string            `json:"name"`
	PrecursorMZ float64           `json:"precursor_mz"`
	Charge      int               `json:"charge"`
	Attrs       map[string]string `json:"attrs"`
	Peaks       []benchPeak       `json:"peaks"`
}

func benchPayload() benchSpectrum {
	return benchSpectrum{
		Key:         42,
		Name:        "AAAAGSTSVKPIFSR/2",
		PrecursorMZ: 717.3845,
		Charge:      2,
		Attrs: map[string]string{
			"MS:1000044": "HCD",
			"MS:1000045": "44",
			"MS:1003061": "AAAAGSTSVKPIFSR/2_0_44eV",
		},
		Peaks: []benchPeak{
			{MZ: 110.0712, Intensity: 1299.0, Annotation: "?"},
			{MZ: 175.1190, Intensity: 4012.9, Annotation: "y1/0.0pm"},
			{MZ: 260.1969, Intensity: 811.2, Annotation: "y2/1.1ppm"},
			{MZ: 357.2135, Intensity: 3228.4, Annotation: "y3/-0.2ppm"},
			{MZ: 470.2987, Intensity: 9182.0, Annotation: "y4/0.5ppm"},
		},
	}
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkCodecUnmarshal[T any](b *testing.B, c Codec, data []byte, dst *T) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	var v T
	b.ResetTimer()
	for b.Loop() {
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
	if dst != nil {
		*dst = v
	}
}

func BenchmarkCodec_Marshal_Spectrum(b *testing.B) {
	payload := benchPayload()

	b.Run("json", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, payload) })
}

func BenchmarkCodec_Unmarshal_Spectrum(b *testing.B) {
	data := MustMarshal(JSON{}, benchPayload())

	b.Run("json", func(b *testing.B) {
		var sink benchSpectrum
		benchmarkCodecUnmarshal(b, JSON{}, data, &sink)
		_ = sink
	})
}
