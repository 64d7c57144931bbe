package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"y3",
		"b14-H2O-NH3+[Foo]+2i^2[M+NH4]/0.5ppm*0.05",
		"m3:6",
		"p",
		"p-2i",
		"IL",
		"IK[Acetyl]",
		"r[TMT127N]",
		"f{C13H9}",
		"s{CC(=O)O}",
		"?17",
		"_frag",
		"2@y4",
		"[y2/0.5]",
		"[_foo]",
		"y4-H2O^2",
		"b3-H2O/0.3",
		"y1*0.9",
		"y2/-0.25",
		"p^-1",
		"y1[M+H]",
		"a2-2H2O",
		"y1,b2-H2O",
		"b2*0.4,y2*0.5",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			anns, err := Parse(in)
			require.NoError(t, err)
			assert.Equal(t, in, Serialize(anns))
		})
	}
}

func TestRoundTripIdempotent(t *testing.T) {
	in := "b14-H2O-NH3+[Foo]+2i^2[M+NH4]/0.5ppm*0.05,y2*0.1"
	anns, err := Parse(in)
	require.NoError(t, err)

	once := Serialize(anns)
	again, err := Parse(once)
	require.NoError(t, err)
	assert.Equal(t, once, Serialize(again))
}

func TestSerializeDefaults(t *testing.T) {
	// Defaults are elided: charge 1, isotope 0, Da unit, no losses.
	a := Annotation{Ion: PeptideFragment{Series: "y", Position: 3}, Charge: 1}
	assert.Equal(t, "y3", a.String())

	me := MassError{Value: 0.2}
	a = Annotation{Ion: Precursor{}, MassError: &me}
	assert.Equal(t, "p/0.2", a.String())
}

func TestSerializeEmptyList(t *testing.T) {
	assert.Equal(t, "?", Serialize(nil))
}

func TestSerializeIsotopeMagnitudeOne(t *testing.T) {
	a := Annotation{Ion: Precursor{}, Isotope: 1}
	assert.Equal(t, "p+i", a.String())
	a.Isotope = -1
	assert.Equal(t, "p-i", a.String())
}

func TestInvalidIonPassthrough(t *testing.T) {
	a := Annotation{Ion: Invalid{Content: "junk(1)"}}
	assert.Equal(t, "junk(1)", a.String())
	assert.Equal(t, KindInvalid, a.Ion.Kind())
}

func TestIonKindLabels(t *testing.T) {
	tests := []struct {
		ion  IonType
		kind Kind
	}{
		{PeptideFragment{Series: "b", Position: 1}, KindPeptideFragment},
		{Internal{Start: 1, End: 2}, KindInternal},
		{Precursor{}, KindPrecursor},
		{Immonium{AminoAcid: "F"}, KindImmonium},
		{Reporter{Label: "iTRAQ114"}, KindReporter},
		{Formula{Formula: "CH2"}, KindFormula},
		{SMILES{SMILES: "C"}, KindSMILES},
		{Unknown{Label: "4"}, KindUnknown},
		{External{Label: "x"}, KindExternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.ion.Kind())
	}
}
