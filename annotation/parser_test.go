package annotation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnannotated(t *testing.T) {
	for _, s := range []string{"", "?", "  ", " ? "} {
		anns, err := Parse(s)
		require.NoError(t, err, "input %q", s)
		require.Empty(t, anns, "input %q", s)
	}
}

func TestParsePeptideFragment(t *testing.T) {
	anns, err := Parse("y3")
	require.NoError(t, err)
	require.Len(t, anns, 1)

	a := anns[0]
	require.Equal(t, PeptideFragment{Series: "y", Position: 3}, a.Ion)
	assert.Equal(t, 1, a.ChargeOrDefault())
	assert.Equal(t, "1", a.AnalyteRefOrDefault())
	assert.Empty(t, a.NeutralLosses)
	assert.Zero(t, a.Isotope)
	assert.Nil(t, a.MassError)
	assert.Nil(t, a.Confidence)
	assert.False(t, a.Auxiliary)
}

func TestParseFullEnvelope(t *testing.T) {
	anns, err := Parse("b14-H2O-NH3+[Foo]+2i^2[M+NH4]/0.5ppm*0.05")
	require.NoError(t, err)
	require.Len(t, anns, 1)

	a := anns[0]
	assert.Equal(t, PeptideFragment{Series: "b", Position: 14}, a.Ion)
	assert.Equal(t, []string{"-H2O", "-NH3", "[Foo]"}, a.NeutralLosses)
	assert.Equal(t, 2, a.Isotope)
	assert.Equal(t, 2, a.Charge)
	assert.Equal(t, []string{"M", "NH4"}, a.Adducts)
	require.NotNil(t, a.MassError)
	assert.Equal(t, 0.5, a.MassError.Value)
	assert.Equal(t, "ppm", a.MassError.Unit)
	require.NotNil(t, a.Confidence)
	assert.Equal(t, 0.05, *a.Confidence)
}

func TestParseIonKinds(t *testing.T) {
	tests := []struct {
		input string
		want  IonType
	}{
		{"m3:6", Internal{Start: 3, End: 6}},
		{"p", Precursor{}},
		{"IL", Immonium{AminoAcid: "L"}},
		{"IK[Acetyl]", Immonium{AminoAcid: "K", Modification: "Acetyl"}},
		{"r[TMT127N]", Reporter{Label: "TMT127N"}},
		{"f{C13H9}", Formula{Formula: "C13H9"}},
		{"s{CC(=O)O}", SMILES{SMILES: "CC(=O)O"}},
		{"?17", Unknown{Label: "17"}},
		{"_frag", External{Label: "frag"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			anns, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, anns, 1)
			assert.Equal(t, tt.want, anns[0].Ion)
		})
	}
}

func TestParseAnalyteReference(t *testing.T) {
	anns, err := Parse("2@y4")
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "2", anns[0].AnalyteRef)
	assert.Equal(t, "2", anns[0].AnalyteRefOrDefault())
	assert.Equal(t, PeptideFragment{Series: "y", Position: 4}, anns[0].Ion)
}

func TestParseZeroCharge(t *testing.T) {
	_, err := Parse("y3^0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroCharge)

	anns, err := Parse("y3")
	require.NoError(t, err)
	assert.Equal(t, 1, anns[0].ChargeOrDefault())
}

func TestParseNegativeCharge(t *testing.T) {
	anns, err := Parse("p^-1")
	require.NoError(t, err)
	assert.Equal(t, -1, anns[0].Charge)
}

func TestParseConfidenceSum(t *testing.T) {
	_, err := Parse("b2*0.6,y2*0.5")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfidenceSum)

	anns, err := Parse("b2*0.4,y2*0.5")
	require.NoError(t, err)
	require.Len(t, anns, 2)

	// Slack absorbs rounding just past 1.
	_, err = Parse("b2*0.5,y2*0.5005")
	require.NoError(t, err)
}

func TestParseConfidenceOutOfRange(t *testing.T) {
	_, err := Parse("y1*1.5")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfidenceOutOfRange)
}

func TestParseAuxiliary(t *testing.T) {
	anns, err := Parse("[_foo]")
	require.NoError(t, err)
	require.Len(t, anns, 1)

	a := anns[0]
	assert.True(t, a.Auxiliary)
	assert.Equal(t, External{Label: "foo"}, a.Ion)
}

func TestParseMalformedAuxiliary(t *testing.T) {
	_, err := Parse("[y1")
	require.Error(t, err)

	var malformed *ErrMalformedAuxiliary
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "[y1", malformed.Content)
}

func TestParseTrailingContent(t *testing.T) {
	for _, s := range []string{"y1~", "y1 b2", "y1)", "m3:6:9"} {
		_, err := Parse(s)
		require.Error(t, err, "input %q", s)

		var invalid *ErrInvalidAnnotation
		assert.True(t, errors.As(err, &invalid), "input %q got %v", s, err)
	}
}

func TestParseAlternatives(t *testing.T) {
	anns, err := Parse("y1,b2-H2O")
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, PeptideFragment{Series: "y", Position: 1}, anns[0].Ion)
	assert.Equal(t, PeptideFragment{Series: "b", Position: 2}, anns[1].Ion)
	assert.Equal(t, []string{"-H2O"}, anns[1].NeutralLosses)
}

func TestParseIsotopeForms(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"p-2i", -2},
		{"p-i", -1},
		{"p+i", 1},
		{"p+3i", 3},
		{"p", 0},
	}
	for _, tt := range tests {
		anns, err := Parse(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, anns[0].Isotope, "input %q", tt.input)
	}
}

func TestParseMassErrorDefaultUnit(t *testing.T) {
	anns, err := Parse("y2/0.4")
	require.NoError(t, err)
	require.NotNil(t, anns[0].MassError)
	assert.Equal(t, 0.4, anns[0].MassError.Value)
	assert.Equal(t, "Da", anns[0].MassError.Unit)

	anns, err = Parse("y2/-0.25")
	require.NoError(t, err)
	assert.Equal(t, -0.25, anns[0].MassError.Value)
}

func TestParseDialectSPTXT(t *testing.T) {
	anns, err := ParseWith(SPTXT, "y7i")
	require.NoError(t, err)
	assert.Equal(t, PeptideFragment{Series: "y", Position: 7}, anns[0].Ion)
	assert.Equal(t, 1, anns[0].Isotope)

	anns, err = ParseWith(SPTXT, "y.7")
	require.NoError(t, err)
	assert.Equal(t, PeptideFragment{Series: "y", Position: 7}, anns[0].Ion)

	// The strict dialect rejects both spellings.
	_, err = Parse("y.7")
	require.Error(t, err)
}

func TestParseInvalidIon(t *testing.T) {
	_, err := Parse("q9")
	require.Error(t, err)

	var invalid *ErrInvalidAnnotation
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "q9", invalid.Content)
}
