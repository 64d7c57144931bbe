package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	termName   = Term{Accession: "MS:1003061", Name: "spectrum name"}
	termCharge = Term{Accession: "MS:1000041", Name: "charge state"}
	termCE     = Term{Accession: "MS:1000045", Name: "collision energy"}
	termUnit   = Term{Accession: "UO:0000000", Name: "unit"}
)

func TestManagerAddGet(t *testing.T) {
	m := NewManager()
	m.Add(termName, String("AAAAGSTSVKPIFSR/2_0_44eV"))
	m.Add(termCharge, Int(2))

	v, err := m.Get(termName)
	require.NoError(t, err)
	assert.Equal(t, "AAAAGSTSVKPIFSR/2_0_44eV", v.S)

	v, err = m.Get(termCharge)
	require.NoError(t, err)
	n, ok := v.AsInt64()
	require.True(t, ok)
	assert.Equal(t, int64(2), n)

	_, err = m.Get(Term{Accession: "MS:0", Name: "missing"})
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestManagerMultiplicity(t *testing.T) {
	m := NewManager()
	m.Add(termCE, Float(30))
	m.Add(termCE, Float(35))

	_, err := m.Get(termCE)
	assert.ErrorIs(t, err, ErrAmbiguous)

	all := m.GetAll(termCE)
	require.Len(t, all, 2)
	assert.Equal(t, float64(30), all[0].F64)
	assert.Equal(t, float64(35), all[1].F64)

	first, ok := m.First(termCE)
	require.True(t, ok)
	assert.Equal(t, float64(30), first.F64)
}

func TestManagerInsertionOrder(t *testing.T) {
	m := NewManager()
	m.Add(termCE, Float(30))
	m.Add(termName, String("x"))
	m.Add(termCE, Float(35))

	all := m.All()
	require.Len(t, all, 3)
	assert.Equal(t, termCE, all[0].Key)
	assert.Equal(t, termName, all[1].Key)
	assert.Equal(t, termCE, all[2].Key)
}

func TestManagerGroups(t *testing.T) {
	m := NewManager()
	g := m.NextGroup()
	assert.Equal(t, "1", g)
	m.AddGrouped(termCE, Float(44), g)
	m.AddGrouped(termUnit, String("electronvolt"), g)

	v, err := m.GetGrouped(termCE, g)
	require.NoError(t, err)
	assert.Equal(t, float64(44), v.F64)

	grp := m.Group(g)
	require.Len(t, grp, 2)
	assert.Equal(t, termCE, grp[0].Key)
	assert.Equal(t, termUnit, grp[1].Key)

	// Ids are monotonic and never reused, even after removal.
	m.RemoveGrouped(termCE, g)
	m.RemoveGrouped(termUnit, g)
	assert.Equal(t, "2", m.NextGroup())
}

func TestManagerGroupCounterTracksExplicitIds(t *testing.T) {
	m := NewManager()
	m.AddGrouped(termCE, Float(44), "5")
	assert.Equal(t, "6", m.NextGroup())
}

func TestManagerReplace(t *testing.T) {
	m := NewManager()

	// Absent key falls back to add.
	require.NoError(t, m.Replace(termCharge, Int(2)))
	v, err := m.Get(termCharge)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.I64)

	require.NoError(t, m.Replace(termCharge, Int(3)))
	v, err = m.Get(termCharge)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.I64)
	assert.Equal(t, 1, m.Len())

	m.Add(termCharge, Int(4))
	err = m.Replace(termCharge, Int(5))
	assert.ErrorIs(t, err, ErrAmbiguousReplace)

	// A group disambiguates.
	g := m.NextGroup()
	m.AddGrouped(termCE, Float(30), g)
	require.NoError(t, m.ReplaceGrouped(termCE, Float(32), g))
	v, err = m.GetGrouped(termCE, g)
	require.NoError(t, err)
	assert.Equal(t, float64(32), v.F64)
}

func TestManagerRemove(t *testing.T) {
	m := NewManager()
	m.Add(termCE, Float(30))
	m.Add(termName, String("x"))
	m.Add(termCE, Float(35))

	removed := m.Remove(termCE)
	assert.Equal(t, 2, removed)
	assert.False(t, m.Has(termCE))
	assert.True(t, m.Has(termName))
	assert.Equal(t, 1, m.Len())

	// Derived tables are rebuilt with the shifted positions.
	v, err := m.Get(termName)
	require.NoError(t, err)
	assert.Equal(t, "x", v.S)

	assert.Zero(t, m.Remove(termCE))
}

func TestManagerGetByHumanName(t *testing.T) {
	m := NewManager()
	m.Add(termName, String("spec one"))
	m.Add(termCharge, Int(2))

	vals := m.GetByHumanName("spectrum name")
	require.Len(t, vals, 1)
	assert.Equal(t, "spec one", vals[0].S)

	assert.Empty(t, m.GetByHumanName("no such name"))
}

func TestManagerEqualIgnoresOrder(t *testing.T) {
	a := NewManager()
	a.Add(termName, String("x"))
	a.Add(termCharge, Int(2))
	a.Add(termCE, Float(30))
	a.Add(termCE, Float(35))

	b := NewManager()
	b.Add(termCE, Float(35))
	b.Add(termCharge, Int(2))
	b.Add(termCE, Float(30))
	b.Add(termName, String("x"))

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	b.Add(termName, String("y"))
	assert.False(t, a.Equal(b))
}

func TestManagerEqualNumericCrossKind(t *testing.T) {
	a := NewManager()
	a.Add(termCharge, Int(2))
	b := NewManager()
	b.Add(termCharge, Float(2))
	assert.True(t, a.Equal(b))
}

func TestParseValue(t *testing.T) {
	v := ParseValue("44")
	assert.Equal(t, KindInt, v.Kind)
	assert.Equal(t, "44", v.String())

	v = ParseValue("44.0")
	assert.Equal(t, KindFloat, v.Kind)
	assert.Equal(t, "44.0", v.String())

	v = ParseValue("MS:1000422|beam-type collision-induced dissociation")
	assert.Equal(t, KindTerm, v.Kind)
	assert.Equal(t, "MS:1000422", v.T.Accession)
	assert.Equal(t, "MS:1000422|beam-type collision-induced dissociation", v.String())

	v = ParseValue("AAAAGSTSVKPIFSR/2_0_44eV")
	assert.Equal(t, KindString, v.Kind)
}

func TestSetApplyRemapsGroups(t *testing.T) {
	set := NewSet("common")
	g := set.Attributes.NextGroup()
	set.Attributes.AddGrouped(termCE, Float(44), g)
	set.Attributes.AddGrouped(termUnit, String("electronvolt"), g)
	set.Attributes.Add(termCharge, Int(2))

	target := NewManager()
	tg := target.NextGroup()
	target.AddGrouped(termCE, Float(10), tg)

	set.Apply(target)

	grp := target.Group("2")
	require.Len(t, grp, 2)
	assert.Equal(t, float64(44), grp[0].Value.F64)
	assert.Equal(t, "electronvolt", grp[1].Value.S)

	v, err := target.Get(termCharge)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.I64)
}
