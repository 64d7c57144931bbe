package attribute

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrKeyNotFound is returned when no attribute carries the requested key.
	ErrKeyNotFound = errors.New("attribute key not found")

	// ErrAmbiguous is returned when a single-value accessor hits a key that
	// occurs more than once.
	ErrAmbiguous = errors.New("attribute key is ambiguous")

	// ErrAmbiguousReplace is returned when Replace hits a repeated key
	// without a group to disambiguate.
	ErrAmbiguousReplace = errors.New("cannot replace an attribute that occurs more than once without a group")
)

// Attribute is one stored key/value pair. Group ties related attributes
// together; "" means ungrouped.
type Attribute struct {
	Key   Term
	Value Value
	Group string
}

// String renders the attribute in wire form, without any group prefix.
func (a Attribute) String() string {
	return a.Key.String() + "=" + a.Value.String()
}

type keyEntry struct {
	positions []int
	groups    []string
}

// Manager is an ordered, append-friendly attribute container. It keeps
// attributes in insertion order and maintains derived lookup tables by key
// and by group.
//
// Managers are not safe for concurrent mutation; entities own exactly one
// and library parsing is single-threaded.
type Manager struct {
	attrs        []Attribute
	byKey        map[string]*keyEntry
	byGroup      map[string][]int
	groupCounter int
}

// NewManager returns an empty attribute container.
func NewManager() *Manager {
	return &Manager{
		byKey:   make(map[string]*keyEntry),
		byGroup: make(map[string][]int),
	}
}

// Add appends an ungrouped attribute.
func (m *Manager) Add(key Term, value Value) {
	m.AddGrouped(key, value, "")
}

// AddGrouped appends an attribute under the given group id. Group ids
// should come from NextGroup; ids read from a file are tolerated and push
// the counter forward so later NextGroup calls cannot collide.
func (m *Manager) AddGrouped(key Term, value Value, group string) {
	pos := len(m.attrs)
	m.attrs = append(m.attrs, Attribute{Key: key, Value: value, Group: group})

	ks := key.String()
	entry := m.byKey[ks]
	if entry == nil {
		entry = &keyEntry{}
		m.byKey[ks] = entry
	}
	entry.positions = append(entry.positions, pos)
	entry.groups = append(entry.groups, group)

	if group != "" {
		m.byGroup[group] = append(m.byGroup[group], pos)
		if n, err := strconv.Atoi(group); err == nil && n > m.groupCounter {
			m.groupCounter = n
		}
	}
}

// NextGroup issues a fresh group id. Ids are monotonic from "1" and never
// reused within this Manager.
func (m *Manager) NextGroup() string {
	m.groupCounter++
	return strconv.Itoa(m.groupCounter)
}

// Get returns the value of a key that occurs exactly once. A repeated key
// yields ErrAmbiguous, an absent one ErrKeyNotFound.
func (m *Manager) Get(key Term) (Value, error) {
	entry := m.byKey[key.String()]
	if entry == nil {
		return Value{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if len(entry.positions) > 1 {
		return Value{}, fmt.Errorf("%w: %s occurs %d times", ErrAmbiguous, key, len(entry.positions))
	}
	return m.attrs[entry.positions[0]].Value, nil
}

// First returns the first value stored under key, in insertion order.
func (m *Manager) First(key Term) (Value, bool) {
	entry := m.byKey[key.String()]
	if entry == nil {
		return Value{}, false
	}
	return m.attrs[entry.positions[0]].Value, true
}

// GetAll returns every value stored under key, in insertion order.
func (m *Manager) GetAll(key Term) []Value {
	entry := m.byKey[key.String()]
	if entry == nil {
		return nil
	}
	out := make([]Value, len(entry.positions))
	for i, pos := range entry.positions {
		out[i] = m.attrs[pos].Value
	}
	return out
}

// GetGrouped returns the value stored under key within the given group.
func (m *Manager) GetGrouped(key Term, group string) (Value, error) {
	entry := m.byKey[key.String()]
	if entry == nil {
		return Value{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	for i, pos := range entry.positions {
		if entry.groups[i] == group {
			return m.attrs[pos].Value, nil
		}
	}
	return Value{}, fmt.Errorf("%w: %s in group %s", ErrKeyNotFound, key, group)
}

// GetByHumanName returns every value whose key name (the part after '|')
// matches name.
func (m *Manager) GetByHumanName(name string) []Value {
	var out []Value
	for _, a := range m.attrs {
		if a.Key.Name == name {
			out = append(out, a.Value)
		}
	}
	return out
}

// Has reports whether any attribute carries the key.
func (m *Manager) Has(key Term) bool {
	return m.byKey[key.String()] != nil
}

// Len returns the number of stored attributes.
func (m *Manager) Len() int { return len(m.attrs) }

// All returns the attributes in insertion order. The slice is a copy; the
// attributes themselves are values.
func (m *Manager) All() []Attribute {
	out := make([]Attribute, len(m.attrs))
	copy(out, m.attrs)
	return out
}

// Group returns the attributes of one group, in insertion order.
func (m *Manager) Group(group string) []Attribute {
	positions := m.byGroup[group]
	out := make([]Attribute, len(positions))
	for i, pos := range positions {
		out[i] = m.attrs[pos]
	}
	return out
}

// Replace updates the value of a key that occurs exactly once. A repeated
// key yields ErrAmbiguousReplace; an absent key is added instead.
func (m *Manager) Replace(key Term, value Value) error {
	entry := m.byKey[key.String()]
	if entry == nil {
		m.Add(key, value)
		return nil
	}
	if len(entry.positions) > 1 {
		return fmt.Errorf("%w: %s", ErrAmbiguousReplace, key)
	}
	m.attrs[entry.positions[0]].Value = value
	return nil
}

// ReplaceGrouped updates the value of a key within one group. The pair must
// exist.
func (m *Manager) ReplaceGrouped(key Term, value Value, group string) error {
	entry := m.byKey[key.String()]
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	for i, pos := range entry.positions {
		if entry.groups[i] == group {
			m.attrs[pos].Value = value
			return nil
		}
	}
	return fmt.Errorf("%w: %s in group %s", ErrKeyNotFound, key, group)
}

// Remove drops every attribute carrying the key and reports how many were
// removed. Positions shift, so the derived tables are rebuilt.
func (m *Manager) Remove(key Term) int {
	return m.removeWhere(func(a Attribute) bool { return a.Key == key })
}

// RemoveGrouped drops the attributes carrying the key within one group.
func (m *Manager) RemoveGrouped(key Term, group string) int {
	return m.removeWhere(func(a Attribute) bool { return a.Key == key && a.Group == group })
}

func (m *Manager) removeWhere(drop func(Attribute) bool) int {
	kept := m.attrs[:0]
	removed := 0
	for _, a := range m.attrs {
		if drop(a) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	if removed == 0 {
		return 0
	}
	m.attrs = kept
	m.rebuild()
	return removed
}

// rebuild reconstructs the derived tables from the attribute list. The
// group counter is never reset; removed group ids stay burned.
func (m *Manager) rebuild() {
	m.byKey = make(map[string]*keyEntry, len(m.attrs))
	m.byGroup = make(map[string][]int)
	for pos, a := range m.attrs {
		ks := a.Key.String()
		entry := m.byKey[ks]
		if entry == nil {
			entry = &keyEntry{}
			m.byKey[ks] = entry
		}
		entry.positions = append(entry.positions, pos)
		entry.groups = append(entry.groups, a.Group)
		if a.Group != "" {
			m.byGroup[a.Group] = append(m.byGroup[a.Group], pos)
		}
	}
}

// Equal reports whether two managers store the same keys with the same
// values per key. Insertion order and group numbering are ignored.
func (m *Manager) Equal(o *Manager) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.attrs) != len(o.attrs) {
		return false
	}
	if len(m.byKey) != len(o.byKey) {
		return false
	}
	for ks, entry := range m.byKey {
		oentry := o.byKey[ks]
		if oentry == nil || len(oentry.positions) != len(entry.positions) {
			return false
		}
		matched := make([]bool, len(oentry.positions))
	next:
		for _, pos := range entry.positions {
			v := m.attrs[pos].Value
			for j, opos := range oentry.positions {
				if !matched[j] && v.Equal(o.attrs[opos].Value) {
					matched[j] = true
					continue next
				}
			}
			return false
		}
	}
	return true
}
