package attribute

// Set is a named, reusable attribute block. Library headers declare sets
// once and apply them to every spectrum, analyte, or interpretation that
// references them.
type Set struct {
	Name       string
	Attributes *Manager
}

// NewSet returns an empty attribute set.
func NewSet(name string) *Set {
	return &Set{Name: name, Attributes: NewManager()}
}

// Apply copies the set's attributes into target. Group ids are re-keyed
// through the target's own counter so applied groups never collide with
// groups the target already holds.
func (s *Set) Apply(target *Manager) {
	remap := make(map[string]string)
	for _, a := range s.Attributes.All() {
		if a.Group == "" {
			target.Add(a.Key, a.Value)
			continue
		}
		group, ok := remap[a.Group]
		if !ok {
			group = target.NextGroup()
			remap[a.Group] = group
		}
		target.AddGrouped(a.Key, a.Value, group)
	}
}
