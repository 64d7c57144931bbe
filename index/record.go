package index

// Record describes one spectrum entry in a library file.
type Record struct {
	// Number is the zero-based position of the spectrum within the library.
	Number uint64
	// Offset is the byte offset of the first line of the spectrum entry.
	Offset int64
	// Name is the spectrum name, when the format carries one.
	Name string
	// Analyte is a short description of the primary analyte, when known.
	Analyte string
	// Attributes holds optional indexed attributes for attribute search.
	Attributes map[string]string
}

// Equal reports whether two records describe the same entry. A nil
// attribute map and an empty one compare as equal.
func (r Record) Equal(other Record) bool {
	if r.Number != other.Number || r.Offset != other.Offset ||
		r.Name != other.Name || r.Analyte != other.Analyte {
		return false
	}

	if len(r.Attributes) != len(other.Attributes) {
		return false
	}

	for k, v := range r.Attributes {
		if ov, ok := other.Attributes[k]; !ok || ov != v {
			return false
		}
	}

	return true
}

// ClusterRecord describes one spectrum cluster entry in a library file.
type ClusterRecord struct {
	// Number is the cluster key.
	Number uint64
	// Offset is the byte offset of the first line of the cluster entry.
	Offset int64
}
