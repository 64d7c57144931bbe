// Package attribute implements the ordered controlled-vocabulary attribute
// store that spectral library entities are built from.
//
// An attribute is a key/value pair whose key is a CV term, written
// "CURIE|human name" on the wire:
//
//	MS:1003061|spectrum name=AAAAGSTSVKPIFSR/2_0_44eV
//
// Attributes are repeatable, iteration order is insertion order, and
// related attributes (a value and its unit, a pair of linked terms) are
// tied together by group ids issued by the owning Manager. Group ids are
// monotonic for the lifetime of a Manager and never reused.
//
// A Set is a named, reusable block of attributes that a library header can
// declare once and apply to many entities.
package attribute
