package model

import (
	"strconv"
	"strings"

	"github.com/hupe1980/speclib/attribute"
)

// ClusterMemberRef names one member of a spectrum cluster, either by its
// key within the same library or by a universal spectrum identifier.
type ClusterMemberRef struct {
	Key string
	USI bool
}

// SpectrumCluster is a group of related spectra. Unlike spectra, the
// cluster key is itself attribute-backed.
type SpectrumCluster struct {
	Attributes *attribute.Manager
}

// NewSpectrumCluster returns an empty cluster.
func NewSpectrumCluster() *SpectrumCluster {
	return &SpectrumCluster{Attributes: attribute.NewManager()}
}

// Key returns the cluster key, or 0 when none is recorded.
func (c *SpectrumCluster) Key() uint64 {
	if v, ok := c.Attributes.First(TermClusterKey); ok {
		if n, ok := v.AsInt64(); ok && n >= 0 {
			return uint64(n)
		}
	}
	return 0
}

// SetKey replaces the cluster key attribute.
func (c *SpectrumCluster) SetKey(key uint64) {
	_ = c.Attributes.Replace(TermClusterKey, attribute.Int(int64(key)))
}

// Members lists the cluster members: internal key references first, USI
// references second. Key lists may be recorded as repeated attributes or as
// one comma-joined value; both spellings flatten to individual refs.
func (c *SpectrumCluster) Members() []ClusterMemberRef {
	var out []ClusterMemberRef
	for _, v := range c.Attributes.GetAll(TermClusterMemberKeys) {
		for _, key := range splitMemberList(v.String()) {
			out = append(out, ClusterMemberRef{Key: key})
		}
	}
	for _, v := range c.Attributes.GetAll(TermClusterMemberUSI) {
		out = append(out, ClusterMemberRef{Key: v.String(), USI: true})
	}
	return out
}

func splitMemberList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MemberKeys returns the internal member keys as numbers, skipping USI
// references and non-numeric keys.
func (c *SpectrumCluster) MemberKeys() []uint64 {
	var out []uint64
	for _, ref := range c.Members() {
		if ref.USI {
			continue
		}
		if n, err := strconv.ParseUint(ref.Key, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}
