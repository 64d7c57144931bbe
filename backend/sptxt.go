package backend

import (
	"context"
	"io"

	"github.com/hupe1980/speclib/annotation"
)

// FormatSPTXT is the registry name of the SpectraST SPTXT format.
const FormatSPTXT = "sptxt"

// SPTXT rides on the MSP machinery: the record layout is the same, the
// differences are the "###" banner lines SpectraST writes before the first
// record and the annotation spelling quirks the SPTXT dialect absorbs
// (bare isotope markers, residue-named internal fragments).
func init() {
	Register(&Format{
		Name:       FormatSPTXT,
		Extensions: []string{".sptxt"},
		Open: func(ctx context.Context, src *ByteSource, opts *OpenOptions) (Library, error) {
			return openMSP(ctx, src, opts, FormatSPTXT, annotation.SPTXT)
		},
		Sniff: func(_ context.Context, r io.Reader) bool {
			return sniffMSP(r, true)
		},
	})
}
