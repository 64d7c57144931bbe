// Package speclib reads, writes, and converts mass spectrometry spectral
// libraries.
//
// A spectral library is a collection of annotated fragment ion spectra,
// each tied to one or more analytes (usually peptides) through
// interpretations. Speclib models libraries after the HUPO-PSI mzSpecLib
// standard and speaks several dialects of it:
//
//   - text: the native mzSpecLib text format (.mzlb.txt), readable and writable
//   - json: the native mzSpecLib JSON format (.mzlb.json), readable and writable
//   - msp: NIST MSP libraries, read-only
//   - sptxt: SpectraST SPTXT libraries, read-only
//   - bibliospec: BiblioSpec .blib SQLite libraries, read-only
//   - encyclopedia: EncyclopeDIA .dlib/.elib SQLite libraries, read-only
//   - dia-nn.tsv: DIA-NN transition lists, read-only
//
// # Quick Start
//
// Open a library, look up a spectrum, and iterate:
//
//	ctx := context.Background()
//	lib, err := speclib.Open(ctx, "consensus.mzlb.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Close()
//
//	s, _ := lib.SpectrumByName(ctx, "AAAAGSTSVKPIFSR/2_0_44eV")
//	fmt.Println(s.Peaks)
//
//	for {
//	    s, err := lib.Read(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    // ...
//	}
//
// Convert between formats:
//
//	n, err := speclib.Convert(ctx, "library.msp", "library.mzlb.json")
//
// # Offset Indexes
//
// Scanned text formats locate records through an offset index. By default
// the index is built in memory on every open; with WithIndexMode(IndexSQL)
// it is persisted next to the library as a SQLite sidecar so later opens
// skip the scan:
//
//	lib, _ := speclib.Open(ctx, path, speclib.WithIndexMode(backend.IndexSQL))
//
// # Peak Annotations
//
// Peak annotations follow the mzPAF grammar and are parsed into structured
// form by the annotation package. Unparseable annotations are preserved
// verbatim rather than dropped.
package speclib
