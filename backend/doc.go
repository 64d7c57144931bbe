// Package backend implements the spectral library format plugins.
//
// Every format satisfies the Library interface: open a library file, read
// its header attributes, look spectra up by number or name, and stream all
// spectra in file order. Line-oriented formats (text, msp, sptxt) share a
// single forward-scan state machine that builds a byte-offset index in one
// pass; database formats (bibliospec, encyclopedia) query their own tables;
// the json and dia-nn formats derive offsets from array positions and row
// groups respectively.
//
// # Registry
//
// Formats register themselves at startup under a short name ("text",
// "json", "msp", ...). Lookup goes through ByName, extension matching
// through GuessFromPath, and content sniffing through Guess, which tries
// the path first and falls back to reading the file header. Open combines
// guessing and opening.
//
// Library files may be gzip-compressed; all openers sniff the magic bytes
// and decompress transparently.
package backend
