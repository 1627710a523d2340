// Package transcript orders the transcripts of a gene and interprets
// transcript annotations.
//
// Sort applies the display order used wherever a gene's transcripts are
// listed. A precomputed display rank wins when present; otherwise
// transcripts are ranked by designation (MANE Select or canonical first),
// biotype, translation length and transcript length.
//
// The TSL, APPRIS and MANE types are closed sets parsed from stored
// annotation strings, each with a label and definition. Coordinate helpers
// convert between genomic and transcript-relative positions and infer
// introns from exons.
package transcript
