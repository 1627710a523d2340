// Package xref links external references to their source databases.
//
// A Registry is an index of the identifiers.org resolver dataset: for each
// prefix it lists resources with URL patterns, one of which is official. A
// Mapping translates internal source names (HGNC, Uniprot/SWISSPROT, ...)
// into registry prefixes, or into a manual URL base for sources the
// registry does not cover. A Resolver combines the two:
//
//	url, ok := resolver.XrefURL("HGNC:1101", "HGNC")
//
// Only official resources produce URLs. Annotate fills the url, source
// url and description and the assignment method description of a stored
// cross-reference.
package xref
