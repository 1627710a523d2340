package xref

import (
	"github.com/c360/genomegate/errors"
)

// InfoType is the way an external reference was linked to a feature.
type InfoType string

// Assignment methods. Obsolete methods are not listed.
const (
	InfoDirect            InfoType = "DIRECT"
	InfoSequenceMatch     InfoType = "SEQUENCE_MATCH"
	InfoInferredPair      InfoType = "INFERRED_PAIR"
	InfoProjection        InfoType = "PROJECTION"
	InfoUnmapped          InfoType = "UNMAPPED"
	InfoMisc              InfoType = "MISC"
	InfoDependent         InfoType = "DEPENDENT"
	InfoChecksum          InfoType = "CHECKSUM"
	InfoNone              InfoType = "NONE"
	InfoCoordinateOverlap InfoType = "COORDINATE_OVERLAP"
)

var infoTypeDefinitions = map[InfoType]string{
	InfoProjection:        "A reference inferred via homology from an assembly with better annotation coverage",
	InfoMisc:              "Yes, misc",
	InfoDirect:            "A reference made by an external resource of annotation to an Ensembl feature that Ensembl imports without modification",
	InfoSequenceMatch:     "A reference inferred by the best match of two sequences",
	InfoInferredPair:      "A reference inferred by reference made on a parent feature, e.g. a RefSeq protein Id because the Refseq mRNA accession was assigned to an Ensembl transcript",
	InfoUnmapped:          "A mapping could be made between Ensembl and this external reference, but the similarity was not high enough",
	InfoCoordinateOverlap: "A reference inferred from annotation of the same locus as a feature in Ensembl. Mostly relevant when comparing annotation between assemblies with different sequences than Ensembl for the same species",
	InfoChecksum:          "A reference inferred from a sequence checksum match, such as when the sequences are equal",
	InfoNone:              "Void",
	InfoDependent:         "A reference inferred from a DIRECT reference and the links to other entities made by the external database",
}

// InfoTypes lists every known assignment method.
func InfoTypes() []InfoType {
	return []InfoType{
		InfoDirect, InfoSequenceMatch, InfoInferredPair, InfoProjection, InfoUnmapped,
		InfoMisc, InfoDependent, InfoChecksum, InfoNone, InfoCoordinateOverlap,
	}
}

// DescribeInfoType returns the definition of an assignment method, or an
// ILLEGAL_INFO_TYPE error for anything outside the known set.
func DescribeInfoType(code string) (string, error) {
	def, ok := infoTypeDefinitions[InfoType(code)]
	if !ok {
		return "", errors.IllegalInfoType(code)
	}
	return def, nil
}
