package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is the machine-readable code reported in a GraphQL error's extensions.
type Code string

// Lookup misses
const (
	CodeGeneNotFound                   Code = "GENE_NOT_FOUND"
	CodeTranscriptNotFound             Code = "TRANSCRIPT_NOT_FOUND"
	CodeProductNotFound                Code = "PRODUCT_NOT_FOUND"
	CodeRegionNotFound                 Code = "REGION_NOT_FOUND"
	CodeRegionsNotFound                Code = "REGIONS_NOT_FOUND"
	CodeAssemblyNotFound               Code = "ASSEMBLY_NOT_FOUND"
	CodeAssembliesFromOrganismNotFound Code = "ASSEMBLIES_FROM_ORGANISM_NOT_FOUND"
	CodeOrganismFromAssemblyNotFound   Code = "ORGANISM_FROM_ASSEMBLY_NOT_FOUND"
	CodeSpeciesFromOrganismNotFound    Code = "SPECIES_FROM_ORGANISM_NOT_FOUND"
	CodeOrganismsFromSpeciesNotFound   Code = "ORGANISMS_FROM_SPECIES_NOT_FOUND"
	CodeGenomeNotFound                 Code = "GENOME_NOT_FOUND"
)

// Quotas, input and infrastructure
const (
	CodeSliceLimitExceeded  Code = "SLICE_RESULT_LIMIT_EXCEEDED"
	CodeInputFieldArgCount  Code = "INPUT_FIELD_ARG_COUNT"
	CodeMissingArgument     Code = "MISSING_ARGUMENT"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeDatabaseNotFound    Code = "DATABASE_NOT_FOUND"
	CodeCollectionNotFound  Code = "COLLECTION_NOT_FOUND"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeIllegalInfoType     Code = "ILLEGAL_INFO_TYPE"
)

func (c Code) isInput() bool {
	switch c {
	case CodeInputFieldArgCount, CodeMissingArgument, CodeInvalidArgument, CodeIllegalInfoType:
		return true
	}
	return false
}

// Field is one identifying key of a failed lookup. Fields keep their
// insertion order so messages are stable.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// QueryError is a resolver-level failure reported to the client alongside
// whatever data could be resolved.
type QueryError struct {
	Code    Code
	Message string
	Fields  []Field
	Err     error
}

// Error implements the error interface
func (e *QueryError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Extensions returns the GraphQL error extensions: the code followed by the
// identifying fields.
func (e *QueryError) Extensions() map[string]any {
	ext := make(map[string]any, len(e.Fields)+1)
	ext["code"] = string(e.Code)
	for _, f := range e.Fields {
		ext[f.Key] = f.Value
	}
	return ext
}

// AsQueryError extracts a QueryError from an error chain.
func AsQueryError(err error) (*QueryError, bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	qe, ok := AsQueryError(err)
	return ok && qe.Code == code
}

// NotFound builds a lookup-miss error for entity keyed by fields.
func NotFound(code Code, entity string, fields ...Field) *QueryError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	return &QueryError{
		Code:    code,
		Message: fmt.Sprintf("Failed to find %s with ids: %s", entity, strings.Join(parts, ", ")),
		Fields:  fields,
	}
}

// GeneNotFound reports a missing gene.
func GeneNotFound(fields ...Field) *QueryError {
	return NotFound(CodeGeneNotFound, "gene", fields...)
}

// TranscriptNotFound reports a missing transcript.
func TranscriptNotFound(fields ...Field) *QueryError {
	return NotFound(CodeTranscriptNotFound, "transcript", fields...)
}

// ProductNotFound reports a missing product.
func ProductNotFound(fields ...Field) *QueryError {
	return NotFound(CodeProductNotFound, "product", fields...)
}

// RegionNotFound reports a missing region.
func RegionNotFound(fields ...Field) *QueryError {
	return NotFound(CodeRegionNotFound, "region", fields...)
}

// GenomeNotFound reports a genome unknown to the metadata service.
func GenomeNotFound(fields ...Field) *QueryError {
	return NotFound(CodeGenomeNotFound, "genome", fields...)
}

// SliceLimitExceeded reports an overlap query that reached its cap.
func SliceLimitExceeded(limit int) *QueryError {
	return &QueryError{
		Code:    CodeSliceLimitExceeded,
		Message: fmt.Sprintf("Slice query met size limit of %d", limit),
	}
}

// InputFieldArgCount reports a selector with the wrong number of arguments set.
func InputFieldArgCount(expected int) *QueryError {
	return &QueryError{
		Code:    CodeInputFieldArgCount,
		Message: fmt.Sprintf("Exactly %d input argument(s) must be set", expected),
	}
}

// MissingArgument reports a required argument that was not supplied.
func MissingArgument(name string) *QueryError {
	return &QueryError{
		Code:    CodeMissingArgument,
		Message: fmt.Sprintf("Missing required argument: %s", name),
		Fields:  []Field{F("argument", name)},
	}
}

// InvalidArgument reports an argument that the upstream service rejected.
func InvalidArgument(message string) *QueryError {
	return &QueryError{Code: CodeInvalidArgument, Message: message}
}

// DatabaseNotFound reports a release database that does not exist.
func DatabaseNotFound(name string) *QueryError {
	return &QueryError{
		Code:    CodeDatabaseNotFound,
		Message: fmt.Sprintf("Failed to find database: %s", name),
		Fields:  []Field{F("database", name)},
	}
}

// CollectionNotFound reports a collection missing from a release database.
func CollectionNotFound(name string) *QueryError {
	return &QueryError{
		Code:    CodeCollectionNotFound,
		Message: fmt.Sprintf("Failed to find collection: %s", name),
		Fields:  []Field{F("collection", name)},
	}
}

// UpstreamUnavailable reports a failed or timed out call to a backing service.
func UpstreamUnavailable(service string, cause error) *QueryError {
	return &QueryError{
		Code:    CodeUpstreamUnavailable,
		Message: fmt.Sprintf("Failed to reach %s", service),
		Fields:  []Field{F("service", service)},
		Err:     cause,
	}
}

// IllegalInfoType reports an xref assignment method outside the known set.
func IllegalInfoType(infoType string) *QueryError {
	return &QueryError{
		Code:    CodeIllegalInfoType,
		Message: fmt.Sprintf("Illegal xref info_type %s used", infoType),
		Fields:  []Field{F("info_type", infoType)},
	}
}
