// Package errors provides error handling for genomegate.
//
// # Classification
//
// Infrastructure errors are classified as Transient (temporary, retryable),
// Invalid (bad input or configuration) or Fatal (stop processing):
//
//	if err := client.Ping(ctx); err != nil {
//	    return errors.WrapTransient(err, "Store", "Connect", "ping")
//	}
//
// All wrapping follows the format "component.method: action failed: cause",
// and classification survives errors.Is/errors.As chains.
//
// # Query errors
//
// Resolver failures that the client should see are QueryError values. Each
// carries a Code (GENE_NOT_FOUND, SLICE_RESULT_LIMIT_EXCEEDED, ...) and the
// identifying fields of the failed lookup:
//
//	return nil, errors.GeneNotFound(
//	    errors.F("stable_id", id),
//	    errors.F("genome_id", genomeID),
//	)
//
// The GraphQL gateway renders a QueryError as an entry in the response's
// errors array with extensions {code, ...fields}. Sibling fields keep
// resolving.
package errors
