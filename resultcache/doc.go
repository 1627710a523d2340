// Package resultcache caches root lookups against the document store.
//
// Entries are keyed by the document type and a canonical encoding of the
// query filter, so the same lookup always lands on the same key:
//
//	docs, err := cache.ReadThrough(ctx, "Gene", filter, func(ctx context.Context) ([]docstore.Document, error) {
//	    return coll.Find(ctx, filter, docstore.FindOptions{})
//	})
//
// The cache is an accelerator only. Backend errors are logged and counted
// under genomegate_result_cache_operations_total{result="error"} and the lookup
// falls through to the store. Results are not written once the request
// context is done.
package resultcache
