// Package loader batches the joins a query tree makes into the document
// store.
//
// A resolver asking for the transcripts of one gene does not query the
// store directly; it calls
//
//	docs, err := set.Load(ctx, loader.TranscriptsByGene, geneKey)
//
// and every such call made within the wait window is answered by one
// query with the collected keys in an $in filter. Results come back in
// the order the keys were asked for, with an empty slice for keys that
// matched nothing. Each loader also memoises keys for the life of its
// Set.
//
// A Set belongs to exactly one root field of one request. Two root fields
// addressing different genomes get different sets, so no batch ever mixes
// keys from two genomes.
package loader
