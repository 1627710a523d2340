// Package resolver answers genome annotation queries.
//
// Each schema object type has a resolver type whose methods resolve its
// fields. Every root field that targets a genome opens a RootState: the
// release database for the genome and a fresh loader.Set. The state is
// handed down to every resolver beneath that root, so two aliased roots
// aimed at different genomes in one request never see each other's
// loaders:
//
//	{
//	  human: gene(by_id: {genome_id: "homo_sapiens_GCA_000001405_28", stable_id: "ENSG00000139618"}) { symbol }
//	  wheat: gene(by_id: {genome_id: "triticum_aestivum_GCA_900519105_1", stable_id: "TraesCS3D02G273600"}) { symbol }
//	}
//
// The request Scope records the states so they can be released together.
// Root lookups read through the result cache. Joins between documents go
// through the loaders, and transcript lists are returned in display order.
package resolver
