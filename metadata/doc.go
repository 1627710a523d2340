// Package metadata is the client for the genome metadata service, which
// owns genome identity, release membership and dataset catalogues.
//
// The client exposes four typed operations:
//
//	genome, err := client.GenomeByUUID(ctx, uuid, 0)
//	genomes, err := client.GenomesByKeyword(ctx, metadata.KeywordSelector{ScientificName: "Homo sapiens"}, 0)
//	datasets, err := client.DatasetsByUUID(ctx, uuid, 0)
//	version, err := client.ReleaseByGenome(ctx, uuid)
//
// Calls travel over a Transport. GRPCTransport talks to the service
// directly; it discovers message shapes through server reflection so no
// generated code is compiled in. NATSTransport sends the same JSON bodies
// as NATS requests for deployments that front the service with a
// responder.
//
// Every call runs under the configured timeout. Transport failures are
// reported as UPSTREAM_UNAVAILABLE, unknown genomes as a nil result.
package metadata
