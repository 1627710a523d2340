// Package retry implements exponential backoff with optional jitter.
//
// It is used where genomegate talks to a backing service before it can serve
// traffic: the MongoDB ping at startup, the gRPC reflection handshake and the
// identifier registry download.
//
//	err := retry.Do(ctx, retry.Quick(), func() error {
//	    return client.Ping(ctx, nil)
//	})
//
// Wrap an error with NonRetryable to stop immediately, for example on an HTTP
// 404 from the registry.
package retry
