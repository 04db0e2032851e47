// Package ingest owns the bounded ingestion queue and the
// concurrency-limited scheduler that drains it.
//
// Ordering: FIFO holds for first-attempt processing only. A retried entry
// is pushed to the tail and loses its original position. This is accepted
// behavior, not an oversight; preserving position would complicate the
// overflow eviction path for no measured benefit.
package ingest
