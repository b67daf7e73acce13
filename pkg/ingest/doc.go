// Package ingest compiles an ingestion request into an ordered, dialect-specific
// SQL plan.
//
// A request names the main and staging datasets, an ingest mode and a
// dialect. Compile resolves the derived main schema, the temporary tables and
// the technical column names, then builds statement IR for every phase of a
// batch: pre-actions, locking, deduplication and versioning, error checks,
// milestoning, statistics, batch metadata, post-actions and cleanup. The IR
// is rendered through pkg/format.
//
// Compile is pure: it performs no I/O and the same request always yields the
// same GeneratorResult. Executing the plan is the caller's concern.
package ingest
