// Package domain defines the core value types for the venue ingestion
// pipeline.
//
// Types in this package are pure value objects with no behavior beyond
// small pure helpers. They are the shared language between the pipeline
// controller, the media/storage adapters, and the persistence layer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
package domain
