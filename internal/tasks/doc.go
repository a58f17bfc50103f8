// Package tasks runs bulk operations over the records of the artist management API.
//
// # Export
//
// [Engine.Export] pages through every page of users, artists or one artist's music and
// converts the records to CSV. Paging stops at the last page the API reports.
//
// # Import
//
// [Engine.Import] reads a CSV file, validates each row and creates the valid rows with at most
// [ImportOpts.Workers] requests in flight. Row failures are collected with their 1-based data row
// number instead of stopping the batch. Concurrent creates share the session refresh of the
// authenticated client, so an expired access credential is renewed once for the whole batch.
//
// Finished imports are recorded through a [RunRecorder] (repositories.ImportRunRepository).
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
