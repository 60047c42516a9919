// Package dataterm is the core of the dterm financial-data terminal.
//
// Every data command follows the same pipeline:
//   - Load: a Loader fetches a Query from a registered Source, with a
//     timeout, and stores the resulting Table in the session Store under a
//     name.
//   - Transform: Sort, Filter and Derive return new tables from a stored
//     one. They are pure and deterministic.
//   - Present: the renderer and export packages turn a table into markdown,
//     a chart, or a csv, json or xlsx file, without modifying it.
//
// Failures wrap one of the error kinds (ErrInvalidParameters,
// ErrSourceUnavailable, ...) and the StageError of the step they come from.
// A failed command leaves the Store as it was.
//
// A Session ties the pipeline together for the lifetime of a terminal: it
// holds the configuration, the Store, the Loader and the logger.
package dataterm
