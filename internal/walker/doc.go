// Package walker indexes hosted repositories.
//
// An Indexer drives one repository at a time through the states
// IN_PROGRESS, then COMPLETED or FAILED:
//
//  1. look up the registry entry, synthesizing a default one if absent
//  2. fetch and persist repository metadata (failure aborts the run)
//  3. process the README (failure is recorded, not fatal)
//  4. walk the directory tree with an explicit worklist, dispatching each
//     selected file to the first processor that accepts it
//
// Per-file failures never abort the walk. They are collected as skipped
// items on the IndexingResult.
//
// Results live in a Session owned by the caller. A Session refuses to
// start a second run for a key that is still in progress.
package walker
