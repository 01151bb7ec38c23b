// Package database keeps the history of finished survey runs in SQLite.
//
// A HistoryDB file (overlaysurvey.db, in the XDG data directory by default)
// holds three tables:
//   - runs: one row per crawl with its node, timing, counts, topology
//     digest and the statistics document as JSON
//   - run_nodes and run_edges: the topology of that crawl, in discovery
//     order, so it can be rebuilt with LoadGraph and compared later
//
// Design decision: We use modernc.org/sqlite, a pure Go driver. The store
// is a single file next to the user's other application data and the binary
// still cross-compiles without CGO.
//
// Runs are keyed by UUID. Any unique prefix of an id is accepted wherever an
// id is expected, so the history command can take the short form shown in
// listings.
package database
