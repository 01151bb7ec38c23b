// Package topology provides the overlay graph assembled by a survey crawl.
//
// The Graph type only grows: nodes and edges are added idempotently and never
// removed. Two rules define the merge semantics:
//   - A node's version is replaced by any non-empty version, and kept when an
//     empty one is supplied.
//   - An edge keeps the traffic weight of the first report that created it.
//     Later, possibly larger, figures for the same link are discarded.
//
// The package also reads and writes GraphML files, the exchange format of the
// survey artifacts, and computes a content digest used to recognise identical
// topologies across crawl runs.
package topology
