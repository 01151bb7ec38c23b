// Package model defines the core data structures used throughout overlaysurvey.
//
// This package contains the following main types:
//   - Node, Edge: Vertices and links of the reconstructed overlay topology
//   - PeerRecord: One directional link observation reported by a surveyed node
//   - NodeSurveyState, SurveyStates: Per-node accumulation of survey reports
//   - IDSet: Insertion-ordered set of node ids (sent set, frontier)
//   - Wire types: Typed payloads of the stellar-core HTTP endpoints
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The node client, the survey loop, the topology graph and the
// report writers all need these types, so centralizing them prevents import
// cycles.
//
// The models are designed to be serializable to JSON for artifact output and
// database storage.
package model
