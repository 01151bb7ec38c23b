// Package mocknet provides a scripted stand-in for a stellar-core admin
// endpoint.
//
// A Network answers the same paths as a live node without any I/O and
// records every request, so tests can assert which nodes were surveyed and
// in which order. ThreeNode builds the small canned network behind the
// mocksurvey command.
package mocknet
