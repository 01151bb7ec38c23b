// Package node talks to the admin HTTP endpoint of a stellar-core node.
//
// All survey traffic goes through the Transport interface. HTTPTransport is
// the live implementation; tests and the mocksurvey command substitute a
// scripted network that answers the same paths.
//
// Design decision: Client decodes payloads into the typed structs of the
// model package and reports missing mandatory fields as model.ProtocolError.
// HTTP status codes are not inspected because stellar-core (and the canned
// mock network) answer some valid requests with a non-2xx status and a JSON
// body; a body that does not decode is what makes a call fail.
package node
