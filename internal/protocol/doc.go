// Package protocol defines the wire format between jobctl and jobserver.
//
// Messages are JSON objects sent over a unix domain socket, one per line.
// A connection carries exactly one Request followed by exactly one
// Response. Both are closed sets of variants discriminated by an "action"
// field.
package protocol
