// Package wire owns the message type registry and the JSON frame codec.
//
// Ownership boundary:
// - Message interface and the (domain, type) -> decoder registry
// - frame marshal/unmarshal with transport metadata injection
// - channel negotiation message shapes
//
// Every concrete message type registers its (domain, type) pair exactly once
// at process init; a duplicate pair is a startup integrity failure, not a
// runtime error.
package wire
