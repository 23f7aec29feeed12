// Package toolbackend defines the contract between the agent engine and the
// tool catalog: descriptor listing, schema-validated invocation, and
// per-request client sessions. It is the only source of authoritative data
// for the engine.
package toolbackend
