// Package session stores per-session conversation history.
//
// The engine appends exactly one user turn and one assistant turn per
// processed message. Sessions are created on first reference and live for
// the process lifetime; there is no explicit destruction in the chat flow.
package session
