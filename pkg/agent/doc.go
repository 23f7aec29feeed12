// Package agent implements the message-processing engine behind the
// scheduling assistant. Each inbound message runs through one sequential
// pipeline: relative dates in the message are resolved up front, the model
// is called once for a plan, the plan (or a policy fallback) selects a tool,
// and the tool's JSON result is formatted into the reply. A small state
// machine handles the two chained follow-ups: availability lookups after a
// bare date resolution, and a one-shot register-and-retry when a booking
// hits an unknown patient.
package agent
