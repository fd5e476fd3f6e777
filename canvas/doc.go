// Package canvas presents one logical view of the shared canvas graph even
// though two physical stores may hold overlapping data: an authoritative
// backend (source of truth for freshly created nodes not yet replicated)
// and a CRDT-replicated document (the near-real-time view shared with
// other clients).
//
// Reconciliation discipline: reads prefer the document when a live,
// connected handle exists and fall back to the backend; a node is reported
// missing only when every consulted store lacks it. Document unavailability
// is routine and never escapes as an error; backend failures are hard and
// are surfaced to the caller.
package canvas
