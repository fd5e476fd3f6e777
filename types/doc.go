// Package types defines the shared canvas data model: nodes, edges, asset
// lifecycle states, structured errors, and normalized stream events.
//
// The types package is the lowest-level package with no internal
// dependencies, so every other package can import it without creating
// circular imports. All graph logic operates on the typed forms defined
// here; raw store representations are converted exactly once at the store
// boundary (see NodeDataFromMap).
package types
