// Package dispatch turns authored generation badges into running
// generation work: it resolves the effective prompt, validates upstream
// dependencies, allocates asset identity, and performs the pending-asset
// plus dependency-edge write that must look atomic to the calling agent.
//
// Dispatch is not idempotent: two dispatches of the same badge before the
// first asset materializes allocate two assets and two edges. Callers
// serialize dispatches per node; the repair sweep exists to clean up when
// they do not.
package dispatch
