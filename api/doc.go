// Package api defines the wire types of the canvasflow HTTP surface.
// Handlers live in the handlers subpackage; this package holds only the
// request and response shapes shared with clients.
package api
