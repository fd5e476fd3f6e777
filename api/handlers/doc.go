// Package handlers implements the canvasflow HTTP handlers: graph CRUD,
// generation dispatch, interrupt control, and health probes. Handlers
// translate between the wire types in package api and the domain
// packages; they hold no business logic of their own.
package handlers
