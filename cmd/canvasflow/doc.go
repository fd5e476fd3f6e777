// The canvasflow command runs the canvas platform server: graph storage
// with optional live document sync, generation dispatch, and agent thread
// interrupt control, exposed over HTTP with a separate metrics listener.
//
// Usage:
//
//	canvasflow serve [--config canvasflow.yaml]
//	canvasflow health [--addr http://localhost:8080]
//	canvasflow version
package main
