// Package app wires the bridge together: logger, correlator, native modules,
// capability table, socket.io transport and health check. It is decoupled
// from any entrypoint like a CLI.
package app
