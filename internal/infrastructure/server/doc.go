// Package server wires the bridge, its middleware stack and its handlers
// into an HTTP server.
package server
