// Package server implements the HTTP API server for the flow editor
//
// This package provides REST endpoints for loading, saving, publishing,
// and validating flow graphs, proxied execution control, the node-type
// catalog, and WebSocket streaming of execution events
package server
