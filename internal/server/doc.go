// Package server exposes looper nodes over HTTP. Each node lives in a
// registry keyed by its ULID and is driven one request at a time; a
// WebSocket stream ticks a node on an interval until its loop completes or
// the client goes away.
package server
