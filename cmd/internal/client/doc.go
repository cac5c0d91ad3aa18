// Package client implements the line-oriented terminal client: the NDJSON connection,
// the registration handshake, slash-command parsing and response rendering.
package client
