// Package protocol implements the client side of the WebSocket wire
// format (RFC 6455): frame encoding/masking, streaming-safe decode
// over partial reads, and the HTTP/1.1 Upgrade handshake. The FIXP
// session layer rides on top of this as an application payload.
package protocol
