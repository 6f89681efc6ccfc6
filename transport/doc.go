// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package transport owns one WebSocket client connection: TLS dial,
// RFC6455 upgrade, and the read loop that hands inbound frames to the
// dispatcher while accepting outbound bytes from the session (§4.4).
package transport
