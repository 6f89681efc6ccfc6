// File: trader/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package trader is the order-entry facade: it owns the buffer pool,
// ring dispatcher, transport, session, and codec provider, and wires
// them into the operations an application calls (§4.6). The
// lifecycle shape is generalized from client/facade.go's Client:
// lifecycle goroutines stopped through stop channels, Close waiting on
// state rather than cancelling a context.Context directly.
package trader
