// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Size-class-keyed buffer pooling for the FIXP client's hot path:
// request builders acquire a region, fill it, hand it to the session
// on send, and Trader.Send releases it once the session has handed it
// to the transport or failed (§4.1).
package pool
