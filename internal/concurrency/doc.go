// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ring-buffered dispatch between the transport's read loop and session
// processing: one producer (the socket reader), one consumer (the
// dispatcher's worker goroutine), no locks on the hot path.
package concurrency
