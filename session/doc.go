// File: session/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package session implements the five-state FIXP session machine:
// negotiate/establish handshake, sequence-numbered application
// delivery, heartbeat liveness, and a demand-pull event subscriber.
// Generalized from the teacher's internal/session context holder
// (mutex, sync.Once-guarded done channel) and client/facade.go's
// ticker-driven lifecycle goroutines.
package session
