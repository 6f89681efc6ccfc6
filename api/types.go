// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

import "time"

// APIMetrics provides a standard layout for trader health/statistics
// reporting. Control.Stats() returns a flat map and does not use this
// struct.
type APIMetrics struct {
	NextOutboundSeqNo uint64
	ExpectedInboundSeqNo uint64
	HeartbeatMisses   int
	InboundTraffic    uint64 // bytes received
	OutboundTraffic   uint64 // bytes sent
	StartedAt         time.Time
}

// ServiceInfo exposes descriptive build- and runtime info for
// external tools (debug probes, CLI banners).
type ServiceInfo struct {
	Name      string
	Version   string
	Build     string
	StartedAt time.Time
}
