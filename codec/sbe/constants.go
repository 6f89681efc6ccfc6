// File: codec/sbe/constants.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Template IDs and schema identity for the default wire encoding,
// grounded on the same enumerated-constant style as
// protocol/constants.go's opcode/close-code blocks.

package sbe

const (
	// ProviderName is the name this encoding registers under.
	ProviderName = "SBE"

	// SchemaID is the fixed schema identity carried in every header.
	SchemaID uint16 = 1001

	// Version is the fixed schema version carried in every header.
	Version uint16 = 1
)

// Template IDs, one per distinct frame shape.
const (
	TemplateNegotiate uint16 = iota + 1
	TemplateNegotiationResponse
	TemplateEstablish
	TemplateEstablishmentAck
	TemplateTerminate
	TemplateSequence
	TemplateRetransmitRequest
	TemplateApplication
	TemplateNewOrderSingle
	TemplateOrderCancelRequest
	TemplateExecutionReport
	TemplateOrderCancelReject
)

// HeaderLen is the fixed 8-byte SBE wire header: block-length,
// template-id, schema-id, version, all u16 little-endian.
const HeaderLen = 8
