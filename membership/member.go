// Package membership implements the wire envelope of spec.md §6's
// "Failure-detection / membership protocol": encode/decode only, no socket
// I/O and no failure-detection timers (those stay out of scope per spec.md
// §1 — membership is external to the core, but its wire format is bit-exact
// when present). Grounded directly on
// _examples/original_source/src/lib/swim/swim_proto.c and .h's map-key
// layout and field order.
package membership

import "net"

// Status is a member's failure-detection state
// (swim_proto.h's enum swim_member_status).
type Status uint8

const (
	StatusAlive Status = iota
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Member is one record of an anti-entropy table or a dissemination event
// (swim_proto.h's struct swim_member_bin / swim_event_bin share the same
// four-or-five-field shape: status, address, port, incarnation, optional
// payload).
type Member struct {
	Status      Status
	Address     net.IP
	Port        uint16
	Incarnation uint64
	Payload     []byte // nil if absent
}

// FDMessageType distinguishes a failure-detection ping from its ack
// (swim_proto.h's enum swim_fd_msg_type).
type FDMessageType uint8

const (
	FDMsgPing FDMessageType = iota
	FDMsgAck
)

func (t FDMessageType) String() string {
	switch t {
	case FDMsgPing:
		return "ping"
	case FDMsgAck:
		return "ack"
	default:
		return "unknown"
	}
}

// FailureDetection is SWIM's direct ping/ack component
// (swim_proto.h's struct swim_failure_detection_def).
type FailureDetection struct {
	Type        FDMessageType
	Incarnation uint64
}

// Route carries the true source/destination of a forwarded datagram, for
// messages relayed through an intermediate member
// (swim_proto.h's struct swim_route_bin).
type Route struct {
	SrcAddress net.IP
	SrcPort    uint16
	DstAddress net.IP
	DstPort    uint16
}

// Meta precedes every SWIM datagram's main component map
// (swim_proto.h's struct swim_meta_header_bin): protocol version, true
// sender, and an optional forwarding route.
type Meta struct {
	Version uint32
	Address net.IP
	Port    uint16
	Route   *Route // nil if this datagram was sent directly
}

// Packet is one decoded SWIM datagram: a Meta header plus any subset of
// the three main-message components (swim_proto.h's bottom doc comment:
// "OR/AND" between FAILURE_DETECTION, DISSEMINATION and ANTI_ENTROPY —
// a single datagram may merge more than one).
type Packet struct {
	Meta Meta

	AntiEntropy      []Member
	FailureDetection *FailureDetection
	Dissemination    []Member
}
