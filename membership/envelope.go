package membership

import (
	"encoding/binary"
	"net"

	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/pack"
)

// Map keys, bit-exact with swim_proto.h's enums (spec.md §6: "its wire
// format is bit-exact when present").
const (
	keyAntiEntropy      = 0 // swim_component_type.SWIM_ANTI_ENTROPY
	keyFailureDetection = 1 // SWIM_FAILURE_DETECTION
	keyDissemination    = 2 // SWIM_DISSEMINATION

	keyFDMsgType     = 0 // swim_fd_key.SWIM_FD_MSG_TYPE
	keyFDIncarnation = 1 // SWIM_FD_INCARNATION

	keyMemberStatus      = 0 // swim_member_key.SWIM_MEMBER_STATUS
	keyMemberAddress     = 1 // SWIM_MEMBER_ADDRESS
	keyMemberPort        = 2 // SWIM_MEMBER_PORT
	keyMemberIncarnation = 3 // SWIM_MEMBER_INCARNATION
	keyMemberPayload     = 4 // SWIM_MEMBER_PAYLOAD

	keyMetaVersion = 0 // swim_meta_key.SWIM_META_TARANTOOL_VERSION
	keyMetaAddress = 1 // SWIM_META_SRC_ADDRESS
	keyMetaPort    = 2 // SWIM_META_SRC_PORT
	keyMetaRouting = 3 // SWIM_META_ROUTING

	keyRouteSrcAddress = 0 // swim_route_key.SWIM_ROUTE_SRC_ADDRESS
	keyRouteSrcPort    = 1 // SWIM_ROUTE_SRC_PORT
	keyRouteDstAddress = 2 // SWIM_ROUTE_DST_ADDRESS
	keyRouteDstPort    = 3 // SWIM_ROUTE_DST_PORT
)

// addrToUint encodes an IPv4 address as the big-endian uint32 swim_proto.h's
// templates pack it as (mp_encode_uint(addr.sin_addr.s_addr)).
func addrToUint(ip net.IP) uint64 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(v4))
}

func uintToAddr(u uint64) net.IP {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(u))
	return net.IP(b[:]).To4()
}

func encodeMember(m Member) pack.Value {
	entries := []pack.MapEntry{
		{Key: pack.Uint(keyMemberStatus), Val: pack.Uint(uint64(m.Status))},
		{Key: pack.Uint(keyMemberAddress), Val: pack.Uint(addrToUint(m.Address))},
		{Key: pack.Uint(keyMemberPort), Val: pack.Uint(uint64(m.Port))},
		{Key: pack.Uint(keyMemberIncarnation), Val: pack.Uint(m.Incarnation)},
	}
	if m.Payload != nil {
		entries = append(entries, pack.MapEntry{Key: pack.Uint(keyMemberPayload), Val: pack.Bin(m.Payload)})
	}
	return pack.Map(entries...)
}

func decodeMember(v pack.Value) (Member, error) {
	if v.Kind != pack.KindMap {
		return Member{}, dberr.Client(dberr.InvalidMsgPack, "membership: member record is not a map")
	}
	var m Member
	haveStatus, haveAddr, havePort, haveIncarnation := false, false, false, false
	for _, e := range v.Map {
		if e.Key.Kind != pack.KindUint {
			continue
		}
		switch e.Key.Uint {
		case keyMemberStatus:
			m.Status = Status(e.Val.Uint)
			haveStatus = true
		case keyMemberAddress:
			m.Address = uintToAddr(e.Val.Uint)
			haveAddr = true
		case keyMemberPort:
			m.Port = uint16(e.Val.Uint)
			havePort = true
		case keyMemberIncarnation:
			m.Incarnation = e.Val.Uint
			haveIncarnation = true
		case keyMemberPayload:
			m.Payload = e.Val.Bin
		}
	}
	if !haveStatus || !haveAddr || !havePort || !haveIncarnation {
		return Member{}, dberr.Client(dberr.InvalidMsgPack, "membership: member record missing a required key")
	}
	return m, nil
}

func encodeMemberArray(members []Member) pack.Value {
	vs := make([]pack.Value, len(members))
	for i, m := range members {
		vs[i] = encodeMember(m)
	}
	return pack.Array(vs...)
}

func decodeMemberArray(v pack.Value, what string) ([]Member, error) {
	if v.Kind != pack.KindArray {
		return nil, dberr.Client(dberr.InvalidMsgPack, "membership: %s is not an array", what)
	}
	out := make([]Member, len(v.Array))
	for i, e := range v.Array {
		m, err := decodeMember(e)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// EncodeMeta encodes the meta header that precedes every SWIM datagram's
// main message (swim_proto.h's struct swim_meta_header_bin).
func EncodeMeta(m Meta) []byte {
	entries := []pack.MapEntry{
		{Key: pack.Uint(keyMetaVersion), Val: pack.Uint(uint64(m.Version))},
		{Key: pack.Uint(keyMetaAddress), Val: pack.Uint(addrToUint(m.Address))},
		{Key: pack.Uint(keyMetaPort), Val: pack.Uint(uint64(m.Port))},
	}
	if m.Route != nil {
		route := pack.Map(
			pack.MapEntry{Key: pack.Uint(keyRouteSrcAddress), Val: pack.Uint(addrToUint(m.Route.SrcAddress))},
			pack.MapEntry{Key: pack.Uint(keyRouteSrcPort), Val: pack.Uint(uint64(m.Route.SrcPort))},
			pack.MapEntry{Key: pack.Uint(keyRouteDstAddress), Val: pack.Uint(addrToUint(m.Route.DstAddress))},
			pack.MapEntry{Key: pack.Uint(keyRouteDstPort), Val: pack.Uint(uint64(m.Route.DstPort))},
		)
		entries = append(entries, pack.MapEntry{Key: pack.Uint(keyMetaRouting), Val: route})
	}
	return pack.Encode(pack.Map(entries...), nil)
}

// DecodeMeta decodes a meta header and returns the unconsumed remainder of
// data, which holds the datagram's main message.
func DecodeMeta(data []byte) (Meta, []byte, error) {
	v, rest, err := pack.Decode(data)
	if err != nil {
		return Meta{}, nil, dberr.Client(dberr.InvalidMsgPack, "membership: meta: %v", err)
	}
	if v.Kind != pack.KindMap {
		return Meta{}, nil, dberr.Client(dberr.InvalidMsgPack, "membership: meta is not a map")
	}
	var m Meta
	haveVersion, haveAddr, havePort := false, false, false
	for _, e := range v.Map {
		if e.Key.Kind != pack.KindUint {
			continue
		}
		switch e.Key.Uint {
		case keyMetaVersion:
			m.Version = uint32(e.Val.Uint)
			haveVersion = true
		case keyMetaAddress:
			m.Address = uintToAddr(e.Val.Uint)
			haveAddr = true
		case keyMetaPort:
			m.Port = uint16(e.Val.Uint)
			havePort = true
		case keyMetaRouting:
			route, err := decodeRoute(e.Val)
			if err != nil {
				return Meta{}, nil, err
			}
			m.Route = route
		}
	}
	if !haveVersion || !haveAddr || !havePort {
		return Meta{}, nil, dberr.Client(dberr.InvalidMsgPack, "membership: meta missing a required key")
	}
	return m, rest, nil
}

func decodeRoute(v pack.Value) (*Route, error) {
	if v.Kind != pack.KindMap {
		return nil, dberr.Client(dberr.InvalidMsgPack, "membership: routing is not a map")
	}
	r := &Route{}
	for _, e := range v.Map {
		if e.Key.Kind != pack.KindUint {
			continue
		}
		switch e.Key.Uint {
		case keyRouteSrcAddress:
			r.SrcAddress = uintToAddr(e.Val.Uint)
		case keyRouteSrcPort:
			r.SrcPort = uint16(e.Val.Uint)
		case keyRouteDstAddress:
			r.DstAddress = uintToAddr(e.Val.Uint)
		case keyRouteDstPort:
			r.DstPort = uint16(e.Val.Uint)
		}
	}
	return r, nil
}

// EncodeMain encodes a packet's main message — the merged
// ANTI_ENTROPY/FAILURE_DETECTION/DISSEMINATION map spec.md §6 describes —
// omitting any component the packet leaves unset (swim_proto.h's bottom
// comment: "OR/AND" between the three, meaning a round message may carry
// any non-empty subset).
func EncodeMain(p Packet) []byte {
	var entries []pack.MapEntry
	if p.AntiEntropy != nil {
		entries = append(entries, pack.MapEntry{Key: pack.Uint(keyAntiEntropy), Val: encodeMemberArray(p.AntiEntropy)})
	}
	if p.FailureDetection != nil {
		fd := pack.Map(
			pack.MapEntry{Key: pack.Uint(keyFDMsgType), Val: pack.Uint(uint64(p.FailureDetection.Type))},
			pack.MapEntry{Key: pack.Uint(keyFDIncarnation), Val: pack.Uint(p.FailureDetection.Incarnation)},
		)
		entries = append(entries, pack.MapEntry{Key: pack.Uint(keyFailureDetection), Val: fd})
	}
	if p.Dissemination != nil {
		entries = append(entries, pack.MapEntry{Key: pack.Uint(keyDissemination), Val: encodeMemberArray(p.Dissemination)})
	}
	return pack.Encode(pack.Map(entries...), nil)
}

// DecodeMain decodes a packet's main message into the component fields of
// p, which must already carry a decoded Meta.
func DecodeMain(data []byte, p *Packet) error {
	v, _, err := pack.Decode(data)
	if err != nil {
		return dberr.Client(dberr.InvalidMsgPack, "membership: main message: %v", err)
	}
	if v.Kind != pack.KindMap {
		return dberr.Client(dberr.InvalidMsgPack, "membership: main message is not a map")
	}
	for _, e := range v.Map {
		if e.Key.Kind != pack.KindUint {
			continue
		}
		switch e.Key.Uint {
		case keyAntiEntropy:
			members, err := decodeMemberArray(e.Val, "anti-entropy")
			if err != nil {
				return err
			}
			p.AntiEntropy = members
		case keyFailureDetection:
			fd, err := decodeFailureDetection(e.Val)
			if err != nil {
				return err
			}
			p.FailureDetection = fd
		case keyDissemination:
			events, err := decodeMemberArray(e.Val, "dissemination")
			if err != nil {
				return err
			}
			p.Dissemination = events
		}
	}
	return nil
}

func decodeFailureDetection(v pack.Value) (*FailureDetection, error) {
	if v.Kind != pack.KindMap {
		return nil, dberr.Client(dberr.InvalidMsgPack, "membership: failure-detection body is not a map")
	}
	fd := &FailureDetection{}
	haveType, haveIncarnation := false, false
	for _, e := range v.Map {
		if e.Key.Kind != pack.KindUint {
			continue
		}
		switch e.Key.Uint {
		case keyFDMsgType:
			fd.Type = FDMessageType(e.Val.Uint)
			haveType = true
		case keyFDIncarnation:
			fd.Incarnation = e.Val.Uint
			haveIncarnation = true
		}
	}
	if !haveType || !haveIncarnation {
		return nil, dberr.Client(dberr.InvalidMsgPack, "membership: failure-detection body missing a required key")
	}
	return fd, nil
}

// EncodePacket encodes p as a full SWIM datagram: the meta header followed
// immediately by the main message, two concatenated top-level msgpack
// values in one buffer (swim_io.c's swim_meta_header_bin is written at
// packet.meta, ahead of packet.body where the main message lives).
func EncodePacket(p Packet) []byte {
	out := EncodeMeta(p.Meta)
	return append(out, EncodeMain(p)...)
}

// DecodePacket is the inverse of EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	meta, rest, err := DecodeMeta(data)
	if err != nil {
		return Packet{}, err
	}
	p := Packet{Meta: meta}
	if err := DecodeMain(rest, &p); err != nil {
		return Packet{}, err
	}
	return p, nil
}
