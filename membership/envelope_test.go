package membership

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarandb/tarancore/pack"
)

func TestPacketRoundTripAntiEntropyAndFailureDetection(t *testing.T) {
	p := Packet{
		Meta: Meta{
			Version: 0x00020004,
			Address: net.IPv4(10, 0, 0, 1),
			Port:    3301,
		},
		AntiEntropy: []Member{
			{Status: StatusAlive, Address: net.IPv4(10, 0, 0, 2), Port: 3301, Incarnation: 1},
			{Status: StatusDead, Address: net.IPv4(10, 0, 0, 3), Port: 3302, Incarnation: 7, Payload: []byte("hi")},
		},
		FailureDetection: &FailureDetection{Type: FDMsgPing, Incarnation: 1},
	}

	data := EncodePacket(p)
	got, err := DecodePacket(data)
	require.NoError(t, err)

	assert.Equal(t, p.Meta.Version, got.Meta.Version)
	assert.True(t, p.Meta.Address.Equal(got.Meta.Address))
	assert.Equal(t, p.Meta.Port, got.Meta.Port)
	assert.Nil(t, got.Meta.Route)

	require.Len(t, got.AntiEntropy, 2)
	assert.Equal(t, StatusAlive, got.AntiEntropy[0].Status)
	assert.True(t, p.AntiEntropy[0].Address.Equal(got.AntiEntropy[0].Address))
	assert.Equal(t, uint64(1), got.AntiEntropy[0].Incarnation)
	assert.Equal(t, StatusDead, got.AntiEntropy[1].Status)
	assert.Equal(t, []byte("hi"), got.AntiEntropy[1].Payload)

	require.NotNil(t, got.FailureDetection)
	assert.Equal(t, FDMsgPing, got.FailureDetection.Type)
	assert.Equal(t, uint64(1), got.FailureDetection.Incarnation)

	assert.Nil(t, got.Dissemination)
}

func TestPacketRoundTripDisseminationWithRoute(t *testing.T) {
	p := Packet{
		Meta: Meta{
			Version: 1,
			Address: net.IPv4(127, 0, 0, 1),
			Port:    3301,
			Route: &Route{
				SrcAddress: net.IPv4(192, 168, 1, 1),
				SrcPort:    3301,
				DstAddress: net.IPv4(192, 168, 1, 2),
				DstPort:    3301,
			},
		},
		Dissemination: []Member{
			{Status: StatusAlive, Address: net.IPv4(192, 168, 1, 3), Port: 3301, Incarnation: 2},
		},
	}

	data := EncodePacket(p)
	got, err := DecodePacket(data)
	require.NoError(t, err)

	require.NotNil(t, got.Meta.Route)
	assert.True(t, p.Meta.Route.SrcAddress.Equal(got.Meta.Route.SrcAddress))
	assert.Equal(t, p.Meta.Route.SrcPort, got.Meta.Route.SrcPort)
	assert.True(t, p.Meta.Route.DstAddress.Equal(got.Meta.Route.DstAddress))
	assert.Equal(t, p.Meta.Route.DstPort, got.Meta.Route.DstPort)

	require.Len(t, got.Dissemination, 1)
	assert.Equal(t, uint64(2), got.Dissemination[0].Incarnation)
	assert.Nil(t, got.FailureDetection)
	assert.Nil(t, got.AntiEntropy)
}

func TestDecodeMetaRejectsNonMap(t *testing.T) {
	_, _, err := DecodeMeta([]byte{0x01}) // a bare positive-fixint, not a map
	assert.Error(t, err)
}

func TestDecodeMainRejectsFailureDetectionMissingIncarnation(t *testing.T) {
	raw := pack.Encode(pack.Map(
		pack.MapEntry{Key: pack.Uint(keyFailureDetection), Val: pack.Map(
			pack.MapEntry{Key: pack.Uint(keyFDMsgType), Val: pack.Uint(uint64(FDMsgPing))},
		)},
	), nil)

	var p Packet
	assert.Error(t, DecodeMain(raw, &p))
}
