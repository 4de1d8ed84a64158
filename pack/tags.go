package pack

// Wire tag bytes, msgpack-compatible. Canonical encoders always choose the
// smallest tag that fits; decoders accept any tag.
const (
	tagPosFixintMax = 0x7f
	tagNegFixintMin = 0xe0 // 0xe0..0xff encode -32..-1

	tagNil      = 0xc0
	tagFalse    = 0xc2
	tagTrue     = 0xc3
	tagBin8     = 0xc4
	tagBin16    = 0xc5
	tagBin32    = 0xc6
	tagExt8     = 0xc7
	tagExt16    = 0xc8
	tagExt32    = 0xc9
	tagFloat32  = 0xca
	tagFloat64  = 0xcb
	tagUint8    = 0xcc
	tagUint16   = 0xcd
	tagUint32   = 0xce
	tagUint64   = 0xcf
	tagInt8     = 0xd0
	tagInt16    = 0xd1
	tagInt32    = 0xd2
	tagInt64    = 0xd3
	tagFixext1  = 0xd4
	tagFixext2  = 0xd5
	tagFixext4  = 0xd6
	tagFixext8  = 0xd7
	tagFixext16 = 0xd8
	tagStr8     = 0xd9
	tagStr16    = 0xda
	tagStr32    = 0xdb
	tagArray16  = 0xdc
	tagArray32  = 0xdd
	tagMap16    = 0xde
	tagMap32    = 0xdf

	tagFixstrMask  = 0xa0 // 0xa0..0xbf: fixstr 0..31
	tagFixarrMask  = 0x90 // 0x90..0x9f: fixarray 0..15
	tagFixmapMask  = 0x80 // 0x80..0x8f: fixmap 0..15
)
