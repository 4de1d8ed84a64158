package pack

import "math"

// Decode reads one value from the front of in and returns it along with the
// remaining, unconsumed bytes. Every multi-byte read is bounds-checked
// against len(in); a value whose declared length runs past the end of in
// returns ErrTruncated.
func Decode(in []byte) (Value, []byte, error) {
	if len(in) == 0 {
		return Value{}, in, ErrTruncated
	}
	tag := in[0]
	rest := in[1:]

	switch {
	case tag <= tagPosFixintMax:
		return Uint(uint64(tag)), rest, nil
	case tag >= tagNegFixintMin:
		return Int(int64(int8(tag))), rest, nil
	case tag&0xe0 == tagFixstrMask:
		n := int(tag & 0x1f)
		return readStr(rest, n)
	case tag&0xf0 == tagFixarrMask:
		n := int(tag & 0x0f)
		return readArray(rest, n)
	case tag&0xf0 == tagFixmapMask:
		n := int(tag & 0x0f)
		return readMap(rest, n)
	}

	switch tag {
	case tagNil:
		return Nil(), rest, nil
	case tagFalse:
		return Bool_(false), rest, nil
	case tagTrue:
		return Bool_(true), rest, nil
	case tagUint8:
		u, r, err := readUint(rest, 1)
		return Uint(u), r, err
	case tagUint16:
		u, r, err := readUint(rest, 2)
		return Uint(u), r, err
	case tagUint32:
		u, r, err := readUint(rest, 4)
		return Uint(u), r, err
	case tagUint64:
		u, r, err := readUint(rest, 8)
		return Uint(u), r, err
	case tagInt8:
		u, r, err := readUint(rest, 1)
		return Int(int64(int8(u))), r, err
	case tagInt16:
		u, r, err := readUint(rest, 2)
		return Int(int64(int16(u))), r, err
	case tagInt32:
		u, r, err := readUint(rest, 4)
		return Int(int64(int32(u))), r, err
	case tagInt64:
		u, r, err := readUint(rest, 8)
		return Int(int64(u)), r, err
	case tagFloat32:
		u, r, err := readUint(rest, 4)
		if err != nil {
			return Value{}, in, err
		}
		return Float32_(math.Float32frombits(uint32(u))), r, nil
	case tagFloat64:
		u, r, err := readUint(rest, 8)
		if err != nil {
			return Value{}, in, err
		}
		return Float64_(math.Float64frombits(u)), r, nil
	case tagStr8:
		n, r, err := readUint(rest, 1)
		if err != nil {
			return Value{}, in, err
		}
		return readStr(r, int(n))
	case tagStr16:
		n, r, err := readUint(rest, 2)
		if err != nil {
			return Value{}, in, err
		}
		return readStr(r, int(n))
	case tagStr32:
		n, r, err := readUint(rest, 4)
		if err != nil {
			return Value{}, in, err
		}
		return readStr(r, int(n))
	case tagBin8:
		n, r, err := readUint(rest, 1)
		if err != nil {
			return Value{}, in, err
		}
		return readBin(r, int(n))
	case tagBin16:
		n, r, err := readUint(rest, 2)
		if err != nil {
			return Value{}, in, err
		}
		return readBin(r, int(n))
	case tagBin32:
		n, r, err := readUint(rest, 4)
		if err != nil {
			return Value{}, in, err
		}
		return readBin(r, int(n))
	case tagArray16:
		n, r, err := readUint(rest, 2)
		if err != nil {
			return Value{}, in, err
		}
		return readArray(r, int(n))
	case tagArray32:
		n, r, err := readUint(rest, 4)
		if err != nil {
			return Value{}, in, err
		}
		return readArray(r, int(n))
	case tagMap16:
		n, r, err := readUint(rest, 2)
		if err != nil {
			return Value{}, in, err
		}
		return readMap(r, int(n))
	case tagMap32:
		n, r, err := readUint(rest, 4)
		if err != nil {
			return Value{}, in, err
		}
		return readMap(r, int(n))
	case tagFixext1:
		return readExt(rest, 1)
	case tagFixext2:
		return readExt(rest, 2)
	case tagFixext4:
		return readExt(rest, 4)
	case tagFixext8:
		return readExt(rest, 8)
	case tagFixext16:
		return readExt(rest, 16)
	case tagExt8:
		n, r, err := readUint(rest, 1)
		if err != nil {
			return Value{}, in, err
		}
		return readExt(r, int(n))
	case tagExt16:
		n, r, err := readUint(rest, 2)
		if err != nil {
			return Value{}, in, err
		}
		return readExt(r, int(n))
	case tagExt32:
		n, r, err := readUint(rest, 4)
		if err != nil {
			return Value{}, in, err
		}
		return readExt(r, int(n))
	}
	return Value{}, in, ErrInvalidHeader
}

func readUint(in []byte, n int) (uint64, []byte, error) {
	if len(in) < n {
		return 0, in, ErrTruncated
	}
	var u uint64
	for i := 0; i < n; i++ {
		u = u<<8 | uint64(in[i])
	}
	return u, in[n:], nil
}

func readStr(in []byte, n int) (Value, []byte, error) {
	if n < 0 || len(in) < n {
		return Value{}, in, ErrTruncated
	}
	return Str(string(in[:n])), in[n:], nil
}

func readBin(in []byte, n int) (Value, []byte, error) {
	if n < 0 || len(in) < n {
		return Value{}, in, ErrTruncated
	}
	b := make([]byte, n)
	copy(b, in[:n])
	return Bin(b), in[n:], nil
}

func readExt(in []byte, n int) (Value, []byte, error) {
	if len(in) < 1+n {
		return Value{}, in, ErrTruncated
	}
	t := int8(in[0])
	d := make([]byte, n)
	copy(d, in[1:1+n])
	return ExtVal(t, d), in[1+n:], nil
}

func readArray(in []byte, n int) (Value, []byte, error) {
	if n < 0 {
		return Value{}, in, ErrInvalidHeader
	}
	items := make([]Value, 0, n)
	rest := in
	for i := 0; i < n; i++ {
		var v Value
		var err error
		v, rest, err = Decode(rest)
		if err != nil {
			return Value{}, in, err
		}
		items = append(items, v)
	}
	return Array(items...), rest, nil
}

func readMap(in []byte, n int) (Value, []byte, error) {
	if n < 0 {
		return Value{}, in, ErrInvalidHeader
	}
	entries := make([]MapEntry, 0, n)
	rest := in
	for i := 0; i < n; i++ {
		var k, v Value
		var err error
		k, rest, err = Decode(rest)
		if err != nil {
			return Value{}, in, err
		}
		v, rest, err = Decode(rest)
		if err != nil {
			return Value{}, in, err
		}
		entries = append(entries, MapEntry{Key: k, Val: v})
	}
	return Map(entries...), rest, nil
}

// Check validates the first value in in by decoding it in full and
// discarding the result, returning the remaining bytes on success.
func Check(in []byte) ([]byte, error) {
	return Skip(in)
}

// Skip advances past one encoded value, returning the bytes that follow. It
// decodes the value through Decode and drops it, so the value is built and
// then discarded. Skip and Check share this implementation.
func Skip(in []byte) ([]byte, error) {
	_, rest, err := Decode(in)
	return rest, err
}

// DecodeArrayHeader reads only the length prefix of the next array value,
// leaving its n elements still encoded in the returned remainder so the
// caller can Decode them one at a time (used by the tuple field walk and
// the key extractor).
func DecodeArrayHeader(in []byte) (int, []byte, error) {
	if len(in) == 0 {
		return 0, in, ErrTruncated
	}
	tag := in[0]
	rest := in[1:]
	switch {
	case tag&0xf0 == tagFixarrMask:
		return int(tag & 0x0f), rest, nil
	case tag == tagArray16:
		n, r, err := readUint(rest, 2)
		return int(n), r, err
	case tag == tagArray32:
		n, r, err := readUint(rest, 4)
		return int(n), r, err
	default:
		return 0, in, ErrUnexpectedType
	}
}

// DecodeMapHeader reads only the length prefix of the next map value,
// leaving its n key/value pairs still encoded in the returned remainder.
func DecodeMapHeader(in []byte) (int, []byte, error) {
	if len(in) == 0 {
		return 0, in, ErrTruncated
	}
	tag := in[0]
	rest := in[1:]
	switch {
	case tag&0xf0 == tagFixmapMask:
		return int(tag & 0x0f), rest, nil
	case tag == tagMap16:
		n, r, err := readUint(rest, 2)
		return int(n), r, err
	case tag == tagMap32:
		n, r, err := readUint(rest, 4)
		return int(n), r, err
	default:
		return 0, in, ErrUnexpectedType
	}
}

// DecodeUint decodes the next value, requiring it to be an unsigned int.
func DecodeUint(in []byte) (uint64, []byte, error) {
	v, rest, err := Decode(in)
	if err != nil {
		return 0, in, err
	}
	if v.Kind != KindUint {
		return 0, in, ErrUnexpectedType
	}
	return v.Uint, rest, nil
}

// DecodeInt decodes the next value, requiring it to be an int or uint
// (uint is widened).
func DecodeInt(in []byte) (int64, []byte, error) {
	v, rest, err := Decode(in)
	if err != nil {
		return 0, in, err
	}
	switch v.Kind {
	case KindInt:
		return v.Int, rest, nil
	case KindUint:
		return int64(v.Uint), rest, nil
	default:
		return 0, in, ErrUnexpectedType
	}
}

// DecodeStr decodes the next value, requiring it to be a string.
func DecodeStr(in []byte) (string, []byte, error) {
	v, rest, err := Decode(in)
	if err != nil {
		return "", in, err
	}
	if v.Kind != KindStr {
		return "", in, ErrUnexpectedType
	}
	return v.Str, rest, nil
}

// DecodeBin decodes the next value, requiring it to be opaque bytes.
func DecodeBin(in []byte) ([]byte, []byte, error) {
	v, rest, err := Decode(in)
	if err != nil {
		return nil, in, err
	}
	if v.Kind != KindBin {
		return nil, in, ErrUnexpectedType
	}
	return v.Bin, rest, nil
}

// DecodeBool decodes the next value, requiring it to be a boolean.
func DecodeBool(in []byte) (bool, []byte, error) {
	v, rest, err := Decode(in)
	if err != nil {
		return false, in, err
	}
	if v.Kind != KindBool {
		return false, in, ErrUnexpectedType
	}
	return v.Bool, rest, nil
}
