package consensus

import "encoding/binary"

// This file carries the canonical byte encoding used for every persisted
// graph-store value: little-endian fixed-width integers plus a CompactSize
// length-varint, the same primitives the teacher protocol uses at its wire
// boundary (consensus/wire_read.go, wire_write.go, compactsize*.go),
// generalized here from transaction/block wire framing to hash-list and
// vote-tuple framing (see canon.go).

func readU8(b []byte, off *int) (uint8, error) {
	if *off+1 > len(b) {
		return 0, errStorage("unexpected EOF (u8)")
	}
	v := b[*off]
	*off++
	return v, nil
}

func readU16le(b []byte, off *int) (uint16, error) {
	if *off+2 > len(b) {
		return 0, errStorage("unexpected EOF (u16le)")
	}
	v := binary.LittleEndian.Uint16(b[*off : *off+2])
	*off += 2
	return v, nil
}

func readU32le(b []byte, off *int) (uint32, error) {
	if *off+4 > len(b) {
		return 0, errStorage("unexpected EOF (u32le)")
	}
	v := binary.LittleEndian.Uint32(b[*off : *off+4])
	*off += 4
	return v, nil
}

func readU64le(b []byte, off *int) (uint64, error) {
	if *off+8 > len(b) {
		return 0, errStorage("unexpected EOF (u64le)")
	}
	v := binary.LittleEndian.Uint64(b[*off : *off+8])
	*off += 8
	return v, nil
}

func readBytes(b []byte, off *int, n int) ([]byte, error) {
	if n < 0 {
		return nil, errStorage("negative length")
	}
	if *off+n > len(b) {
		return nil, errStorage("unexpected EOF (bytes)")
	}
	v := b[*off : *off+n]
	*off += n
	return v, nil
}

// AppendU16le appends v as a 2-byte little-endian value to dst.
func AppendU16le(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendU32le appends v as a 4-byte little-endian value to dst.
func AppendU32le(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendU64le appends v as an 8-byte little-endian value to dst.
func AppendU64le(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendCompactSize encodes n as a Bitcoin-style CompactSize varint and
// appends it to dst.
func AppendCompactSize(dst []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(dst, byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xfd)
		return AppendU16le(dst, uint16(n))
	case n <= 0xffff_ffff:
		dst = append(dst, 0xfe)
		return AppendU32le(dst, uint32(n))
	default:
		dst = append(dst, 0xff)
		return AppendU64le(dst, n)
	}
}

// readCompactSize decodes one CompactSize value from b at *off, rejecting
// non-minimal encodings.
func readCompactSize(b []byte, off *int) (uint64, error) {
	tag, err := readU8(b, off)
	if err != nil {
		return 0, err
	}
	switch {
	case tag < 0xfd:
		return uint64(tag), nil
	case tag == 0xfd:
		v, err := readU16le(b, off)
		if err != nil {
			return 0, err
		}
		if v < 0xfd {
			return 0, errStorage("non-minimal CompactSize (0xfd)")
		}
		return uint64(v), nil
	case tag == 0xfe:
		v, err := readU32le(b, off)
		if err != nil {
			return 0, err
		}
		if v <= 0xffff {
			return 0, errStorage("non-minimal CompactSize (0xfe)")
		}
		return uint64(v), nil
	default:
		v, err := readU64le(b, off)
		if err != nil {
			return 0, err
		}
		if v <= 0xffff_ffff {
			return 0, errStorage("non-minimal CompactSize (0xff)")
		}
		return v, nil
	}
}
