package codec

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// Variable-length size prefix. Sizes up to 120 are stored in the prefix
// byte itself; larger sizes carry a marker byte followed by a big-endian
// unsigned integer of the matching width:
//   [0..120]            -> one byte, the size
//   [121..255]          -> 121, u8
//   [256..65535]        -> 122, u16
//   [65536..4294967295] -> 123, u32
// Every prefix byte stays below 0x80, so size-prefixed data never
// collides with instruction headers in program text.
const (
	sizeEmbedMax = 120
	marker8      = byte(121)
	marker16     = byte(122)
	marker32     = byte(123)
)

// Empty is the not-found sentinel pushed by fetch-form lookups. A real
// encoded pair always carries at least two size-prefix bytes, so the
// zero-length buffer is unambiguous.
var Empty = []byte{}

// SizeLen returns the number of bytes AppendSize will write for n.
func SizeLen(n int) int {
	switch {
	case n <= sizeEmbedMax:
		return 1
	case n <= 0xFF:
		return 2
	case n <= 0xFFFF:
		return 3
	default:
		return 5
	}
}

// AppendSize appends the size prefix for n to dst.
func AppendSize(dst []byte, n int) []byte {
	switch {
	case n <= sizeEmbedMax:
		return append(dst, byte(n))
	case n <= 0xFF:
		return append(dst, marker8, byte(n))
	case n <= 0xFFFF:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(n))
		return append(append(dst, marker16), buf[:]...)
	default:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(n))
		return append(append(dst, marker32), buf[:]...)
	}
}

// DecodeSize reads a size prefix from buf, returning the size and the
// number of prefix bytes consumed.
func DecodeSize(buf []byte) (int, int, error) {
	if len(buf) == 0 {
		return 0, 0, errors.New("insufficient bytes to decode size")
	}
	switch b := buf[0]; {
	case b <= sizeEmbedMax:
		return int(b), 1, nil
	case b == marker8:
		if len(buf) < 2 {
			return 0, 0, errors.New("truncated u8 size")
		}
		return int(buf[1]), 2, nil
	case b == marker16:
		if len(buf) < 3 {
			return 0, 0, errors.New("truncated u16 size")
		}
		return int(binary.BigEndian.Uint16(buf[1:3])), 3, nil
	case b == marker32:
		if len(buf) < 5 {
			return 0, 0, errors.New("truncated u32 size")
		}
		return int(binary.BigEndian.Uint32(buf[1:5])), 5, nil
	default:
		return 0, 0, errors.Errorf("invalid size prefix byte %#x", b)
	}
}

// AppendData appends payload as a size-prefixed data literal.
func AppendData(dst, payload []byte) []byte {
	dst = AppendSize(dst, len(payload))
	return append(dst, payload...)
}

// EncodePair encodes a positioned key/value pair into one buffer:
// size-prefixed key followed by size-prefixed value.
func EncodePair(key, val []byte) []byte {
	buf := make([]byte, 0, SizeLen(len(key))+len(key)+SizeLen(len(val))+len(val))
	buf = AppendData(buf, key)
	buf = AppendData(buf, val)
	return buf
}

// DecodePair splits a buffer produced by EncodePair back into key and
// value bytes.
func DecodePair(buf []byte) ([]byte, []byte, error) {
	key, rest, err := decodeChunk(buf)
	if err != nil {
		return nil, nil, err
	}
	val, rest, err := decodeChunk(rest)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, errors.Errorf("%d trailing bytes after pair", len(rest))
	}
	return key, val, nil
}

func decodeChunk(buf []byte) ([]byte, []byte, error) {
	n, off, err := DecodeSize(buf)
	if err != nil {
		return nil, nil, err
	}
	if len(buf) < off+n {
		return nil, nil, errors.Errorf("chunk of size %d truncated", n)
	}
	return buf[off : off+n], buf[off+n:], nil
}
