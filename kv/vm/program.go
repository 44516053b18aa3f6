package vm

import (
	"github.com/pingcap/errors"

	"github.com/julianpistorius/pumpkindb/kv/codec"
)

// Item is one decoded program element: either a data literal, whose
// payload is pushed onto the operand stack, or an instruction.
type Item struct {
	Data  []byte
	Instr []byte
}

// DecodeItem splits the first item off a code string. Data literals are
// size-prefixed (prefix byte below 0x80); instruction headers have the
// high bit set.
func DecodeItem(code []byte) (Item, []byte, error) {
	if len(code) == 0 {
		return Item{}, nil, errors.New("empty program item")
	}
	if code[0]&0x80 != 0 {
		n, err := instrLen(code)
		if err != nil {
			return Item{}, nil, err
		}
		return Item{Instr: code[:n]}, code[n:], nil
	}
	size, off, err := codec.DecodeSize(code)
	if err != nil {
		return Item{}, nil, err
	}
	if len(code) < off+size {
		return Item{}, nil, errors.Errorf("data literal of size %d truncated", size)
	}
	return Item{Data: code[off : off+size]}, code[off+size:], nil
}

func instrLen(code []byte) (int, error) {
	if code[0] == 0x80 {
		// internal marker prefix
		if len(code) < 2 {
			return 0, errors.New("truncated internal instruction")
		}
		n, err := instrLen(code[1:])
		return n + 1, err
	}
	n := int(code[0]&0x7f) + 1
	if len(code) < n {
		return 0, errors.New("truncated instruction")
	}
	return n, nil
}

// Data encodes payload as a data literal.
func Data(payload []byte) []byte {
	return codec.AppendData(nil, payload)
}

// Program concatenates already-encoded items into one code string.
func Program(items ...[]byte) []byte {
	var size int
	for _, it := range items {
		size += len(it)
	}
	code := make([]byte, 0, size)
	for _, it := range items {
		code = append(code, it...)
	}
	return code
}
