package vm

// Instruction byte strings used as bytecode. The header byte is
// 0x80|len(name); internal instructions, which user programs can never
// spell, carry an extra leading 0x80.
var (
	InstrWrite    = []byte("\x85WRITE")
	InstrWriteEnd = []byte("\x80\x85WRITE") // internal
	InstrRead     = []byte("\x84READ")
	InstrReadEnd  = []byte("\x80\x84READ") // internal

	InstrAssoc  = []byte("\x85ASSOC")
	InstrAssocQ = []byte("\x86ASSOC?")
	InstrRetr   = []byte("\x84RETR")

	InstrCursor       = []byte("\x86CURSOR")
	InstrQCursorFirst = []byte("\x8D?CURSOR/FIRST")
	InstrCursorFirstQ = []byte("\x8DCURSOR/FIRST?")
	InstrQCursorLast  = []byte("\x8C?CURSOR/LAST")
	InstrCursorLastQ  = []byte("\x8CCURSOR/LAST?")
	InstrQCursorNext  = []byte("\x8C?CURSOR/NEXT")
	InstrCursorNextQ  = []byte("\x8CCURSOR/NEXT?")
	InstrQCursorPrev  = []byte("\x8C?CURSOR/PREV")
	InstrCursorPrevQ  = []byte("\x8CCURSOR/PREV?")
	InstrQCursorSeek  = []byte("\x8C?CURSOR/SEEK")
	InstrCursorSeekQ  = []byte("\x8CCURSOR/SEEK?")
	InstrQCursorCur   = []byte("\x8B?CURSOR/CUR")
	InstrCursorCurQ   = []byte("\x8BCURSOR/CUR?")

	InstrCommit = []byte("\x86COMMIT")
)

// True and False are the one-byte boolean stack values.
var (
	True  = []byte{1}
	False = []byte{0}
)

// Bool returns the stack representation of v.
func Bool(v bool) []byte {
	if v {
		return True
	}
	return False
}
