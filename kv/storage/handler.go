package storage

import (
	"github.com/coocood/badger"
	"github.com/ngaut/log"

	"github.com/julianpistorius/pumpkindb/kv/codec"
	"github.com/julianpistorius/pumpkindb/kv/engine"
	"github.com/julianpistorius/pumpkindb/kv/vm"
)

// Handler implements the storage instruction family: transactions,
// key/value association, and ordered cursors. It is driven by one
// scheduler; exactly one process's instruction executes at any instant,
// so no internal locking is needed.
//
// Every handler validates ownership and epoch membership strictly before
// mutating the slots, the registry, or the caller's stack and program: a
// rescheduled instruction is replayed from scratch, so it must have been
// side-effect-free up to the point of failure.
type Handler struct {
	eng     *engine.Engine
	txns    *txnManager
	cursors *cursorRegistry

	table map[string]func(env *vm.Env, pid vm.Pid) error
}

func NewHandler(eng *engine.Engine) *Handler {
	h := &Handler{
		eng:     eng,
		txns:    newTxnManager(eng),
		cursors: newCursorRegistry(),
	}
	h.table = map[string]func(*vm.Env, vm.Pid) error{
		string(vm.InstrWrite):    h.write,
		string(vm.InstrWriteEnd): h.writeEnd,
		string(vm.InstrRead):     h.read,
		string(vm.InstrReadEnd):  h.readEnd,
		string(vm.InstrCommit):   h.commit,
		string(vm.InstrAssoc):    h.assoc,
		string(vm.InstrAssocQ):   h.assocQ,
		string(vm.InstrRetr):     h.retr,
		string(vm.InstrCursor):   h.cursor,

		string(vm.InstrQCursorFirst): h.cursorOp(opFirst, true, false),
		string(vm.InstrCursorFirstQ): h.cursorOp(opFirst, false, false),
		string(vm.InstrQCursorLast):  h.cursorOp(opLast, true, false),
		string(vm.InstrCursorLastQ):  h.cursorOp(opLast, false, false),
		string(vm.InstrQCursorNext):  h.cursorOp(opNext, true, false),
		string(vm.InstrCursorNextQ):  h.cursorOp(opNext, false, false),
		string(vm.InstrQCursorPrev):  h.cursorOp(opPrev, true, false),
		string(vm.InstrCursorPrevQ):  h.cursorOp(opPrev, false, false),
		string(vm.InstrQCursorSeek):  h.cursorOp(opSeek, true, true),
		string(vm.InstrCursorSeekQ):  h.cursorOp(opSeek, false, true),
		string(vm.InstrQCursorCur):   h.cursorOp(opCurrent, true, false),
		string(vm.InstrCursorCurQ):   h.cursorOp(opCurrent, false, false),
	}
	return h
}

// Handle routes instr through the opcode table. Opcodes outside the
// storage family are declined with ErrUnknownInstruction.
func (h *Handler) Handle(env *vm.Env, instr []byte, pid vm.Pid) error {
	fn, ok := h.table[string(instr)]
	if !ok {
		return vm.ErrUnknownInstruction
	}
	return fn(env, pid)
}

// Done releases whatever transaction and cursor state pid still holds.
// It runs whenever a process exits, normally or abnormally, and is
// idempotent: a crashed process can never wedge the write slot or a
// read-epoch slot.
func (h *Handler) Done(env *vm.Env, pid vm.Pid) {
	if _, ok := h.txns.readTxns[pid]; ok {
		h.cursors.purgeProcess(pid, kindRead)
		h.txns.clearRead(pid)
	}
	if h.txns.writeTxn != nil && h.txns.writePid == pid {
		log.Debugf("process %d terminated holding the write slot, discarding", pid)
		h.cursors.purgeKind(kindWrite)
		h.txns.clearWrite()
	}
}

// write handles WRITE: pops a block, opens the single write transaction
// and schedules the block followed by the internal end marker.
func (h *Handler) write(env *vm.Env, pid vm.Pid) error {
	if err := h.txns.validateWriteLockout(pid); err != nil {
		return err
	}
	if !h.eng.TryLockWriter() {
		return vm.ErrReschedule
	}
	block, err := env.Pop()
	if err != nil {
		h.eng.UnlockWriter()
		return err
	}
	h.txns.writePid = pid
	h.txns.writeTxn = h.eng.NewTxn(true)
	env.PushProgram(vm.InstrWriteEnd)
	env.PushProgram(block)
	return nil
}

// writeEnd handles the internal end marker. The slot may already be
// empty when the block issued an explicit COMMIT; a marker replayed by a
// rescheduled process while another holds the slot must not touch it.
// The default path discards without committing: a write block that exits
// without COMMIT loses its writes.
func (h *Handler) writeEnd(env *vm.Env, pid vm.Pid) error {
	if h.txns.writeTxn == nil {
		return nil
	}
	if h.txns.writePid != pid {
		return vm.ErrReschedule
	}
	h.cursors.purgeKind(kindWrite)
	h.txns.clearWrite()
	return nil
}

func (h *Handler) commit(env *vm.Env, pid vm.Pid) error {
	if err := h.txns.validateWriteLockout(pid); err != nil {
		return err
	}
	if h.txns.writeTxn == nil {
		return vm.ErrNoTransaction
	}
	// The transaction ends here either way; its cursor tokens die with it.
	h.cursors.purgeKind(kindWrite)
	err := h.txns.writeTxn.Commit()
	h.txns.writeTxn = nil
	h.eng.UnlockWriter()
	if err != nil {
		return vm.DatabaseError{Err: err}
	}
	return nil
}

// read handles READ: admits pid into the read epoch, opens a snapshot
// transaction and schedules the block followed by the internal marker.
func (h *Handler) read(env *vm.Env, pid vm.Pid) error {
	if err := h.txns.validateReadLockout(pid); err != nil {
		return err
	}
	block, err := env.Pop()
	if err != nil {
		return err
	}
	// A nested READ replaces the process's snapshot.
	h.txns.clearRead(pid)
	h.txns.readTxns[pid] = h.eng.NewTxn(false)
	env.PushProgram(vm.InstrReadEnd)
	env.PushProgram(block)
	return nil
}

func (h *Handler) readEnd(env *vm.Env, pid vm.Pid) error {
	if err := h.txns.validateReadLockout(pid); err != nil {
		return err
	}
	h.cursors.purgeProcess(pid, kindRead)
	h.txns.clearRead(pid)
	return nil
}

// assoc handles ASSOC: pops value then key and binds key to value in the
// caller's write transaction, refusing to overwrite.
func (h *Handler) assoc(env *vm.Env, pid vm.Pid) error {
	if err := h.txns.validateWriteLockout(pid); err != nil {
		return err
	}
	if h.txns.writeTxn == nil {
		return vm.ErrNoTransaction
	}
	value, err := env.Pop()
	if err != nil {
		return err
	}
	key, err := env.Pop()
	if err != nil {
		return err
	}
	switch err := engine.PutNoOverwrite(h.txns.writeTxn, key, value); err {
	case nil:
		return nil
	case engine.ErrKeyExists:
		return vm.DuplicateKeyError{Key: key}
	default:
		return vm.DatabaseError{Err: err}
	}
}

// assocQ handles ASSOC?: pops a key and pushes whether it is bound.
func (h *Handler) assocQ(env *vm.Env, pid vm.Pid) error {
	if err := h.txns.validateWriteLockout(pid); err != nil {
		return err
	}
	key, err := env.Pop()
	if err != nil {
		return err
	}
	txn, _, err := h.txns.lookup(pid)
	if err != nil {
		return err
	}
	switch _, err := engine.Get(txn, key); err {
	case nil:
		env.Push(vm.True)
		return nil
	case badger.ErrKeyNotFound:
		env.Push(vm.False)
		return nil
	default:
		return vm.DatabaseError{Err: err}
	}
}

// retr handles RETR: pops a key and pushes the bound value.
func (h *Handler) retr(env *vm.Env, pid vm.Pid) error {
	if err := h.txns.validateWriteLockout(pid); err != nil {
		return err
	}
	if err := h.txns.validateReadLockout(pid); err != nil {
		return err
	}
	key, err := env.Pop()
	if err != nil {
		return err
	}
	txn, _, err := h.txns.lookup(pid)
	if err != nil {
		return err
	}
	switch val, err := engine.Get(txn, key); err {
	case nil:
		env.Push(val)
		return nil
	case badger.ErrKeyNotFound:
		return vm.UnknownKeyError{Key: key}
	default:
		return vm.DatabaseError{Err: err}
	}
}

// cursor handles CURSOR: opens a cursor over the caller's transaction,
// registers it and pushes its token.
func (h *Handler) cursor(env *vm.Env, pid vm.Pid) error {
	if err := h.txns.validateReadLockout(pid); err != nil {
		return err
	}
	if err := h.txns.validateWriteLockout(pid); err != nil {
		return err
	}
	txn, kind, err := h.txns.lookup(pid)
	if err != nil {
		return err
	}
	tok := h.cursors.mint(pid)
	h.cursors.insert(&cursorEntry{
		pid:   pid,
		token: string(tok),
		kind:  kind,
		cur:   engine.NewCursor(txn),
	})
	env.Push(tok)
	return nil
}

// positionFunc performs one positional operation; key is only consulted
// by seek.
type positionFunc func(c *engine.Cursor, key []byte) ([]byte, []byte, bool, error)

var (
	opFirst = func(c *engine.Cursor, _ []byte) ([]byte, []byte, bool, error) { return c.First() }
	opLast  = func(c *engine.Cursor, _ []byte) ([]byte, []byte, bool, error) { return c.Last() }
	opNext  = func(c *engine.Cursor, _ []byte) ([]byte, []byte, bool, error) { return c.Next() }
	opPrev  = func(c *engine.Cursor, _ []byte) ([]byte, []byte, bool, error) { return c.Prev() }
	opSeek  = func(c *engine.Cursor, key []byte) ([]byte, []byte, bool, error) { return c.Seek(key) }

	opCurrent = func(c *engine.Cursor, _ []byte) ([]byte, []byte, bool, error) { return c.Current() }
)

// cursorOp builds the handler shared by every positional instruction.
// The fetch form pushes the encoded pair or the empty sentinel; the test
// form pushes a boolean. Both move the cursor identically. The entry is
// moved out of the registry for the duration of the operation and moved
// back re-tagged with the governing transaction's kind.
func (h *Handler) cursorOp(op positionFunc, fetch, popKey bool) func(*vm.Env, vm.Pid) error {
	return func(env *vm.Env, pid vm.Pid) error {
		if err := h.txns.validateReadLockout(pid); err != nil {
			return err
		}
		if err := h.txns.validateWriteLockout(pid); err != nil {
			return err
		}
		var key []byte
		if popKey {
			var err error
			if key, err = env.Pop(); err != nil {
				return err
			}
		}
		token, err := env.Pop()
		if err != nil {
			return err
		}
		_, kind, err := h.txns.lookup(pid)
		if err != nil {
			return err
		}
		entry, ok := h.cursors.take(pid, token)
		if !ok {
			return vm.InvalidValueError{Value: token}
		}
		k, v, found, opErr := op(entry.cur, key)
		entry.kind = kind
		h.cursors.insert(entry)
		if opErr != nil {
			return vm.DatabaseError{Err: opErr}
		}
		switch {
		case fetch && found:
			env.Push(codec.EncodePair(k, v))
		case fetch:
			env.Push(codec.Empty)
		default:
			env.Push(vm.Bool(found))
		}
		return nil
	}
}
