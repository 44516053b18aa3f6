package storage

import (
	"github.com/coocood/badger"

	"github.com/julianpistorius/pumpkindb/kv/engine"
	"github.com/julianpistorius/pumpkindb/kv/vm"
)

// txnKind records which transaction flavor spawned a resource; cursor
// purge is driven by it at scope end.
type txnKind int

const (
	kindRead txnKind = iota
	kindWrite
)

// txnManager owns the single global write slot and the per-process read
// transaction set.
//
// The write slot holds at most one transaction system-wide, guarded by
// the engine's writer try-lock. The read set admits by epoch: while it
// is non-empty only member processes may issue read or cursor
// operations; a brand-new reader joins only once the set has drained.
type txnManager struct {
	eng *engine.Engine

	writePid vm.Pid
	writeTxn *badger.Txn // nil when the slot is free

	readTxns map[vm.Pid]*badger.Txn
}

func newTxnManager(eng *engine.Engine) *txnManager {
	return &txnManager{
		eng:      eng,
		readTxns: make(map[vm.Pid]*badger.Txn),
	}
}

// validateWriteLockout reschedules the caller while another process
// holds the write slot.
func (tm *txnManager) validateWriteLockout(pid vm.Pid) error {
	if tm.writeTxn != nil && tm.writePid != pid {
		return vm.ErrReschedule
	}
	return nil
}

// validateReadLockout enforces the epoch rule.
func (tm *txnManager) validateReadLockout(pid vm.Pid) error {
	if len(tm.readTxns) > 0 {
		if _, ok := tm.readTxns[pid]; !ok {
			return vm.ErrReschedule
		}
	}
	return nil
}

// lookup returns the transaction pid may operate in: the write
// transaction when pid owns it, else pid's read transaction.
func (tm *txnManager) lookup(pid vm.Pid) (*badger.Txn, txnKind, error) {
	if tm.writeTxn != nil && tm.writePid == pid {
		return tm.writeTxn, kindWrite, nil
	}
	if txn, ok := tm.readTxns[pid]; ok {
		return txn, kindRead, nil
	}
	return nil, 0, vm.ErrNoTransaction
}

// clearWrite discards the write slot without committing and releases
// writer exclusivity. No-op when the slot is free.
func (tm *txnManager) clearWrite() {
	if tm.writeTxn == nil {
		return
	}
	tm.writeTxn.Discard()
	tm.writeTxn = nil
	tm.eng.UnlockWriter()
}

// clearRead drops pid's read transaction, if any.
func (tm *txnManager) clearRead(pid vm.Pid) {
	if txn, ok := tm.readTxns[pid]; ok {
		txn.Discard()
		delete(tm.readTxns, pid)
	}
}
