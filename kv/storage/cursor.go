package storage

import (
	"encoding/binary"

	"github.com/google/btree"

	"github.com/julianpistorius/pumpkindb/kv/engine"
	"github.com/julianpistorius/pumpkindb/kv/vm"
)

// cursorEntry is one registered cursor, keyed by (pid, token). Ordering
// by pid first keeps one process's entries contiguous in the tree, so
// per-process purge is a bounded range walk.
type cursorEntry struct {
	pid   vm.Pid
	token string
	kind  txnKind
	cur   *engine.Cursor
}

func (e *cursorEntry) Less(than btree.Item) bool {
	o := than.(*cursorEntry)
	if e.pid != o.pid {
		return e.pid < o.pid
	}
	return e.token < o.token
}

// cursorRegistry owns every live cursor on behalf of the transaction
// that spawned it. Positional operations move an entry out, operate on
// it, and move it back, so no two references to the same underlying
// cursor can be live at once. Tokens are never reused.
type cursorRegistry struct {
	tree *btree.BTree
	next uint64
}

func newCursorRegistry() *cursorRegistry {
	return &cursorRegistry{tree: btree.New(8)}
}

// mint returns a fresh token for pid: the pid and a monotonically
// increasing counter, both as fixed-width big-endian bytes, so tokens
// collide neither within nor across processes.
func (r *cursorRegistry) mint(pid vm.Pid) []byte {
	r.next++
	tok := make([]byte, 16)
	binary.BigEndian.PutUint64(tok[:8], uint64(pid))
	binary.BigEndian.PutUint64(tok[8:], r.next)
	return tok
}

func (r *cursorRegistry) insert(e *cursorEntry) {
	r.tree.ReplaceOrInsert(e)
}

// take removes and returns the entry for (pid, token). The caller holds
// the only reference until it reinserts the entry.
func (r *cursorRegistry) take(pid vm.Pid, token []byte) (*cursorEntry, bool) {
	item := r.tree.Delete(&cursorEntry{pid: pid, token: string(token)})
	if item == nil {
		return nil, false
	}
	return item.(*cursorEntry), true
}

// purgeKind removes every entry of the given kind, across all processes.
func (r *cursorRegistry) purgeKind(kind txnKind) {
	var victims []*cursorEntry
	r.tree.Ascend(func(item btree.Item) bool {
		e := item.(*cursorEntry)
		if e.kind == kind {
			victims = append(victims, e)
		}
		return true
	})
	for _, e := range victims {
		r.tree.Delete(e)
	}
}

// purgeProcess removes pid's entries of the given kind.
func (r *cursorRegistry) purgeProcess(pid vm.Pid, kind txnKind) {
	var victims []*cursorEntry
	r.tree.AscendGreaterOrEqual(&cursorEntry{pid: pid}, func(item btree.Item) bool {
		e := item.(*cursorEntry)
		if e.pid != pid {
			return false
		}
		if e.kind == kind {
			victims = append(victims, e)
		}
		return true
	})
	for _, e := range victims {
		r.tree.Delete(e)
	}
}

func (r *cursorRegistry) len() int {
	return r.tree.Len()
}
