package engine

import (
	"os"
	"sync/atomic"

	"github.com/coocood/badger"
	"github.com/ngaut/log"
	"github.com/pingcap/errors"

	"github.com/julianpistorius/pumpkindb/kv/config"
)

// ErrKeyExists is returned by PutNoOverwrite when the key is already
// bound. The store is left unchanged.
var ErrKeyExists = errors.New("key already exists")

// Engine wraps the badger database every transaction and cursor runs
// against, plus the process-wide writer exclusivity flag. At most one
// write transaction may be open at any instant; the flag is acquired
// with a non-blocking try-lock so a contended caller can be rescheduled
// instead of blocked.
type Engine struct {
	DB   *badger.DB
	Path string

	writeLock int32
}

// Open creates or opens the database under conf.DBPath.
func Open(conf *config.Config) (*Engine, error) {
	opts := badger.DefaultOptions
	opts.Dir = conf.DBPath
	opts.ValueDir = conf.DBPath
	opts.ValueThreshold = conf.Engine.ValueThreshold
	opts.ValueLogFileSize = conf.Engine.VlogFileSize
	opts.MaxTableSize = conf.Engine.MaxTableSize
	opts.NumMemtables = conf.Engine.NumMemTables
	opts.NumLevelZeroTables = conf.Engine.NumL0Tables
	opts.NumLevelZeroTablesStall = conf.Engine.NumL0TablesStall
	opts.NumCompactors = conf.Engine.NumCompactors
	opts.SyncWrites = conf.Engine.SyncWrites
	if err := os.MkdirAll(conf.DBPath, os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Infof("opened storage at %s", conf.DBPath)
	return &Engine{DB: db, Path: conf.DBPath}, nil
}

func (en *Engine) Close() error {
	return en.DB.Close()
}

// Destroy closes the engine and removes its data. Test helper.
func (en *Engine) Destroy() error {
	if err := en.Close(); err != nil {
		return err
	}
	return os.RemoveAll(en.Path)
}

// TryLockWriter attempts a non-blocking acquire of writer exclusivity.
func (en *Engine) TryLockWriter() bool {
	return atomic.CompareAndSwapInt32(&en.writeLock, 0, 1)
}

// UnlockWriter releases writer exclusivity.
func (en *Engine) UnlockWriter() {
	atomic.StoreInt32(&en.writeLock, 0)
}

// NewTxn opens a transaction: a snapshot when update is false, a write
// transaction otherwise. The caller owns the Commit/Discard.
func (en *Engine) NewTxn(update bool) *badger.Txn {
	return en.DB.NewTransaction(update)
}

// Get returns the value bound to key inside txn. Absence is surfaced as
// badger.ErrKeyNotFound.
func Get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value()
}

// PutNoOverwrite binds key to val unless key is already bound, in which
// case it returns ErrKeyExists and stores nothing. The existence check
// runs inside txn, so a write transaction sees its own pending puts.
func PutNoOverwrite(txn *badger.Txn, key, val []byte) error {
	_, err := txn.Get(key)
	if err == nil {
		return ErrKeyExists
	}
	if err != badger.ErrKeyNotFound {
		return err
	}
	return txn.Set(key, val)
}
