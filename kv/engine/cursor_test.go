package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, en *Engine, pairs map[string]string) {
	txn := en.NewTxn(true)
	for k, v := range pairs {
		require.Nil(t, txn.Set([]byte(k), []byte(v)))
	}
	require.Nil(t, txn.Commit())
}

func expectPair(t *testing.T, key, val string, k, v []byte, ok bool, err error) {
	t.Helper()
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(key), k)
	require.Equal(t, []byte(val), v)
}

func expectMiss(t *testing.T, k, v []byte, ok bool, err error) {
	t.Helper()
	require.Nil(t, err)
	require.False(t, ok)
	require.Nil(t, k)
	require.Nil(t, v)
}

func TestCursorForwardWalk(t *testing.T) {
	en := newTestEngine(t)
	defer en.Destroy()
	seed(t, en, map[string]string{"a": "1", "b": "2", "c": "3"})

	txn := en.NewTxn(false)
	defer txn.Discard()
	c := NewCursor(txn)

	k, v, ok, err := c.First()
	expectPair(t, "a", "1", k, v, ok, err)
	k, v, ok, err = c.Next()
	expectPair(t, "b", "2", k, v, ok, err)
	k, v, ok, err = c.Next()
	expectPair(t, "c", "3", k, v, ok, err)
	k, v, ok, err = c.Next()
	expectMiss(t, k, v, ok, err)

	// A failed move leaves the position unchanged.
	k, v, ok, err = c.Current()
	expectPair(t, "c", "3", k, v, ok, err)
}

func TestCursorBackwardWalk(t *testing.T) {
	en := newTestEngine(t)
	defer en.Destroy()
	seed(t, en, map[string]string{"a": "1", "b": "2", "c": "3"})

	txn := en.NewTxn(false)
	defer txn.Discard()
	c := NewCursor(txn)

	k, v, ok, err := c.Last()
	expectPair(t, "c", "3", k, v, ok, err)
	k, v, ok, err = c.Prev()
	expectPair(t, "b", "2", k, v, ok, err)
	k, v, ok, err = c.Prev()
	expectPair(t, "a", "1", k, v, ok, err)
	k, v, ok, err = c.Prev()
	expectMiss(t, k, v, ok, err)
}

func TestCursorUnpositionedRelativeMoves(t *testing.T) {
	en := newTestEngine(t)
	defer en.Destroy()
	seed(t, en, map[string]string{"a": "1", "z": "26"})

	txn := en.NewTxn(false)
	defer txn.Discard()

	k, v, ok, err := NewCursor(txn).Next()
	expectPair(t, "a", "1", k, v, ok, err)

	k, v, ok, err = NewCursor(txn).Prev()
	expectPair(t, "z", "26", k, v, ok, err)

	k, v, ok, err = NewCursor(txn).Current()
	expectMiss(t, k, v, ok, err)
}

func TestCursorSeek(t *testing.T) {
	en := newTestEngine(t)
	defer en.Destroy()
	seed(t, en, map[string]string{"b": "2", "d": "4"})

	txn := en.NewTxn(false)
	defer txn.Discard()
	c := NewCursor(txn)

	// first key >= the target
	k, v, ok, err := c.Seek([]byte("b"))
	expectPair(t, "b", "2", k, v, ok, err)
	k, v, ok, err = c.Seek([]byte("c"))
	expectPair(t, "d", "4", k, v, ok, err)
	k, v, ok, err = c.Seek([]byte("e"))
	expectMiss(t, k, v, ok, err)

	// seek feeds relative moves
	k, v, ok, err = c.Seek([]byte("b"))
	expectPair(t, "b", "2", k, v, ok, err)
	k, v, ok, err = c.Next()
	expectPair(t, "d", "4", k, v, ok, err)
	k, v, ok, err = c.Prev()
	expectPair(t, "b", "2", k, v, ok, err)
}

func TestCursorSeesPendingWrites(t *testing.T) {
	en := newTestEngine(t)
	defer en.Destroy()

	txn := en.NewTxn(true)
	defer txn.Discard()
	require.Nil(t, txn.Set([]byte("p"), []byte("pending")))

	k, v, ok, err := NewCursor(txn).First()
	expectPair(t, "p", "pending", k, v, ok, err)
}
