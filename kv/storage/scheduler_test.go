package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/julianpistorius/pumpkindb/kv/vm"
)

func TestScheduledWriteThenReadProgram(t *testing.T) {
	h, eng := newTestHandler(t)
	defer eng.Destroy()

	writeBlock := vm.Program(
		vm.Data([]byte("Hey")), vm.Data([]byte("there")), vm.InstrAssoc,
		vm.InstrCommit,
	)
	readBlock := vm.Program(vm.Data([]byte("Hey")), vm.InstrAssocQ)
	program := vm.Program(
		vm.Data(writeBlock), vm.InstrWrite,
		vm.Data(readBlock), vm.InstrRead,
	)

	s := vm.NewScheduler(h)
	pid := s.Spawn(program)
	env := s.Env(pid)
	require.Empty(t, s.Run())
	require.Equal(t, [][]byte{vm.True}, env.Stack())
}

func TestScheduledRollbackLeavesNoTrace(t *testing.T) {
	h, eng := newTestHandler(t)
	defer eng.Destroy()

	// the write block exits without COMMIT; its association is discarded
	writeBlock := vm.Program(vm.Data([]byte("Hey")), vm.Data([]byte("there")), vm.InstrAssoc)
	readBlock := vm.Program(vm.Data([]byte("Hey")), vm.InstrAssocQ)
	program := vm.Program(
		vm.Data(writeBlock), vm.InstrWrite,
		vm.Data(readBlock), vm.InstrRead,
	)

	s := vm.NewScheduler(h)
	pid := s.Spawn(program)
	env := s.Env(pid)
	require.Empty(t, s.Run())
	require.Equal(t, [][]byte{vm.False}, env.Stack())
}

func TestScheduledWriterContention(t *testing.T) {
	h, eng := newTestHandler(t)
	defer eng.Destroy()

	blockA := vm.Program(vm.Data([]byte("a")), vm.Data([]byte("1")), vm.InstrAssoc, vm.InstrCommit)
	blockB := vm.Program(vm.Data([]byte("b")), vm.Data([]byte("2")), vm.InstrAssoc, vm.InstrCommit)

	s := vm.NewScheduler(h)
	pa := s.Spawn(vm.Program(vm.Data(blockA), vm.InstrWrite))
	pb := s.Spawn(vm.Program(vm.Data(blockB), vm.InstrWrite))

	// A pushes its block and takes the write slot.
	_, err := s.Step(pa)
	require.Nil(t, err)
	_, err = s.Step(pa)
	require.Nil(t, err)

	// B pushes its block; its WRITE reschedules while A holds the slot.
	_, err = s.Step(pb)
	require.Nil(t, err)
	_, err = s.Step(pb)
	require.Equal(t, vm.ErrReschedule, err)

	// the scheduler drives both to completion
	require.Empty(t, s.Run())

	env := vm.NewEnv(9)
	beginRead(t, h, env, 9)
	for _, want := range []struct{ k, v string }{{"a", "1"}, {"b", "2"}} {
		env.Push([]byte(want.k))
		require.Nil(t, h.Handle(env, vm.InstrRetr, 9))
		val, err := env.Pop()
		require.Nil(t, err)
		require.Equal(t, []byte(want.v), val)
	}
	require.Nil(t, h.Handle(env, vm.InstrReadEnd, 9))
}

func TestScheduledReadEpochContention(t *testing.T) {
	h, eng := newTestHandler(t)
	defer eng.Destroy()

	readBlock := vm.Program(vm.Data([]byte("k")), vm.InstrAssocQ)

	s := vm.NewScheduler(h)
	pa := s.Spawn(vm.Program(vm.Data(readBlock), vm.InstrRead))
	pb := s.Spawn(vm.Program(vm.Data(readBlock), vm.InstrRead))
	envA := s.Env(pa)
	envB := s.Env(pb)

	// A enters the epoch; B is barred until A drains.
	_, err := s.Step(pa)
	require.Nil(t, err)
	_, err = s.Step(pa)
	require.Nil(t, err)
	_, err = s.Step(pb)
	require.Nil(t, err)
	_, err = s.Step(pb)
	require.Equal(t, vm.ErrReschedule, err)

	require.Empty(t, s.Run())
	require.Equal(t, [][]byte{vm.False}, envA.Stack())
	require.Equal(t, [][]byte{vm.False}, envB.Stack())
}

func TestKilledWriterUnblocksContender(t *testing.T) {
	h, eng := newTestHandler(t)
	defer eng.Destroy()

	blockA := vm.Program(vm.Data([]byte("a")), vm.Data([]byte("1")), vm.InstrAssoc, vm.InstrCommit)
	blockB := vm.Program(vm.Data([]byte("b")), vm.Data([]byte("2")), vm.InstrAssoc, vm.InstrCommit)

	s := vm.NewScheduler(h)
	pa := s.Spawn(vm.Program(vm.Data(blockA), vm.InstrWrite))
	pb := s.Spawn(vm.Program(vm.Data(blockB), vm.InstrWrite))

	_, err := s.Step(pa)
	require.Nil(t, err)
	_, err = s.Step(pa) // A owns the write slot
	require.Nil(t, err)
	s.Kill(pa) // termination hook releases it

	require.Empty(t, s.Run())
	require.Nil(t, s.Env(pb)) // B ran to completion

	env := vm.NewEnv(9)
	beginRead(t, h, env, 9)
	env.Push([]byte("a"))
	require.Nil(t, h.Handle(env, vm.InstrAssocQ, 9))
	flag, err := env.Pop()
	require.Nil(t, err)
	require.Equal(t, vm.False, flag) // A's uncommitted write is gone

	env.Push([]byte("b"))
	require.Nil(t, h.Handle(env, vm.InstrAssocQ, 9))
	flag, err = env.Pop()
	require.Nil(t, err)
	require.Equal(t, vm.True, flag) // B committed
	require.Nil(t, h.Handle(env, vm.InstrReadEnd, 9))
}
