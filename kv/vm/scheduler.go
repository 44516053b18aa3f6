package vm

import (
	"github.com/ngaut/log"
	"github.com/pingcap/errors"
)

// Module handles instructions for one family of opcodes. Handle either
// claims the instruction, returning its outcome, or declines with
// ErrUnknownInstruction so dispatch can continue. Done is the
// termination hook: it is invoked whenever a process exits, normally or
// abnormally, and must release whatever state the process held. It must
// be idempotent.
type Module interface {
	Handle(env *Env, instr []byte, pid Pid) error
	Done(env *Env, pid Pid)
}

// ErrStalled is reported for processes left runnable after a full pass
// made no progress: every one of them rescheduled forever.
var ErrStalled = errors.New("no process can make progress")

// Scheduler drives processes one instruction at a time, round-robin.
// Exactly one process's instruction executes at any instant. An
// instruction that reports ErrReschedule is left in place and retried
// from scratch on a later turn.
type Scheduler struct {
	modules []Module
	envs    map[Pid]*Env
	queue   []Pid
	nextPid Pid
}

func NewScheduler(modules ...Module) *Scheduler {
	return &Scheduler{
		modules: modules,
		envs:    make(map[Pid]*Env),
	}
}

// Spawn creates a process running code and returns its identity.
func (s *Scheduler) Spawn(code []byte) Pid {
	s.nextPid++
	pid := s.nextPid
	env := NewEnv(pid)
	env.PushProgram(code)
	s.envs[pid] = env
	s.queue = append(s.queue, pid)
	return pid
}

// Env returns the environment of a live process, or nil.
func (s *Scheduler) Env(pid Pid) *Env {
	return s.envs[pid]
}

// Kill terminates pid, firing every module's Done hook. Killing an
// unknown or already-finished pid is a no-op.
func (s *Scheduler) Kill(pid Pid) {
	env, ok := s.envs[pid]
	if !ok {
		return
	}
	s.remove(pid)
	for _, m := range s.modules {
		m.Done(env, pid)
	}
}

// Step executes one instruction of pid. It returns false once the
// process has drained its program. ErrReschedule is passed through with
// the program untouched; any other error is the instruction's failure.
func (s *Scheduler) Step(pid Pid) (bool, error) {
	env := s.envs[pid]
	if env == nil {
		return false, nil
	}
	code, ok := env.popProgram()
	if !ok {
		return false, nil
	}
	if len(code) == 0 {
		// empty closure
		return true, nil
	}
	item, rest, err := DecodeItem(code)
	if err != nil {
		return true, err
	}
	if len(rest) > 0 {
		env.PushProgram(rest)
	}
	if item.Instr == nil {
		env.Push(item.Data)
		return true, nil
	}
	err = s.dispatch(env, item.Instr, pid)
	if err == ErrReschedule {
		// The handler made no state changes; restore the consumed item
		// so the retry replays it from scratch.
		if len(rest) > 0 {
			env.popProgram()
		}
		env.PushProgram(code)
		return true, ErrReschedule
	}
	return true, err
}

func (s *Scheduler) dispatch(env *Env, instr []byte, pid Pid) error {
	for _, m := range s.modules {
		err := m.Handle(env, instr, pid)
		if err == ErrUnknownInstruction {
			continue
		}
		return err
	}
	return ErrUnknownInstruction
}

// Run drives every process until all have drained or none can make
// progress. It returns the failures keyed by process; processes absent
// from the result completed normally.
func (s *Scheduler) Run() map[Pid]error {
	failures := make(map[Pid]error)
	for len(s.queue) > 0 {
		progressed := false
		for _, pid := range append([]Pid(nil), s.queue...) {
			if s.envs[pid] == nil {
				continue
			}
			for {
				running, err := s.Step(pid)
				if !running {
					s.finish(pid)
					progressed = true
					break
				}
				if err == ErrReschedule {
					break
				}
				progressed = true
				if err != nil {
					log.Debugf("process %d failed: %v", pid, err)
					failures[pid] = err
					s.finish(pid)
					break
				}
			}
		}
		if !progressed {
			for _, pid := range s.queue {
				failures[pid] = ErrStalled
				s.finish(pid)
			}
		}
	}
	return failures
}

func (s *Scheduler) finish(pid Pid) {
	env, ok := s.envs[pid]
	if !ok {
		return
	}
	s.remove(pid)
	for _, m := range s.modules {
		m.Done(env, pid)
	}
}

func (s *Scheduler) remove(pid Pid) {
	delete(s.envs, pid)
	for i, p := range s.queue {
		if p == pid {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
}
