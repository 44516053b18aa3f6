package vm

// Pid identifies a logical process. It is opaque to handlers and stable
// for the process's lifetime; transaction and cursor ownership key on it.
type Pid uint64

// Env is one process's execution state: an operand stack and a pending
// program queue. The queue is LIFO — the code string pushed last runs
// first — which is how "run this block, then the end marker" sequences
// are laid out.
type Env struct {
	pid     Pid
	stack   [][]byte
	program [][]byte
}

func NewEnv(pid Pid) *Env {
	return &Env{pid: pid}
}

func (e *Env) Pid() Pid {
	return e.pid
}

// Push places v on top of the operand stack.
func (e *Env) Push(v []byte) {
	e.stack = append(e.stack, v)
}

// Pop removes and returns the top of the operand stack.
func (e *Env) Pop() ([]byte, error) {
	if len(e.stack) == 0 {
		return nil, ErrEmptyStack
	}
	v := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return v, nil
}

// Depth returns the operand stack depth.
func (e *Env) Depth() int {
	return len(e.stack)
}

// Stack returns the operand stack, bottom first.
func (e *Env) Stack() [][]byte {
	return e.stack
}

// PushProgram schedules code to run before anything already pending.
func (e *Env) PushProgram(code []byte) {
	e.program = append(e.program, code)
}

func (e *Env) popProgram() ([]byte, bool) {
	if len(e.program) == 0 {
		return nil, false
	}
	code := e.program[len(e.program)-1]
	e.program = e.program[:len(e.program)-1]
	return code, true
}

// ProgramEmpty reports whether the process has nothing left to run.
func (e *Env) ProgramEmpty() bool {
	return len(e.program) == 0
}
