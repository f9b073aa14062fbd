// Package env holds the mutable execution state of one session: variable
// scopes, positional parameters, options, and the resource Limits counters
// (spec.md §3 Environment, §5 Resource counters). It implements
// internal/arith's Vars interface directly so the arithmetic evaluator has
// no dependency on this package.
package env

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bashkit/bashkit/internal/ast"
)

// VariableValue is either a scalar string or a sparse indexed array
// (spec.md §3 VariableValue).
type VariableValue struct {
	IsArray bool
	Scalar  string
	Array   map[int64]string
}

func NewScalar(s string) VariableValue { return VariableValue{Scalar: s} }

func NewArray() VariableValue { return VariableValue{IsArray: true, Array: map[int64]string{}} }

// Join renders the value the way an unquoted bare expansion would: the
// scalar itself, or array elements in index order space-joined.
func (v VariableValue) Join(sep string) string {
	if !v.IsArray {
		return v.Scalar
	}
	keys := make([]int64, 0, len(v.Array))
	for k := range v.Array {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += sep
		}
		out += v.Array[k]
	}
	return out
}

// binding tracks a variable's value plus shell attributes relevant to
// expansion and assignment (readonly/exported), scoped per-Scope.
type binding struct {
	value    VariableValue
	exported bool
	readonly bool
}

// Scope is one frame of the variable-lookup chain; function calls push a
// new Scope so `local` bindings are confined to it (spec.md §3 Scope).
type Scope struct {
	vars   map[string]*binding
	parent *Scope
}

func newScope(parent *Scope) *Scope {
	return &Scope{vars: map[string]*binding{}, parent: parent}
}

func (s *Scope) lookup(name string) (*binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Options mirrors the `set -e/-u/-o pipefail/-f` family (spec.md §3
// Session options).
type Options struct {
	ErrExit  bool
	NoUnset  bool
	PipeFail bool
	NoGlob   bool
}

// Limits holds the resource counters of spec.md §5, reset at the start of
// each Session.Exec call.
type Limits struct {
	MaxCommands        int64
	MaxLoopIterations  int64
	MaxFunctionDepth    int64
	MaxOutputBytes      int64
	MaxInputBytes       int64
	WallClockTimeout    time.Duration

	CommandsExecuted int64
	OutputBytes      int64
	FunctionDepth    int64
	Deadline         time.Time
}

func DefaultLimits() Limits {
	return Limits{
		MaxCommands:       10000,
		MaxLoopIterations: 100000,
		MaxFunctionDepth:  100,
		MaxOutputBytes:    10 << 20,
		MaxInputBytes:     10 << 20,
		WallClockTimeout:  30 * time.Second,
	}
}

// ResourceExceeded is the fatal error kind of spec.md §7 ResourceExceeded.
type ResourceExceeded struct {
	Counter string
}

func (e *ResourceExceeded) Error() string { return "resource limit exceeded: " + e.Counter }

func (l *Limits) ChargeCommand() error {
	l.CommandsExecuted++
	if l.CommandsExecuted > l.MaxCommands {
		return &ResourceExceeded{Counter: "commands_executed"}
	}
	return nil
}

func (l *Limits) ChargeOutput(n int) error {
	l.OutputBytes += int64(n)
	if l.OutputBytes > l.MaxOutputBytes {
		return &ResourceExceeded{Counter: "output_bytes"}
	}
	return nil
}

// ChargeInput enforces input_bytes (spec.md §5, "Enforced at: before lex")
// against the raw script length, before any lexing happens.
func (l *Limits) ChargeInput(n int) error {
	if int64(n) > l.MaxInputBytes {
		return &ResourceExceeded{Counter: "input_bytes"}
	}
	return nil
}

// StartClock arms the wall_clock deadline for one exec() run (spec.md §5
// Cancellation: "a session carries a deadline").
func (l *Limits) StartClock() {
	l.Deadline = time.Now().Add(l.WallClockTimeout)
}

// CheckDeadline is called at the entry of every command and after I/O
// (spec.md §5 Cancellation). A zero Deadline (clock never armed) never
// fires.
func (l *Limits) CheckDeadline() error {
	if l.Deadline.IsZero() {
		return nil
	}
	if time.Now().After(l.Deadline) {
		return &ResourceExceeded{Counter: "wall_clock"}
	}
	return nil
}

func (l *Limits) EnterFunction() error {
	l.FunctionDepth++
	if l.FunctionDepth > l.MaxFunctionDepth {
		return &ResourceExceeded{Counter: "function_depth"}
	}
	return nil
}

func (l *Limits) LeaveFunction() { l.FunctionDepth-- }

// UnboundVariable is the expander-under-nounset error of spec.md §7.
type UnboundVariable struct {
	Name string
}

func (e *UnboundVariable) Error() string { return fmt.Sprintf("unbound variable: %s", e.Name) }

// Session is the mutable execution environment threaded through one
// interpreter run (spec.md §3 Session).
type Session struct {
	Options Options
	Limits  Limits

	root    *Scope
	current *Scope

	Exported map[string]string // read-only view handed to BuiltinContext; kept in sync on export/assign
	Functions map[string]*ast.FunctionDef

	Positional []string // $1.. ; $0 kept separately
	Arg0       string
	Cwd        string

	LastStatus   int  // $?
	LastBgPID    int  // $! (always 0: no background jobs in this subset)
	PID          int  // $$
	OptIndex     int  // $OPTIND
	randomState  uint64
	lineNo       int
}

func NewSession(pid int) *Session {
	root := newScope(nil)
	return &Session{
		root:      root,
		current:   root,
		Exported:  map[string]string{},
		Functions: map[string]*ast.FunctionDef{},
		Limits:    DefaultLimits(),
		PID:       pid,
		randomState: uint64(pid)*2654435761 + 1,
	}
}

// PushScope enters a new variable scope (function call entry).
func (s *Session) PushScope() { s.current = newScope(s.current) }

// PopScope leaves the current scope (function return).
func (s *Session) PopScope() {
	if s.current.parent != nil {
		s.current = s.current.parent
	}
}

// Fork produces a logically independent clone of the session for subshell
// execution (spec.md §4.4 Subshell): a deep copy of every scope's
// bindings, positional parameters, and exported map, so mutations never
// propagate back to the parent.
func (s *Session) Fork() *Session {
	clone := &Session{
		Options:    s.Options,
		Limits:     s.Limits,
		Exported:   map[string]string{},
		Functions:  map[string]*ast.FunctionDef{},
		Positional: append([]string(nil), s.Positional...),
		Arg0:       s.Arg0,
		LastStatus: s.LastStatus,
		PID:        s.PID,
		OptIndex:   s.OptIndex,
		randomState: s.randomState,
	}
	for k, v := range s.Exported {
		clone.Exported[k] = v
	}
	for k, v := range s.Functions {
		clone.Functions[k] = v
	}
	clone.root = cloneScopeChain(s.current)
	clone.current = clone.root
	return clone
}

func cloneScopeChain(s *Scope) *Scope {
	if s == nil {
		return nil
	}
	parent := cloneScopeChain(s.parent)
	ns := newScope(parent)
	for k, b := range s.vars {
		cp := *b
		if cp.value.IsArray {
			cp.value.Array = map[int64]string{}
			for i, v := range b.value.Array {
				cp.value.Array[i] = v
			}
		}
		ns.vars[k] = &cp
	}
	return ns
}

// Get returns a variable's string value and whether it is set at all
// (spec.md §4.3 step 2 plain/default forms).
func (s *Session) Get(name string) (string, bool) {
	if v, ok := s.specialVar(name); ok {
		return v, true
	}
	b, ok := s.current.lookup(name)
	if !ok {
		return "", false
	}
	return b.value.Join(" "), true
}

// GetValue returns the full VariableValue (for array-aware forms).
func (s *Session) GetValue(name string) (VariableValue, bool) {
	b, ok := s.current.lookup(name)
	if !ok {
		return VariableValue{}, false
	}
	return b.value, true
}

func (s *Session) specialVar(name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(s.LastStatus), true
	case "$":
		return strconv.Itoa(s.PID), true
	case "!":
		return strconv.Itoa(s.LastBgPID), true
	case "#":
		return strconv.Itoa(len(s.Positional)), true
	case "@", "*":
		out := ""
		for i, p := range s.Positional {
			if i > 0 {
				out += " "
			}
			out += p
		}
		return out, true
	case "0":
		return s.Arg0, true
	case "OPTIND":
		return strconv.Itoa(s.OptIndex), true
	case "LINENO":
		return strconv.Itoa(s.lineNo), true
	case "RANDOM":
		s.randomState = s.randomState*6364136223846793005 + 1442695040888963407
		return strconv.FormatUint((s.randomState>>33)%32768, 10), true
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		if n <= len(s.Positional) {
			return s.Positional[n-1], true
		}
		return "", true
	}
	return "", false
}

// SetLine records the currently executing line number for $LINENO.
func (s *Session) SetLine(n int) { s.lineNo = n }

// Set assigns a scalar to name in the current scope (creating the binding
// there if it doesn't already exist higher up the chain).
func (s *Session) Set(name, value string) error {
	b, ok := s.current.lookup(name)
	if ok {
		if b.readonly {
			return fmt.Errorf("%s: readonly variable", name)
		}
		b.value = NewScalar(value)
	} else {
		s.current.vars[name] = &binding{value: NewScalar(value)}
		b = s.current.vars[name]
	}
	if b.exported {
		s.Exported[name] = value
	}
	return nil
}

// SetLocal forces the binding into the current scope only, per `local`.
func (s *Session) SetLocal(name, value string) {
	s.current.vars[name] = &binding{value: NewScalar(value)}
}

// SetArrayElement assigns arr[i]=v, upgrading a scalar binding to an array
// on first use.
func (s *Session) SetArrayElement(name string, index int64, value string) {
	b, ok := s.current.lookup(name)
	if !ok {
		b = &binding{value: NewArray()}
		s.current.vars[name] = b
	} else if !b.value.IsArray {
		b.value = NewArray()
	}
	b.value.Array[index] = value
}

// Unset removes a binding from whichever scope currently holds it.
func (s *Session) Unset(name string) {
	for sc := s.current; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			delete(sc.vars, name)
			delete(s.Exported, name)
			return
		}
	}
}

// Export marks name as exported, syncing its current value into Exported.
func (s *Session) Export(name string) {
	b, ok := s.current.lookup(name)
	if !ok {
		b = &binding{value: NewScalar("")}
		s.current.vars[name] = b
	}
	b.exported = true
	s.Exported[name] = b.value.Join(" ")
}

func (s *Session) SetReadonly(name string) {
	if b, ok := s.current.lookup(name); ok {
		b.readonly = true
	}
}

// GetArithVar implements internal/arith.Vars.
func (s *Session) GetArithVar(name string, index ast.Arith, eval func(ast.Arith) (int64, error)) (int64, error) {
	if index != nil {
		idx, err := eval(index)
		if err != nil {
			return 0, err
		}
		v, ok := s.GetValue(name)
		if !ok || !v.IsArray {
			return 0, nil
		}
		s := v.Array[idx]
		return parseArithOperand(s), nil
	}
	v, ok := s.Get(name)
	if !ok {
		return 0, nil
	}
	return parseArithOperand(v), nil
}

// SetArithVar implements internal/arith.Vars.
func (s *Session) SetArithVar(name string, index ast.Arith, eval func(ast.Arith) (int64, error), value int64) error {
	text := strconv.FormatInt(value, 10)
	if index != nil {
		idx, err := eval(index)
		if err != nil {
			return err
		}
		s.SetArrayElement(name, idx, text)
		return nil
	}
	return s.Set(name, text)
}

func parseArithOperand(s string) int64 {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0
	}
	return n
}
