package vm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"aslang/internal/compiler"
	"aslang/internal/diag"
)

// State tracks where a VM is in its lifecycle. A VM runs exactly once.
type State int

const (
	StateReady State = iota
	StateRunning
	StateHalted
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

type frame struct {
	code   []compiler.Instruction
	pc     int
	locals map[int]Value // nil for the top-level frame
}

// VM executes one compiled chunk. Output lines accumulate in order and
// survive a fault, so a caller always sees everything printed before the
// failure point.
type VM struct {
	chunk   *compiler.Chunk
	funcs   map[string]*compiler.Function
	globals map[int]Value
	frames  []frame
	stack   []Value
	outputs []string
	state   State
	value   Value
	trap    *diag.Error

	in      *bufio.Reader
	promptW io.Writer
}

func New(chunk *compiler.Chunk) *VM {
	funcs := make(map[string]*compiler.Function, len(chunk.Funcs))
	for i := range chunk.Funcs {
		funcs[chunk.Funcs[i].Name] = &chunk.Funcs[i]
	}
	return &VM{
		chunk:   chunk,
		funcs:   funcs,
		globals: map[int]Value{},
		state:   StateReady,
		value:   None(),
	}
}

// SetInput provides the reader that input statements consume, one line per
// statement. Without it every input statement faults.
func (m *VM) SetInput(r io.Reader) {
	m.in = bufio.NewReader(r)
}

// SetPromptWriter directs input prompts to w. Prompts are only written when
// a writer is set; they never appear in Outputs.
func (m *VM) SetPromptWriter(w io.Writer) {
	m.promptW = w
}

func (m *VM) State() State { return m.state }

// Outputs returns the lines printed so far, including partial output after
// a fault.
func (m *VM) Outputs() []string { return m.outputs }

// Value returns the value of a top-level return, or none.
func (m *VM) Value() Value { return m.value }

// Run executes the chunk to completion. The returned error is a *diag.Error
// for language-level faults. Run respects ctx cancellation between
// instructions.
func (m *VM) Run(ctx context.Context) error {
	if m.state != StateReady {
		return fmt.Errorf("vm already ran (state %s)", m.state)
	}
	m.state = StateRunning
	m.frames = []frame{{code: m.chunk.Code}}

	steps := 0
	for {
		if steps++; steps&1023 == 0 {
			if err := ctx.Err(); err != nil {
				m.state = StateFaulted
				return err
			}
		}

		f := &m.frames[len(m.frames)-1]
		if f.pc >= len(f.code) {
			if len(m.frames) == 1 {
				m.state = StateHalted
				return nil
			}
			// Function bodies always end with an explicit return; a chunk
			// from an external source may not.
			m.frames = m.frames[:len(m.frames)-1]
			m.push(None())
			continue
		}
		ins := f.code[f.pc]
		f.pc++

		done, err := m.step(f, ins)
		if err != nil {
			m.state = StateFaulted
			return err
		}
		if done {
			m.state = StateHalted
			return nil
		}
	}
}

func (m *VM) step(f *frame, ins compiler.Instruction) (done bool, err error) {
	switch ins.Op {
	case compiler.OpConst:
		m.push(NumberValue(ins.Num))
	case compiler.OpNone:
		m.push(None())
	case compiler.OpString:
		if ins.A < 0 || ins.A >= len(m.chunk.Strings) {
			return false, m.fault(diag.StackUnderflow, ins, "string table index %d out of range", ins.A)
		}
		m.push(StringValue(m.chunk.Strings[ins.A]))
	case compiler.OpLoad:
		v, ok := m.lookup(f, ins.A)
		if !ok {
			return false, m.fault(diag.UndefinedVariable, ins, "variable %q is not defined", m.name(ins.A))
		}
		m.push(v)
	case compiler.OpStore:
		v := m.pop()
		if f.locals != nil {
			f.locals[ins.A] = v
		} else {
			m.globals[ins.A] = v
		}
	case compiler.OpAssign:
		v := m.pop()
		if f.locals != nil {
			if _, ok := f.locals[ins.A]; ok {
				f.locals[ins.A] = v
				break
			}
		}
		if _, ok := m.globals[ins.A]; ok {
			m.globals[ins.A] = v
			break
		}
		return false, m.fault(diag.UndefinedVariable, ins, "variable %q is not defined", m.name(ins.A))
	case compiler.OpCall:
		if err := m.call(ins); err != nil {
			return false, err
		}
	case compiler.OpReturn:
		v := m.pop()
		if len(m.frames) == 1 {
			m.value = v
			return true, m.trapErr()
		}
		m.frames = m.frames[:len(m.frames)-1]
		m.push(v)
	case compiler.OpMakeArray:
		n := ins.A
		if n > len(m.stack) {
			return false, m.fault(diag.StackUnderflow, ins, "array literal needs %d values, stack has %d", n, len(m.stack))
		}
		elems := make([]Value, n)
		copy(elems, m.stack[len(m.stack)-n:])
		m.stack = m.stack[:len(m.stack)-n]
		m.push(ArrayValue(&Array{Elems: elems}))
	case compiler.OpIndex:
		idx := m.pop()
		arr := m.pop()
		elem, ferr := m.indexInto(arr, idx, ins)
		if ferr != nil {
			return false, ferr
		}
		m.push(elem)
	case compiler.OpSetIndex:
		v := m.pop()
		idx := m.pop()
		arr := m.pop()
		if arr.Kind != KindArray {
			return false, m.fault(diag.TypeMismatch, ins, "cannot index into a %s", arr.Kind)
		}
		i, ferr := m.indexNumber(idx, len(arr.Arr.Elems), ins)
		if ferr != nil {
			return false, ferr
		}
		arr.Arr.Elems[i] = v
	case compiler.OpOutput:
		v := m.pop()
		m.outputs = append(m.outputs, v.Render())
	case compiler.OpInput:
		if err := m.input(ins); err != nil {
			return false, err
		}
	case compiler.OpJump:
		f.pc = ins.A
	case compiler.OpJumpIfFalse:
		if !m.pop().Truthy() {
			f.pc = ins.A
		}
	case compiler.OpPop:
		m.pop()
	case compiler.OpNeg:
		v := m.pop()
		if v.Kind != KindNumber {
			return false, m.fault(diag.TypeMismatch, ins, "cannot negate a %s", v.Kind)
		}
		m.push(NumberValue(-v.Num))
	case compiler.OpBitNot:
		v := m.pop()
		if v.Kind != KindNumber {
			return false, m.fault(diag.TypeMismatch, ins, "cannot apply ~ to a %s", v.Kind)
		}
		m.push(NumberValue(float64(^int64(v.Num))))
	case compiler.OpNot:
		v := m.pop()
		if v.Truthy() {
			m.push(NumberValue(0))
		} else {
			m.push(NumberValue(1))
		}
	default:
		if err := m.binary(ins); err != nil {
			return false, err
		}
	}
	return false, m.trapErr()
}

func (m *VM) call(ins compiler.Instruction) error {
	name := m.name(ins.A)
	fn, ok := m.funcs[name]
	if !ok {
		return m.fault(diag.UndefinedFunction, ins, "function %q is not defined", name)
	}
	if len(fn.Params) != ins.B {
		return m.fault(diag.ArityMismatchAtCall, ins, "function %q takes %d arguments, got %d", name, len(fn.Params), ins.B)
	}
	if ins.B > len(m.stack) {
		return m.fault(diag.StackUnderflow, ins, "call needs %d arguments, stack has %d", ins.B, len(m.stack))
	}
	locals := make(map[int]Value, len(fn.Params))
	args := m.stack[len(m.stack)-ins.B:]
	for i, p := range fn.Params {
		locals[p] = args[i]
	}
	m.stack = m.stack[:len(m.stack)-ins.B]
	m.frames = append(m.frames, frame{code: fn.Code, locals: locals})
	return nil
}

// input reads one line into the target variable. A line that parses as a
// number is stored as a number, anything else as a string.
func (m *VM) input(ins compiler.Instruction) error {
	if ins.B == 1 {
		prompt := m.pop()
		if m.promptW != nil {
			fmt.Fprint(m.promptW, prompt.Render())
		}
	}
	if m.in == nil {
		return m.fault(diag.TypeMismatch, ins, "input is not connected")
	}
	line, err := m.in.ReadString('\n')
	if err != nil && line == "" && err != io.EOF {
		return m.fault(diag.TypeMismatch, ins, "reading input: %v", err)
	}
	line = strings.TrimRight(line, "\r\n")
	v := StringValue(line)
	if n, perr := strconv.ParseFloat(line, 64); perr == nil {
		v = NumberValue(n)
	}
	if f := &m.frames[len(m.frames)-1]; f.locals != nil {
		f.locals[ins.A] = v
	} else {
		m.globals[ins.A] = v
	}
	return nil
}

func (m *VM) binary(ins compiler.Instruction) error {
	r := m.pop()
	l := m.pop()
	if err := m.trapErr(); err != nil {
		return err
	}

	switch ins.Op {
	case compiler.OpEq:
		m.push(boolValue(l.Equal(r)))
		return nil
	case compiler.OpNe:
		m.push(boolValue(!l.Equal(r)))
		return nil
	case compiler.OpAnd:
		m.push(boolValue(l.Truthy() && r.Truthy()))
		return nil
	case compiler.OpOr:
		m.push(boolValue(l.Truthy() || r.Truthy()))
		return nil
	case compiler.OpAdd:
		if l.Kind == KindString && r.Kind == KindString {
			m.push(StringValue(l.Str + r.Str))
			return nil
		}
	}

	if l.Kind != KindNumber || r.Kind != KindNumber {
		return m.fault(diag.TypeMismatch, ins, "operator %s needs numbers, got %s and %s", ins.Op, l.Kind, r.Kind)
	}
	a, b := l.Num, r.Num
	switch ins.Op {
	case compiler.OpAdd:
		m.push(NumberValue(a + b))
	case compiler.OpSub:
		m.push(NumberValue(a - b))
	case compiler.OpMul:
		m.push(NumberValue(a * b))
	case compiler.OpDiv:
		if b == 0 {
			return m.fault(diag.DivisionByZero, ins, "division by zero")
		}
		m.push(NumberValue(a / b))
	case compiler.OpMod:
		if b == 0 {
			return m.fault(diag.DivisionByZero, ins, "modulo by zero")
		}
		m.push(NumberValue(math.Mod(a, b)))
	case compiler.OpPow:
		m.push(NumberValue(math.Pow(a, b)))
	case compiler.OpLt:
		m.push(boolValue(a < b))
	case compiler.OpLe:
		m.push(boolValue(a <= b))
	case compiler.OpGt:
		m.push(boolValue(a > b))
	case compiler.OpGe:
		m.push(boolValue(a >= b))
	case compiler.OpBitAnd:
		m.push(NumberValue(float64(int64(a) & int64(b))))
	case compiler.OpBitOr:
		m.push(NumberValue(float64(int64(a) | int64(b))))
	case compiler.OpShl:
		m.push(NumberValue(float64(int64(a) << uint64(int64(b)))))
	case compiler.OpShr:
		m.push(NumberValue(float64(int64(a) >> uint64(int64(b)))))
	default:
		return m.fault(diag.UnknownOperator, ins, "opcode %s is not executable", ins.Op)
	}
	return nil
}

func (m *VM) indexInto(arr, idx Value, ins compiler.Instruction) (Value, error) {
	if arr.Kind != KindArray {
		return None(), m.fault(diag.TypeMismatch, ins, "cannot index into a %s", arr.Kind)
	}
	i, err := m.indexNumber(idx, len(arr.Arr.Elems), ins)
	if err != nil {
		return None(), err
	}
	return arr.Arr.Elems[i], nil
}

func (m *VM) indexNumber(idx Value, length int, ins compiler.Instruction) (int, error) {
	if idx.Kind != KindNumber {
		return 0, m.fault(diag.TypeMismatch, ins, "array index must be a number, got %s", idx.Kind)
	}
	i := int(idx.Num)
	if float64(i) != idx.Num || i < 0 || i >= length {
		return 0, m.fault(diag.IndexOutOfRange, ins, "index %s out of range for length %d", idx.Render(), length)
	}
	return i, nil
}

func (m *VM) lookup(f *frame, nameIdx int) (Value, bool) {
	if f.locals != nil {
		if v, ok := f.locals[nameIdx]; ok {
			return v, true
		}
	}
	v, ok := m.globals[nameIdx]
	return v, ok
}

func (m *VM) name(idx int) string {
	if idx >= 0 && idx < len(m.chunk.Names) {
		return m.chunk.Names[idx]
	}
	return fmt.Sprintf("name#%d", idx)
}

func (m *VM) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *VM) pop() Value {
	if len(m.stack) == 0 {
		if m.trap == nil {
			m.trap = diag.Errorf(diag.StackUnderflow, diag.Position{}, "operand stack is empty")
		}
		return None()
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *VM) trapErr() error {
	if m.trap != nil {
		return m.trap
	}
	return nil
}

func (m *VM) fault(kind diag.Kind, ins compiler.Instruction, format string, args ...any) error {
	return diag.Errorf(kind, diag.Position{Line: ins.Line}, format, args...)
}

func boolValue(b bool) Value {
	if b {
		return NumberValue(1)
	}
	return NumberValue(0)
}
