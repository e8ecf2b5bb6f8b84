package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode is one VM instruction selector. The numeric values are part of the
// compiled-chunk wire format, so new opcodes go at the end.
type Opcode byte

const (
	OpConst     Opcode = iota // push Num
	OpString                  // push Strings[A]
	OpLoad                    // push variable Names[A]
	OpStore                   // pop into variable Names[A]
	OpCall                    // call function Names[A] with B stack args
	OpMakeArray               // pop A elements, push an array of them
	OpIndex                   // pop index, pop array, push element
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpShl
	OpShr
	OpNeg
	OpBitNot
	OpNot
	OpJump        // pc = A
	OpJumpIfFalse // pop; if falsy, pc = A
	OpReturn      // pop return value, unwind one frame (or halt at top level)
	OpOutput      // pop and append one output line
	OpInput       // read a line into Names[A]; if B == 1 a prompt is on the stack
	OpPop
	OpNone     // push the none value
	OpAssign   // pop into existing variable Names[A]; fault when unbound
	OpSetIndex // pop value, pop index, pop array; write element in place
)

func (op Opcode) String() string {
	switch op {
	case OpConst:
		return "const"
	case OpString:
		return "string"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpCall:
		return "call"
	case OpMakeArray:
		return "makearray"
	case OpIndex:
		return "index"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	case OpPow:
		return "pow"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpBitAnd:
		return "bitand"
	case OpBitOr:
		return "bitor"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	case OpNeg:
		return "neg"
	case OpBitNot:
		return "bitnot"
	case OpNot:
		return "not"
	case OpJump:
		return "jump"
	case OpJumpIfFalse:
		return "jumpiffalse"
	case OpReturn:
		return "return"
	case OpOutput:
		return "output"
	case OpInput:
		return "input"
	case OpPop:
		return "pop"
	case OpNone:
		return "none"
	case OpAssign:
		return "assign"
	case OpSetIndex:
		return "setindex"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Instruction is a fixed-shape decoded instruction. A and B are operand
// slots whose meaning depends on Op (table index, jump target, arg count);
// Num carries the literal for OpConst. Line points back at the source line
// that produced the instruction, for runtime fault reports.
type Instruction struct {
	Op   Opcode
	A    int
	B    int
	Num  float64
	Line int
}

// Function is one compiled function body with its own instruction stream.
type Function struct {
	Name    string
	Params  []int // name-table indices, in declaration order
	Code    []Instruction
	IsAsync bool
}

// Chunk is a complete compiled program: top-level code, function bodies and
// the shared literal tables. Identifier references in instructions are
// indices into Names.
type Chunk struct {
	Code    []Instruction
	Strings []string
	Names   []string
	Funcs   []Function
}

// FuncByName returns the function whose name-table entry matches name.
func (c *Chunk) FuncByName(name string) (*Function, bool) {
	for i := range c.Funcs {
		if c.Funcs[i].Name == name {
			return &c.Funcs[i], true
		}
	}
	return nil, false
}

// Disassemble renders the chunk in a line-per-instruction text form.
func (c *Chunk) Disassemble() string {
	var b strings.Builder
	b.WriteString("== main ==\n")
	c.writeCode(&b, c.Code)
	for i := range c.Funcs {
		fn := &c.Funcs[i]
		fmt.Fprintf(&b, "== fn %s/%d ==\n", fn.Name, len(fn.Params))
		c.writeCode(&b, fn.Code)
	}
	return b.String()
}

func (c *Chunk) writeCode(b *strings.Builder, code []Instruction) {
	for i, ins := range code {
		fmt.Fprintf(b, "%04d %s", i, ins.Op)
		switch ins.Op {
		case OpConst:
			b.WriteString(" " + strconv.FormatFloat(ins.Num, 'f', -1, 64))
		case OpString:
			fmt.Fprintf(b, " %q", c.Strings[ins.A])
		case OpLoad, OpStore, OpAssign, OpInput:
			fmt.Fprintf(b, " %s", c.Names[ins.A])
		case OpCall:
			fmt.Fprintf(b, " %s argc=%d", c.Names[ins.A], ins.B)
		case OpMakeArray:
			fmt.Fprintf(b, " %d", ins.A)
		case OpJump, OpJumpIfFalse:
			fmt.Fprintf(b, " -> %04d", ins.A)
		}
		b.WriteByte('\n')
	}
}
