package vm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aslang/internal/compiler"
	"aslang/internal/diag"
	"aslang/internal/parser"
	"aslang/internal/vm"
)

func compile(t *testing.T, src string) *compiler.Chunk {
	t.Helper()
	prog, errs := parser.New(src).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	chunk, errs := compiler.Compile(prog)
	if len(errs) > 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	return chunk
}

func run(t *testing.T, src string) ([]string, error) {
	t.Helper()
	machine := vm.New(compile(t, src))
	err := machine.Run(context.Background())
	return machine.Outputs(), err
}

func mustRun(t *testing.T, src string) []string {
	t.Helper()
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("run: %v (outputs %v)", err, out)
	}
	return out
}

func wantOutputs(t *testing.T, src string, want ...string) {
	t.Helper()
	got := mustRun(t, src)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func faultKind(t *testing.T, err error) diag.Kind {
	t.Helper()
	var derr *diag.Error
	if !errors.As(err, &derr) {
		t.Fatalf("not a language fault: %v", err)
	}
	return derr.Kind
}

func TestArithmeticAndRendering(t *testing.T) {
	wantOutputs(t, "let x = 7;\noutput x * 6;", "42")
	wantOutputs(t, "let x = 1;\noutput x / 2;", "0.5")
	wantOutputs(t, "let x = 2;\noutput x ^ 10;", "1024")
	wantOutputs(t, "let x = 7;\noutput x % 3;", "1")
	wantOutputs(t, "let x = -5;\noutput -x;", "5")
}

func TestStringConcatAtRuntime(t *testing.T) {
	wantOutputs(t, `let a = "foo";`+"\n"+`output a + "bar";`, "foobar")
}

func TestComparisonsYieldOneOrZero(t *testing.T) {
	wantOutputs(t, "let x = 3;\noutput x < 5;\noutput x > 5;\noutput x == 3;", "1", "0", "1")
}

func TestTruthinessNonzeroNumber(t *testing.T) {
	src := `
let x = 2;
if x {
	output "taken";
}
let s = "text";
if s {
	output "never";
} else {
	output "strings are not truthy";
}
`
	wantOutputs(t, src, "taken", "strings are not truthy")
}

func TestBooleanLiterals(t *testing.T) {
	wantOutputs(t, "output true;\noutput false;", "1", "0")
}

func TestWhileWithBreakAndContinue(t *testing.T) {
	src := `
let i = 0;
let sum = 0;
while 1 {
	i = i + 1;
	if i > 10 {
		break;
	}
	if i % 2 == 0 {
		continue;
	}
	sum = sum + i;
}
output sum;
`
	wantOutputs(t, src, "25")
}

func TestForLoop(t *testing.T) {
	src := `
let sum = 0;
for (let i = 1; i <= 5; i++) {
	sum = sum + i;
}
output sum;
`
	wantOutputs(t, src, "15")
}

func TestElseifChain(t *testing.T) {
	src := `
fn grade(n) {
	if n >= 90 {
		return "A";
	} elseif n >= 80 {
		return "B";
	} elseif n >= 70 {
		return "C";
	} else {
		return "F";
	}
}
output grade(95);
output grade(83);
output grade(71);
output grade(12);
`
	wantOutputs(t, src, "A", "B", "C", "F")
}

func TestRecursion(t *testing.T) {
	src := `
fn fib(n) {
	if n < 2 {
		return n;
	}
	return fib(n - 1) + fib(n - 2);
}
output fib(10);
`
	wantOutputs(t, src, "55")
}

func TestFunctionLocalsDoNotLeak(t *testing.T) {
	src := `
let x = 1;
fn f() {
	let x = 99;
	return x;
}
output f();
output x;
`
	wantOutputs(t, src, "99", "1")
}

func TestAssignInsideFunctionUpdatesGlobal(t *testing.T) {
	src := `
let count = 0;
fn bump() {
	count = count + 1;
	return count;
}
output bump();
output bump();
output count;
`
	wantOutputs(t, src, "1", "2", "2")
}

func TestArraysShareBacking(t *testing.T) {
	src := `
let a = [1, 2, 3];
let b = a;
b[0] = 42;
output a[0];
output a;
`
	wantOutputs(t, src, "42", "[42, 2, 3]")
}

func TestDivisionByZeroFault(t *testing.T) {
	out, err := run(t, "output 1;\nlet z = 0;\noutput 1 / z;")
	if faultKind(t, err) != diag.DivisionByZero {
		t.Errorf("got %v", err)
	}
	if len(out) != 1 || out[0] != "1" {
		t.Errorf("partial output lost: %v", out)
	}
}

func TestUndefinedVariableFault(t *testing.T) {
	_, err := run(t, "output nothing;")
	if faultKind(t, err) != diag.UndefinedVariable {
		t.Errorf("got %v", err)
	}
}

func TestUndefinedFunctionFault(t *testing.T) {
	_, err := run(t, "let x = missing();")
	if faultKind(t, err) != diag.UndefinedFunction {
		t.Errorf("got %v", err)
	}
}

func TestTypeMismatchFault(t *testing.T) {
	_, err := run(t, `let s = "a";`+"\nlet x = s * 2;")
	if faultKind(t, err) != diag.TypeMismatch {
		t.Errorf("got %v", err)
	}
}

func TestIndexOutOfRangeFault(t *testing.T) {
	_, err := run(t, "let a = [1];\noutput a[3];")
	if faultKind(t, err) != diag.IndexOutOfRange {
		t.Errorf("got %v", err)
	}
}

func TestInputStatement(t *testing.T) {
	chunk := compile(t, `input "name? " who;`+"\noutput who;\ninput n;\noutput n + 1;")
	machine := vm.New(chunk)
	machine.SetInput(strings.NewReader("World\n41\n"))
	var prompts strings.Builder
	machine.SetPromptWriter(&prompts)
	if err := machine.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := machine.Outputs()
	if len(out) != 2 || out[0] != "World" || out[1] != "42" {
		t.Errorf("outputs: %v", out)
	}
	if prompts.String() != "name? " {
		t.Errorf("prompts: %q", prompts.String())
	}
}

func TestTopLevelReturnHaltsWithValue(t *testing.T) {
	chunk := compile(t, "output 1;\nreturn 7;\noutput 2;")
	machine := vm.New(chunk)
	if err := machine.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if machine.State() != vm.StateHalted {
		t.Errorf("state: %s", machine.State())
	}
	if v := machine.Value(); v.Kind != vm.KindNumber || v.Num != 7 {
		t.Errorf("value: %#v", v)
	}
	if out := machine.Outputs(); len(out) != 1 {
		t.Errorf("output after return executed: %v", out)
	}
}

func TestStateMachine(t *testing.T) {
	chunk := compile(t, "output 1;")
	machine := vm.New(chunk)
	if machine.State() != vm.StateReady {
		t.Fatalf("initial state: %s", machine.State())
	}
	if err := machine.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if machine.State() != vm.StateHalted {
		t.Errorf("state after run: %s", machine.State())
	}
	if err := machine.Run(context.Background()); err == nil {
		t.Errorf("second run must be rejected")
	}
}

func TestFaultedState(t *testing.T) {
	machine := vm.New(compile(t, "output 1 / 0;"))
	if err := machine.Run(context.Background()); err == nil {
		t.Fatal("expected a fault")
	}
	if machine.State() != vm.StateFaulted {
		t.Errorf("state: %s", machine.State())
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	machine := vm.New(compile(t, "while 1 { }"))
	if err := machine.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

func TestAsyncFunctionRunsSynchronously(t *testing.T) {
	src := `
async fn work(n) {
	return n * 2;
}
output work(21);
`
	wantOutputs(t, src, "42")
}

func TestValueRender(t *testing.T) {
	cases := []struct {
		v    vm.Value
		want string
	}{
		{vm.None(), "none"},
		{vm.NumberValue(3), "3"},
		{vm.NumberValue(3.25), "3.25"},
		{vm.NumberValue(-0.5), "-0.5"},
		{vm.StringValue("hi"), "hi"},
		{vm.ArrayValue(&vm.Array{Elems: []vm.Value{vm.NumberValue(1), vm.StringValue("x"), vm.None()}}), "[1, x, none]"},
	}
	for _, tc := range cases {
		if got := tc.v.Render(); got != tc.want {
			t.Errorf("Render(%#v): got %q, want %q", tc.v, got, tc.want)
		}
	}
}
