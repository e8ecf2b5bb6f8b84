package runtime_test

import (
	"context"
	"strings"
	"testing"

	"aslang/internal/compiler"
	"aslang/internal/runtime"
	"aslang/internal/vm"
)

func TestExecuteProducesOutputs(t *testing.T) {
	res, err := runtime.Execute(`
fn greet(name) {
	return "hello, " + name;
}
output greet("world");
output 6 * 7;
`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := []string{"hello, world", "42"}
	if len(res.Outputs) != len(want) {
		t.Fatalf("got %v", res.Outputs)
	}
	for i := range want {
		if res.Outputs[i] != want[i] {
			t.Errorf("output %d: got %q, want %q", i, res.Outputs[i], want[i])
		}
	}
}

func TestExecuteParseErrorHasNoResult(t *testing.T) {
	res, err := runtime.Execute("let = ;")
	if err == nil {
		t.Fatal("expected an error")
	}
	if res != nil {
		t.Errorf("result should be nil on a parse error, got %#v", res)
	}
}

func TestExecuteCompileErrorHasNoResult(t *testing.T) {
	res, err := runtime.Execute("break;")
	if err == nil {
		t.Fatal("expected an error")
	}
	if res != nil {
		t.Errorf("result should be nil on a compile error, got %#v", res)
	}
}

func TestExecuteKeepsPartialOutputOnFault(t *testing.T) {
	res, err := runtime.Execute(`
output "before";
let z = 0;
output 1 / z;
output "after";
`)
	if err == nil {
		t.Fatal("expected a fault")
	}
	if res == nil {
		t.Fatal("result must carry partial output")
	}
	if len(res.Outputs) != 1 || res.Outputs[0] != "before" {
		t.Errorf("partial outputs: %v", res.Outputs)
	}
}

func TestExecuteTopLevelReturnValue(t *testing.T) {
	res, err := runtime.Execute("return 1 + 2;")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Value.Kind != vm.KindNumber || res.Value.Num != 3 {
		t.Errorf("value: %#v", res.Value)
	}
}

func TestExecuteWithInput(t *testing.T) {
	res, err := runtime.ExecuteContext(context.Background(), "input x;\noutput x * 2;", runtime.Options{
		Input: strings.NewReader("21\n"),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.Outputs) != 1 || res.Outputs[0] != "42" {
		t.Errorf("outputs: %v", res.Outputs)
	}
}

func TestFoldedAndUnfoldedAgree(t *testing.T) {
	src := `
let base = 2 * 3 + 4;
fn scale(n) {
	return n * (10 - 8);
}
output scale(base) + 1 ^ 3;
output "a" + "b" + "c";
`
	folded, err := runtime.ExecuteContext(context.Background(), src, runtime.Options{})
	if err != nil {
		t.Fatalf("folded run: %v", err)
	}
	unfolded, err := runtime.ExecuteContext(context.Background(), src, runtime.Options{
		Compiler: compiler.Options{DisableFolding: true},
	})
	if err != nil {
		t.Fatalf("unfolded run: %v", err)
	}
	if len(folded.Outputs) != len(unfolded.Outputs) {
		t.Fatalf("folded %v vs unfolded %v", folded.Outputs, unfolded.Outputs)
	}
	for i := range folded.Outputs {
		if folded.Outputs[i] != unfolded.Outputs[i] {
			t.Errorf("output %d: folded %q, unfolded %q", i, folded.Outputs[i], unfolded.Outputs[i])
		}
	}
}

func TestCheckReportsAllPhases(t *testing.T) {
	if errs := runtime.Check("output 1;"); len(errs) != 0 {
		t.Errorf("clean program: %v", errs)
	}
	if errs := runtime.Check("let = 1;"); len(errs) == 0 {
		t.Errorf("parse error missed")
	}
	if errs := runtime.Check("break;"); len(errs) == 0 {
		t.Errorf("compile error missed")
	}
}
