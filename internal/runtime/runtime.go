package runtime

import (
	"context"
	"errors"
	"io"

	"aslang/internal/compiler"
	"aslang/internal/parser"
	"aslang/internal/vm"
)

// Options configures a single execution.
type Options struct {
	Compiler compiler.Options
	// Input feeds input statements. nil means input statements fault.
	Input io.Reader
	// PromptWriter receives input prompts, typically a terminal. nil
	// discards them.
	PromptWriter io.Writer
}

// Result is what a completed or faulted run produced.
type Result struct {
	// Outputs holds one entry per executed output statement, in order.
	// After a runtime fault it holds everything printed up to the fault.
	Outputs []string
	// Value is the value of a top-level return, or none.
	Value vm.Value
}

// Execute runs a source program to completion.
func Execute(source string) (*Result, error) {
	return ExecuteContext(context.Background(), source, Options{})
}

// ExecuteContext runs a source program through the full pipeline: parse,
// compile, execute. Parse and compile errors come back joined, with a nil
// result. A runtime fault comes back with a non-nil result carrying the
// partial output.
func ExecuteContext(ctx context.Context, source string, opts Options) (*Result, error) {
	chunk, errs := compileSource(source, opts.Compiler)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return RunChunk(ctx, chunk, opts)
}

// RunChunk executes an already-compiled chunk.
func RunChunk(ctx context.Context, chunk *compiler.Chunk, opts Options) (*Result, error) {
	machine := vm.New(chunk)
	if opts.Input != nil {
		machine.SetInput(opts.Input)
	}
	if opts.PromptWriter != nil {
		machine.SetPromptWriter(opts.PromptWriter)
	}
	err := machine.Run(ctx)
	res := &Result{Outputs: machine.Outputs(), Value: machine.Value()}
	if err != nil {
		return res, err
	}
	return res, nil
}

// Compile parses and compiles a source program without running it.
func Compile(source string, opts compiler.Options) (*compiler.Chunk, error) {
	chunk, errs := compileSource(source, opts)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return chunk, nil
}

// Check parses and compiles source, returning every error found and
// discarding the compiled code. This is what editor diagnostics run.
func Check(source string) []error {
	_, errs := compileSource(source, compiler.Options{})
	return errs
}

func compileSource(source string, opts compiler.Options) (*compiler.Chunk, []error) {
	prog, errs := parser.New(source).Parse()
	if len(errs) > 0 {
		return nil, errs
	}
	return compiler.CompileWithOptions(prog, opts)
}
