package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aslang/internal/bytecache"
	"aslang/internal/compiler"
	"aslang/internal/formatter"
	"aslang/internal/lsp"
	"aslang/internal/manifest"
	"aslang/internal/runtime"
	"aslang/internal/wire"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		replCmd(nil)
		return
	}
	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "build":
		buildCmd(os.Args[2:])
	case "launch":
		launchCmd(os.Args[2:])
	case "disasm":
		disasmCmd(os.Args[2:])
	case "check":
		checkCmd(os.Args[2:])
	case "format":
		formatCmd(os.Args[2:])
	case "repl":
		replCmd(os.Args[2:])
	case "lsp":
		lspCmd(os.Args[2:])
	case "--version", "version":
		fmt.Printf("aslang %s\n", version)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  aslang run [-no-fold] [-cache <path>] <file.as>")
	fmt.Fprintln(os.Stderr, "  aslang build [-o <file.asc>] <file.as>")
	fmt.Fprintln(os.Stderr, "  aslang launch <file.asc>")
	fmt.Fprintln(os.Stderr, "  aslang disasm <file.as|file.asc>")
	fmt.Fprintln(os.Stderr, "  aslang check <file.as>")
	fmt.Fprintln(os.Stderr, "  aslang format [-write] <file.as>...")
	fmt.Fprintln(os.Stderr, "  aslang repl")
	fmt.Fprintln(os.Stderr, "  aslang lsp")
	fmt.Fprintln(os.Stderr, "  aslang version")
}

// buildOptions merges command-line flags with an aslang.toml found near the
// entry file. Flags win.
func buildOptions(entry string, noFold bool, cachePath string) (compiler.Options, string) {
	opts := compiler.Options{DisableFolding: noFold}
	m, err := manifest.FindAndLoad(filepath.Dir(entry))
	if err == nil && m != nil {
		if !noFold {
			opts.DisableFolding = m.Build.DisableFolding
		}
		if cachePath == "" {
			cachePath = m.Build.Cache
		}
	}
	return opts, cachePath
}

func compileFile(entry string, opts compiler.Options, cachePath string) (*compiler.Chunk, error) {
	src, err := os.ReadFile(entry)
	if err != nil {
		return nil, err
	}
	source := string(src)

	var cache *bytecache.Cache
	if cachePath != "" {
		cache, err = bytecache.Open(cachePath)
		if err != nil {
			return nil, err
		}
		defer cache.Close()
		if chunk, ok, err := cache.Get(source); err == nil && ok {
			return chunk, nil
		}
	}

	chunk, err := runtime.Compile(source, opts)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Put(source, chunk); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	return chunk, nil
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	noFold := fs.Bool("no-fold", false, "disable constant folding")
	cachePath := fs.String("cache", "", "compiled-chunk cache database path")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "an input file is required")
		os.Exit(1)
	}
	entry := fs.Arg(0)

	opts, cp := buildOptions(entry, *noFold, *cachePath)
	chunk, err := compileFile(entry, opts, cp)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	execChunk(chunk)
}

func buildCmd(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("o", "", "output file (defaults to the input with an .asc extension)")
	noFold := fs.Bool("no-fold", false, "disable constant folding")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "an input file is required")
		os.Exit(1)
	}
	entry := fs.Arg(0)

	opts, _ := buildOptions(entry, *noFold, "")
	chunk, err := compileFile(entry, opts, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	data, err := wire.MarshalChunk(chunk)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	path := *out
	if path == "" {
		path = strings.TrimSuffix(entry, filepath.Ext(entry)) + ".asc"
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func launchCmd(args []string) {
	fs := flag.NewFlagSet("launch", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "an input file is required")
		os.Exit(1)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	chunk, err := wire.UnmarshalChunk(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	execChunk(chunk)
}

func execChunk(chunk *compiler.Chunk) {
	res, err := runtime.RunChunk(context.Background(), chunk, runtime.Options{
		Input:        os.Stdin,
		PromptWriter: os.Stdout,
	})
	if res != nil {
		for _, line := range res.Outputs {
			fmt.Println(line)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func disasmCmd(args []string) {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "an input file is required")
		os.Exit(1)
	}
	entry := fs.Arg(0)

	var chunk *compiler.Chunk
	var err error
	if filepath.Ext(entry) == ".asc" {
		var data []byte
		data, err = os.ReadFile(entry)
		if err == nil {
			chunk, err = wire.UnmarshalChunk(data)
		}
	} else {
		chunk, err = compileFile(entry, compiler.Options{}, "")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Print(chunk.Disassemble())
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "an input file is required")
		os.Exit(1)
	}
	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	errs := runtime.Check(string(src))
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s: %v\n", fs.Arg(0), e)
	}
	if len(errs) > 0 {
		os.Exit(1)
	}
}

func formatCmd(args []string) {
	fs := flag.NewFlagSet("format", flag.ExitOnError)
	write := fs.Bool("write", false, "overwrite the file in place")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "an input file is required")
		os.Exit(1)
	}
	for _, file := range fs.Args() {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			os.Exit(1)
		}
		formatted, err := formatter.New().Format(string(src))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			os.Exit(1)
		}
		if *write {
			if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
				os.Exit(1)
			}
		} else {
			fmt.Print(formatted)
		}
	}
}

// replCmd reads one statement per line. State carries over by replaying
// the whole session on each entry and printing only the new output; a line
// that fails is dropped from the session. Replay re-executes every retained
// statement, so a session holding an input statement reads a fresh stdin
// line on each subsequent entry; use run for scripts that take input.
func replCmd(args []string) {
	fmt.Printf("aslang %s\n", version)
	scanner := bufio.NewScanner(os.Stdin)
	var session strings.Builder
	printed := 0
	for {
		fmt.Print("as > ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		candidate := session.String() + line + "\n"
		res, err := runtime.ExecuteContext(context.Background(), candidate, runtime.Options{
			Input:        os.Stdin,
			PromptWriter: os.Stdout,
		})
		if res != nil {
			for _, out := range res.Outputs[min(printed, len(res.Outputs)):] {
				fmt.Println(out)
			}
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		session.Reset()
		session.WriteString(candidate)
		printed = len(res.Outputs)
	}
}

func lspCmd(args []string) {
	server := lsp.NewServer(version)
	if err := server.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
