package wire_test

import (
	"bytes"
	"context"
	"testing"

	"aslang/internal/compiler"
	"aslang/internal/runtime"
	"aslang/internal/wire"
)

const sample = `
fn square(n) {
	return n * n;
}
let total = 0;
for (let i = 1; i <= 4; i++) {
	total = total + square(i);
}
output total;
`

func compileSample(t *testing.T) *compiler.Chunk {
	t.Helper()
	chunk, err := runtime.Compile(sample, compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return chunk
}

func TestRoundTripRunsIdentically(t *testing.T) {
	chunk := compileSample(t)
	data, err := wire.MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := wire.UnmarshalChunk(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	direct, err := runtime.RunChunk(context.Background(), chunk, runtime.Options{})
	if err != nil {
		t.Fatalf("run original: %v", err)
	}
	loaded, err := runtime.RunChunk(context.Background(), decoded, runtime.Options{})
	if err != nil {
		t.Fatalf("run decoded: %v", err)
	}
	if len(direct.Outputs) != 1 || direct.Outputs[0] != "30" {
		t.Fatalf("original outputs: %v", direct.Outputs)
	}
	if len(loaded.Outputs) != 1 || loaded.Outputs[0] != direct.Outputs[0] {
		t.Errorf("decoded outputs: %v", loaded.Outputs)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	a, err := wire.MarshalChunk(compileSample(t))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := wire.MarshalChunk(compileSample(t))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("two encodings of the same program differ")
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := wire.UnmarshalChunk([]byte("not cbor at all")); err == nil {
		t.Errorf("garbage accepted")
	}
}

func TestUnmarshalRejectsTamperedBody(t *testing.T) {
	data, err := wire.MarshalChunk(compileSample(t))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Flip a byte near the end, inside the encoded body.
	data[len(data)-2] ^= 0xff
	if _, err := wire.UnmarshalChunk(data); err == nil {
		t.Errorf("tampered container accepted")
	}
}

func TestHashSourceDiffers(t *testing.T) {
	if wire.HashSource("output 1;") == wire.HashSource("output 2;") {
		t.Errorf("different sources share a hash")
	}
}
