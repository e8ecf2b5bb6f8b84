package wire

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"aslang/internal/compiler"
)

// Format constants for the compiled-chunk container.
const (
	Magic   = "ASLC"
	Version = 1
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Envelope wraps a chunk with its format version and the hash of the chunk
// body, so a decoder can reject truncated or tampered files.
type Envelope struct {
	Magic   string   `cbor:"magic"`
	Version int      `cbor:"version"`
	Hash    [32]byte `cbor:"hash"`
	Body    []byte   `cbor:"body"`
}

// MarshalChunk serializes a chunk to its canonical CBOR container. Equal
// chunks always produce byte-identical output.
func MarshalChunk(c *compiler.Chunk) ([]byte, error) {
	body, err := cborEncMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal chunk body: %w", err)
	}
	env := Envelope{
		Magic:   Magic,
		Version: Version,
		Hash:    sha256.Sum256(body),
		Body:    body,
	}
	data, err := cborEncMode.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal envelope: %w", err)
	}
	return data, nil
}

// UnmarshalChunk decodes a CBOR container, verifying magic, version and the
// body hash before handing the chunk back.
func UnmarshalChunk(data []byte) (*compiler.Chunk, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("wire: unmarshal envelope: %w", err)
	}
	if env.Magic != Magic {
		return nil, fmt.Errorf("wire: bad magic %q", env.Magic)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("wire: unsupported version %d", env.Version)
	}
	if sum := sha256.Sum256(env.Body); !bytes.Equal(sum[:], env.Hash[:]) {
		return nil, fmt.Errorf("wire: hash mismatch: declared %x, computed %x", env.Hash, sum)
	}
	var c compiler.Chunk
	if err := cbor.Unmarshal(env.Body, &c); err != nil {
		return nil, fmt.Errorf("wire: unmarshal chunk: %w", err)
	}
	return &c, nil
}

// HashSource returns the content hash used to key compiled chunks by their
// source text.
func HashSource(source string) [32]byte {
	return sha256.Sum256([]byte(source))
}
