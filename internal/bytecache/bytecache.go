package bytecache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"aslang/internal/compiler"
	"aslang/internal/wire"
)

// Cache stores compiled chunks in a SQLite database keyed by the hash of
// their source text, so repeated runs of the same program skip the
// compiler.
type Cache struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	hash       BLOB PRIMARY KEY,
	data       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Open opens or creates a cache database at path. Use ":memory:" for a
// throwaway cache.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("bytecache: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bytecache: init schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get looks up the compiled chunk for source. A miss returns (nil, false,
// nil).
func (c *Cache) Get(source string) (*compiler.Chunk, bool, error) {
	hash := wire.HashSource(source)
	var data []byte
	err := c.db.QueryRow(`SELECT data FROM chunks WHERE hash = ?`, hash[:]).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("bytecache: query: %w", err)
	}
	chunk, err := wire.UnmarshalChunk(data)
	if err != nil {
		// A corrupt entry behaves like a miss; the caller recompiles and
		// overwrites it.
		return nil, false, nil
	}
	return chunk, true, nil
}

// Put stores the compiled chunk for source, replacing any existing entry.
func (c *Cache) Put(source string, chunk *compiler.Chunk) error {
	data, err := wire.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	hash := wire.HashSource(source)
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO chunks (hash, data, created_at) VALUES (?, ?, ?)`,
		hash[:], data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("bytecache: insert: %w", err)
	}
	return nil
}

// Len reports how many chunks the cache holds.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("bytecache: count: %w", err)
	}
	return n, nil
}
