// Package cache stores compressed catalog documents on local disk so the
// remote catalog is fetched at most once per sequence.
//
// Lookups walk an ordered list of layouts; writes always use the last one:
//
//	<root>/<id>.zst                      flat (legacy)
//	<root>/<shard>/<id>.zst              single shard
//	<root>/sequences/<shard>/<id>.zst    double shard
//
// where <shard> is ir.ID.Shard(). Entries hold the catalog document's JSON
// encoding passed through zstd.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/ir"
)

// Ext is the file extension of cache entries.
const Ext = ".zst"

// Layout maps an identifier to a candidate path under root.
type Layout func(root string, id ir.ID) string

// Flat is the original unsharded layout.
func Flat(root string, id ir.ID) string {
	return filepath.Join(root, string(id)+Ext)
}

// SingleShard nests entries one directory deep.
func SingleShard(root string, id ir.ID) string {
	return filepath.Join(root, id.Shard(), string(id)+Ext)
}

// DoubleShard is the current layout and the only one written.
func DoubleShard(root string, id ir.ID) string {
	return filepath.Join(root, "sequences", id.Shard(), string(id)+Ext)
}

// DefaultLayouts is the lookup order.
var DefaultLayouts = []Layout{Flat, SingleShard, DoubleShard}

// Cache is a directory of compressed documents. It is safe for concurrent
// use: the zstd encoder and decoder support concurrent EncodeAll/DecodeAll
// and writes land via rename.
type Cache struct {
	root    string
	layouts []Layout
	enc     *zstd.Encoder
	dec     *zstd.Decoder
}

// Open returns a cache rooted at root, creating the directory if needed.
func Open(root string) (*Cache, error) {
	if root == "" {
		return nil, fmt.Errorf("open cache: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Cache{root: root, layouts: DefaultLayouts, enc: enc, dec: dec}, nil
}

// Close releases codec resources.
func (c *Cache) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// Get returns the cached document for id. A miss on every layout is
// reported as (nil, false, nil); any other I/O or decode error is returned.
func (c *Cache) Get(id ir.ID) (*catalog.Document, bool, error) {
	for _, layout := range c.layouts {
		path := layout(c.root, id)
		compressed, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		raw, err := c.dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, false, fmt.Errorf("decompress %s: %w", path, err)
		}
		doc, err := catalog.Decode(raw)
		if err != nil {
			return nil, false, fmt.Errorf("read %s: %w", path, err)
		}
		return doc, true, nil
	}
	return nil, false, nil
}

// Has reports whether any layout holds an entry for id.
func (c *Cache) Has(id ir.ID) (bool, error) {
	for _, layout := range c.layouts {
		_, err := os.Stat(layout(c.root, id))
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	return false, nil
}

// Put writes doc under the double-shard layout and returns the encoded and
// compressed sizes in bytes.
func (c *Cache) Put(id ir.ID, doc *catalog.Document) (raw, compressed int, err error) {
	b, err := catalog.Encode(doc)
	if err != nil {
		return 0, 0, err
	}
	out := c.enc.EncodeAll(b, make([]byte, 0, len(b)/3))
	if err := writeAtomic(DoubleShard(c.root, id), out); err != nil {
		return 0, 0, err
	}
	return len(b), len(out), nil
}

// Invalidate removes id from every layout. It reports whether anything was
// removed.
func (c *Cache) Invalidate(id ir.ID) (bool, error) {
	removed := false
	for _, layout := range c.layouts {
		err := os.Remove(layout(c.root, id))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed = true
	}
	return removed, nil
}

// writeAtomic writes data to path through a temp file in the same
// directory. MkdirAll tolerates concurrent creation of the shard directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
