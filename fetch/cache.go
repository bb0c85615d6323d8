package fetch

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/database64128/rulesets-go/atomicfile"
	"github.com/database64128/rulesets-go/mmap"
	"lukechampine.com/blake3"
)

// cacheMeta is stored next to each cached body.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"lastModified,omitempty"`
	Hash         string    `json:"blake3"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

var errCacheCorrupted = errors.New("cached body does not match its hash")

// diskCache stores response bodies under dir, keyed by the hash of the primary URL.
// The zero value is a disabled cache.
type diskCache struct {
	dir string
}

func (c diskCache) key(url string) string {
	sum := blake3.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}

func (c diskCache) bodyPath(key string) string {
	return filepath.Join(c.dir, key+".body")
}

func (c diskCache) metaPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c diskCache) loadMeta(key string) (meta cacheMeta, ok bool) {
	if c.dir == "" {
		return meta, false
	}
	data, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return meta, false
	}
	if err = json.Unmarshal(data, &meta); err != nil || meta.Hash == "" {
		return meta, false
	}
	return meta, true
}

func (c diskCache) loadBody(key string, meta *cacheMeta, origin Origin) (*Body, error) {
	data, close, err := mmap.ReadFile[string](c.bodyPath(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read cached body: %w", err)
	}

	body := newBody(data, origin, close)
	if hex.EncodeToString(body.Hash[:]) != meta.Hash {
		_ = body.Close()
		return nil, errCacheCorrupted
	}
	return body, nil
}

// store writes the body before the metadata, so that metadata never refers to a missing body.
func (c diskCache) store(key string, meta *cacheMeta, data []byte, hash [32]byte) error {
	if c.dir == "" {
		return nil
	}

	meta.Hash = hex.EncodeToString(hash[:])

	if err := atomicfile.WriteFileBytes(c.bodyPath(key), data, 0o644); err != nil {
		return err
	}

	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return atomicfile.WriteFileBytes(c.metaPath(key), b, 0o644)
}

// hashString returns the BLAKE3-256 hash of s.
func hashString(s string) [32]byte {
	return blake3.Sum256(unsafe.Slice(unsafe.StringData(s), len(s)))
}
