// Package fingerprint computes the content digests embedded into
// cache-busting asset URLs.
//
// A Computer always produces the full hexadecimal digest. Truncation to the
// configured stamp length happens at the embedding site through Stamp, so the
// stamp can be lengthened without changing how digests are computed.
package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Algorithm names a supported digest function.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
	CRC32  Algorithm = "crc32"
)

// settleWindow is how long after its last modification a file's digest
// becomes cacheable. A file rewritten within one mtime tick with the same
// size would otherwise keep its old cache key.
const settleWindow = 2 * time.Second

// Computer produces hex digests of byte content.
type Computer struct {
	algorithm Algorithm
	newHash   func() hash.Hash
	cache     *DigestCache
}

// New returns a Computer for the named algorithm.
func New(algorithm string) (*Computer, error) {
	alg := Algorithm(strings.ToLower(algorithm))

	var newHash func() hash.Hash
	switch alg {
	case MD5, "":
		alg = MD5
		newHash = md5.New
	case SHA256:
		newHash = sha256.New
	case CRC32:
		table := crc32.MakeTable(crc32.Castagnoli)
		newHash = func() hash.Hash { return crc32.New(table) }
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}

	return &Computer{algorithm: alg, newHash: newHash}, nil
}

// Algorithm reports which digest function c uses.
func (c *Computer) Algorithm() Algorithm {
	return c.algorithm
}

// WithCache returns a copy of c that consults cache in FileDigest.
func (c *Computer) WithCache(cache *DigestCache) *Computer {
	cp := *c
	cp.cache = cache

	return &cp
}

// Digest returns the full hex digest of b.
func (c *Computer) Digest(b []byte) string {
	h := c.newHash()
	h.Write(b)

	return hex.EncodeToString(h.Sum(nil))
}

// FileDigest reads path from fsys and returns the digest of its content.
// A missing file yields an error satisfying errors.Is(err, fs.ErrNotExist).
// With a cache attached, a file whose size and modification time are
// unchanged since its last digest is not read again. Files modified within
// the last couple of seconds are always read.
func (c *Computer) FileDigest(fsys afero.Fs, path string) (string, error) {
	if c.cache == nil {
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return "", err
		}

		return c.Digest(data), nil
	}

	info, err := fsys.Stat(path)
	if err != nil {
		return "", err
	}
	key := cacheKey(c.algorithm, path, info.Size(), info.ModTime())
	if digest, ok := c.cache.Get(key); ok {
		return digest, nil
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", err
	}
	digest := c.Digest(data)
	if time.Since(info.ModTime()) >= settleWindow {
		c.cache.Set(key, digest)
	}

	return digest, nil
}

// Stamp truncates digest to n characters. Non-positive n or n past the end of
// the digest returns the digest unchanged.
func Stamp(digest string, n int) string {
	if n <= 0 || n >= len(digest) {
		return digest
	}

	return digest[:n]
}
