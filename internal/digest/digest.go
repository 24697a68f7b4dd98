// Package digest computes the content digests recorded in packing lists:
// SHA-1 over the raw bytes, rendered as standard base64 text.
package digest

import (
	"crypto"
	_ "crypto/sha1" // registers crypto.SHA1
	"encoding/base64"
	"hash"
	"io"
	"os"

	"imfpack/internal/faults"
)

// ChunkSize is the fixed read size used when streaming a file through the hash.
const ChunkSize = 64 * 1024

// Algorithm is the hash used for every digest in a package.
var Algorithm = crypto.SHA1

// Result is the digest and byte length of one stream.
type Result struct {
	Digest string
	Size   int64
}

// New returns a fresh hash for Algorithm or ErrDigestUnavailable when the
// runtime does not link it.
func New() (hash.Hash, error) {
	if !Algorithm.Available() {
		return nil, faults.Wrap(faults.ErrDigestUnavailable, "digest", Algorithm.String(), "hash not linked into binary", nil)
	}
	return Algorithm.New(), nil
}

// Encode renders a raw hash sum the way packing lists expect it.
func Encode(sum []byte) string {
	return base64.StdEncoding.EncodeToString(sum)
}

func sum(h hash.Hash, r io.Reader) (Result, error) {
	buf := make([]byte, ChunkSize)
	// Hide ReaderFrom so reads stay at ChunkSize.
	n, err := io.CopyBuffer(struct{ io.Writer }{h}, r, buf)
	if err != nil {
		return Result{}, err
	}
	return Result{Digest: Encode(h.Sum(nil)), Size: n}, nil
}

// File digests the file at path without modifying it.
func File(path string) (Result, error) {
	h, err := New()
	if err != nil {
		return Result{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{}, faults.Wrap(faults.ErrIOFailure, "digest", path, "open", err)
	}
	defer f.Close()

	res, err := sum(h, struct{ io.Reader }{f}) // hide WriterTo
	if err != nil {
		return Result{}, faults.Wrap(faults.ErrIOFailure, "digest", path, "read", err)
	}
	return res, nil
}
