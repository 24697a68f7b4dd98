// Package fileutil copies essence files into a package directory.
package fileutil

import (
	"fmt"
	"io"
	"os"

	"imfpack/internal/digest"
)

// CopyFile streams src to dst with default permissions (0o644), replacing
// any existing dst. It returns the digest and length of the bytes written.
func CopyFile(src, dst string) (digest.Result, error) {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on a newly
// created dst. The copied length must match the source size observed before
// the copy; on mismatch dst is removed.
func CopyFileMode(src, dst string, mode os.FileMode) (digest.Result, error) {
	in, err := os.Open(src)
	if err != nil {
		return digest.Result{}, err
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return digest.Result{}, fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return digest.Result{}, err
	}
	defer func() {
		_ = out.Close()
	}()

	w, err := digest.NewWriter(out)
	if err != nil {
		return digest.Result{}, err
	}
	buf := make([]byte, digest.ChunkSize)
	if _, err := io.CopyBuffer(w, struct{ io.Reader }{in}, buf); err != nil {
		return digest.Result{}, err
	}
	if err := out.Close(); err != nil {
		return digest.Result{}, err
	}

	res := w.Result()
	if res.Size != srcInfo.Size() {
		_ = os.Remove(dst)
		return digest.Result{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), res.Size)
	}
	return res, nil
}
