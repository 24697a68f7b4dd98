package digest

import (
	"hash"
	"io"
)

// Writer wraps an io.Writer and hashes everything written through it, so a
// copy and its digest come out of a single pass.
type Writer struct {
	io.Writer
	h     hash.Hash
	count int64
}

// NewWriter returns a Writer forwarding to w. A nil w only hashes.
func NewWriter(w io.Writer) (*Writer, error) {
	h, err := New()
	if err != nil {
		return nil, err
	}
	dw := &Writer{h: h}
	if w == nil {
		dw.Writer = h
	} else {
		dw.Writer = io.MultiWriter(w, h)
	}
	return dw, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)
	w.count += int64(n)
	return n, err
}

// Result returns the digest of what has been written so far.
func (w *Writer) Result() Result {
	return Result{Digest: Encode(w.h.Sum(nil)), Size: w.count}
}
