package util

import (
	"context"
	"io"
	"sync"
)

// CopyBufSize is the chunk size CopyStream reads and writes.
const CopyBufSize = 32 * 1024

// copyBufs recycles CopyStream buffers across result pages.
var copyBufs = sync.Pool{
	New: func() any {
		b := make([]byte, CopyBufSize)
		return &b
	},
}

// CopyStream copies r to w through a pooled buffer until r reaches EOF,
// a write fails or ctx is cancelled.  Cancellation is checked between
// chunks, so a blocked Read is only interrupted if r itself honours the
// context (as HTTP response bodies do).
func CopyStream(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	bufp := copyBufs.Get().(*[]byte)
	defer copyBufs.Put(bufp)
	buf := *bufp

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := r.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
