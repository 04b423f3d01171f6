package platform

import (
	"errors"
	"io"
	"sync"
)

// ChunkSize is the fixed read/write unit for streamed copies.
const ChunkSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

// StreamResult reports the outcome of a streamed copy.
type StreamResult struct {
	BytesWritten int64
	Chunks       int
}

// Stream copies src to dst one ChunkSize chunk at a time using a pooled
// buffer. Chunks are written in source order; only the final chunk may be
// short. On error the result holds what was written before the failure.
func Stream(dst io.Writer, src io.Reader) (StreamResult, error) {
	bufp := bufPool.Get().(*[]byte) //nolint:forcetypeassert // pool only holds *[]byte
	defer bufPool.Put(bufp)
	buf := *bufp

	var res StreamResult
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			res.BytesWritten += int64(w)
			if werr != nil {
				return res, werr
			}
			if w != n {
				return res, io.ErrShortWrite
			}
			res.Chunks++
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return res, nil
		default:
			return res, err
		}
	}
}
