// Package pool provides pooled transfer buffers for response body
// aggregation. Bodies are drained through a shared pool of fixed-size
// chunks so concurrent requests do not each allocate their own copy
// buffer.
package pool

import (
	"bytes"
	"io"
	"sync"
)

// transferSize is the chunk size for draining response bodies. One
// chunk covers typical HTML/API payloads in a few passes without
// holding large slices alive between requests.
const transferSize = 32 * 1024

var transferBuffers = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, transferSize)
		return &buf
	},
}

// CopyBody drains src into dst through a pooled transfer buffer and
// returns the number of bytes copied. Both src and dst are wrapped so
// io.CopyBuffer cannot bypass the pooled buffer via a WriterTo or
// ReaderFrom fast path.
func CopyBody(dst io.Writer, src io.Reader) (int64, error) {
	bufPtr := transferBuffers.Get().(*[]byte)
	defer transferBuffers.Put(bufPtr)
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, *bufPtr)
}

// Aggregate reads src to completion and returns the accumulated bytes.
// The returned slice is freshly allocated; only the transfer chunk is
// pooled.
func Aggregate(src io.Reader) ([]byte, error) {
	var body bytes.Buffer
	if _, err := CopyBody(&body, src); err != nil {
		return nil, err
	}
	return body.Bytes(), nil
}
