package executor

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
)

// cappedBuffer keeps at most limit bytes and silently drops the rest.
// Write never fails, so the child never sees a broken pipe.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func newCappedBuffer(limit int64) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - int64(b.buf.Len())
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if int64(len(p)) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

// Truncated reports whether any output was dropped.
func (b *cappedBuffer) Truncated() bool {
	return b.truncated
}

// String returns the captured output, with a marker appended if truncated.
func (b *cappedBuffer) String() string {
	if !b.truncated {
		return b.buf.String()
	}
	return b.buf.String() + fmt.Sprintf("\n[output truncated at %s]\n", humanize.IBytes(uint64(b.limit))) // #nosec G115 - limit is positive
}

// lockedWriter serialises writes from concurrent jobs.
type lockedWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// prefixWriter forwards complete lines to w, each prefixed.
// A partial trailing line is held until the next newline or Flush.
type prefixWriter struct {
	w       io.Writer
	prefix  []byte
	pending []byte
}

func newPrefixWriter(w io.Writer, prefix string) *prefixWriter {
	return &prefixWriter{w: w, prefix: []byte(prefix)}
}

func (p *prefixWriter) Write(data []byte) (int, error) {
	p.pending = append(p.pending, data...)
	var out []byte
	for {
		i := bytes.IndexByte(p.pending, '\n')
		if i < 0 {
			break
		}
		out = append(out, p.prefix...)
		out = append(out, p.pending[:i+1]...)
		p.pending = p.pending[i+1:]
	}
	if len(out) > 0 {
		// Live output is best effort; capture continues even if it fails.
		_, _ = p.w.Write(out)
	}
	return len(data), nil
}

// Flush writes any partial line with a trailing newline.
func (p *prefixWriter) Flush() {
	if len(p.pending) == 0 {
		return
	}
	line := append(append([]byte{}, p.prefix...), p.pending...)
	line = append(line, '\n')
	_, _ = p.w.Write(line)
	p.pending = nil
}
