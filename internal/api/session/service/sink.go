package sessionService

import (
	"sync"

	"AccessAI/internal/mode"
)

const maxBufferedDirectives = 512

// bufferSink holds directives for REST clients until their next call.
type bufferSink struct {
	mu         sync.Mutex
	directives []mode.Directive
	dropped    int
}

func (b *bufferSink) Emit(d mode.Directive) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.directives) >= maxBufferedDirectives {
		b.directives = b.directives[1:]
		b.dropped++
	}
	b.directives = append(b.directives, d)
}

// Drain returns everything buffered so far and how many older directives were
// discarded to make room.
func (b *bufferSink) Drain() ([]mode.Directive, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.directives
	dropped := b.dropped
	b.directives = nil
	b.dropped = 0
	if out == nil {
		out = []mode.Directive{}
	}
	return out, dropped
}
