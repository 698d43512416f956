package response

import (
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// ThinkEndMarker terminates a model's leading reasoning block. Some models
// omit the opening tag, so only the closing one is looked for.
const ThinkEndMarker = "</think>"

// StreamState is the StreamFilter state.
type StreamState int

// Stream filter states.
const (
	// StateBuffering holds output until the end marker or end of stream.
	StateBuffering StreamState = iota

	// StateNormal passes output through unchanged.
	StateNormal
)

func (s StreamState) String() string {
	if s == StateNormal {
		return "normal"
	}
	return "buffering"
}

// StreamFilter removes a leading reasoning block from streamed model output.
//
// Output is held until the first ThinkEndMarker arrives; everything up to
// and including it is dropped and the rest passes through byte for byte. If
// the stream ends without a marker, Flush releases the held text unchanged.
// A StreamFilter serves one model request and is not safe for concurrent use.
type StreamFilter struct {
	state      StreamState
	buf        strings.Builder
	maxBuffer  int
	onOverflow func(buffered int)
}

// StreamOption configures a StreamFilter.
type StreamOption func(*StreamFilter)

// WithMaxBuffer caps the bytes held while buffering. When the cap is
// exceeded the held text is released as normal output and the filter stops
// looking for the marker. Zero or negative disables the cap.
func WithMaxBuffer(n int) StreamOption {
	return func(f *StreamFilter) {
		f.maxBuffer = n
	}
}

// WithOverflowHook registers a callback run when the buffer cap is hit.
func WithOverflowHook(fn func(buffered int)) StreamOption {
	return func(f *StreamFilter) {
		f.onOverflow = fn
	}
}

// NewStreamFilter creates a filter in the buffering state.
func NewStreamFilter(opts ...StreamOption) *StreamFilter {
	f := &StreamFilter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *StreamFilter) State() StreamState {
	return f.state
}

// Buffered returns the number of bytes currently held.
func (f *StreamFilter) Buffered() int {
	return f.buf.Len()
}

// Push feeds one chunk and returns the text that may be shown now.
func (f *StreamFilter) Push(chunk string) string {
	if f.state == StateNormal {
		return chunk
	}

	f.buf.WriteString(chunk)
	held := f.buf.String()

	if idx := strings.Index(held, ThinkEndMarker); idx >= 0 {
		f.buf.Reset()
		f.state = StateNormal
		return held[idx+len(ThinkEndMarker):]
	}

	if f.maxBuffer > 0 && len(held) > f.maxBuffer {
		logger.Warn("stream filter: no %s within %d bytes, releasing buffered output", ThinkEndMarker, f.maxBuffer)
		if f.onOverflow != nil {
			f.onOverflow(len(held))
		}
		f.buf.Reset()
		f.state = StateNormal
		return held
	}

	return ""
}

// Flush ends the stream. In the buffering state the held text had no
// reasoning block and is returned whole; otherwise it returns "".
func (f *StreamFilter) Flush() string {
	if f.state != StateBuffering {
		return ""
	}
	held := f.buf.String()
	f.buf.Reset()
	return held
}

// Discard drops any held text, for cancelled streams.
func (f *StreamFilter) Discard() {
	f.buf.Reset()
}

// Reset returns the filter to its initial state for a new model request.
func (f *StreamFilter) Reset() {
	f.buf.Reset()
	f.state = StateBuffering
}
