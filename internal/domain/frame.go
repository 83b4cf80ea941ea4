package domain

import (
	"bytes"
	"sync"
)

// Tokens recognized anywhere in a frame.
const (
	TokenSuccess = "OK"
	TokenFailure = "ERROR"
)

// Outcome is the classification of a received frame.
type Outcome int

const (
	OutcomeInconclusive Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "inconclusive"
	}
}

// Classify searches b for the success and failure tokens.
// The success token takes precedence when both are present.
func Classify(b []byte) Outcome {
	switch {
	case bytes.Contains(b, []byte(TokenSuccess)):
		return OutcomeSuccess
	case bytes.Contains(b, []byte(TokenFailure)):
		return OutcomeFailure
	default:
		return OutcomeInconclusive
	}
}

// framePool recycles frame buffers between the receiver and the controller.
var framePool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 1024)
		return &b
	},
}

// Frame is one buffer of bytes captured from the serial link.
// A Frame is owned by exactly one task at a time and must be released by its
// final owner.
type Frame struct {
	buf *[]byte
}

// NewFrame copies data into a pooled buffer.
func NewFrame(data []byte) *Frame {
	bp := framePool.Get().(*[]byte)
	*bp = append((*bp)[:0], data...)
	return &Frame{buf: bp}
}

// Bytes returns the frame contents. The slice is only valid until Release.
func (f *Frame) Bytes() []byte {
	if f == nil || f.buf == nil {
		return nil
	}
	return *f.buf
}

// Text returns the frame contents as a string.
func (f *Frame) Text() string {
	return string(f.Bytes())
}

// Len returns the number of bytes in the frame.
func (f *Frame) Len() int {
	return len(f.Bytes())
}

// Outcome classifies the frame contents.
func (f *Frame) Outcome() Outcome {
	return Classify(f.Bytes())
}

// Release returns the buffer to the pool. Calling Release more than once is safe.
func (f *Frame) Release() {
	if f == nil || f.buf == nil {
		return
	}
	framePool.Put(f.buf)
	f.buf = nil
}

// Released reports whether Release has been called.
func (f *Frame) Released() bool {
	return f == nil || f.buf == nil
}
