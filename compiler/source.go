package compiler

import (
	"io"
	"strings"
)

// SourceQueue supplies the lexer with a sequence of input streams to be
// compiled as one continuous unit. The lexer pulls the next stream when
// the current one is exhausted, so later inputs are opened lazily and
// only if compilation gets that far.
//
// Next returns the next stream and the name to report in diagnostics.
// It returns io.EOF once the sequence is exhausted. Any other error
// aborts the whole compilation; implementations should wrap it with the
// name of the input that failed to open. Streams handed out by Next are
// closed by the lexer.
type SourceQueue interface {
	Next() (io.ReadCloser, string, error)
}

// readerQueue is a single-stream SourceQueue.
type readerQueue struct {
	name string
	r    io.ReadCloser
	done bool
}

func (q *readerQueue) Next() (io.ReadCloser, string, error) {
	if q.done {
		return nil, "", io.EOF
	}
	q.done = true
	return q.r, q.name, nil
}

// NewReaderQueue wraps a single stream as a SourceQueue.
func NewReaderQueue(name string, r io.ReadCloser) SourceQueue {
	return &readerQueue{name: name, r: r}
}

// NewStringQueue wraps in-memory source text as a SourceQueue.
// Intended for tests and embedding.
func NewStringQueue(name, src string) SourceQueue {
	return NewReaderQueue(name, io.NopCloser(strings.NewReader(src)))
}
