package queries

import (
	"sync/atomic"

	"modalkb/internal/logging"
	"modalkb/internal/terms"
)

// Answer is a single solution produced by a backend: a substitution
// over the free variables of the goal, optionally framed with a
// confidence and a time span.
type Answer struct {
	Substitution *terms.Substitution
	Confidence   *float64
	Begin, End   *float64
}

// NewAnswer wraps a substitution as an answer.
func NewAnswer(sub *terms.Substitution) *Answer {
	return &Answer{Substitution: sub}
}

var eosAnswer = &Answer{}

// EOS returns the end-of-stream sentinel. It is a process-wide
// singleton; IsEOS is an identity check.
func EOS() *Answer { return eosAnswer }

// IsEOS reports whether this answer is the end-of-stream sentinel.
func (a *Answer) IsEOS() bool { return a == eosAnswer }

// DefaultBufferSize bounds a stream's in-flight answers before writers
// block.
const DefaultBufferSize = 64

// Stream is a multi-producer, single-consumer queue of answers
// terminated by EOS. Writer endpoints are created with NewChannel;
// when the last writer closes, the consumer observes EOS after all
// prior pushes. Answers pushed by one writer keep their order;
// interleaving across writers is arbitrary.
type Stream struct {
	ch      chan *Answer
	writers atomic.Int32
}

// NewStream creates a stream with the given buffer size; zero or
// negative selects DefaultBufferSize.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Stream{ch: make(chan *Answer, buffer)}
}

// NewChannel opens a writer endpoint. Every endpoint must eventually
// be closed, either by Close or by pushing EOS.
func (s *Stream) NewChannel() *Channel {
	s.writers.Add(1)
	return &Channel{stream: s}
}

// Read blocks until the next answer is available. After the last
// writer closed, Read returns EOS.
func (s *Stream) Read() *Answer {
	a, ok := <-s.ch
	if !ok {
		return EOS()
	}
	return a
}

// TryRead returns the next answer without blocking. The second return
// is false when no answer is currently buffered.
func (s *Stream) TryRead() (*Answer, bool) {
	select {
	case a, ok := <-s.ch:
		if !ok {
			return EOS(), true
		}
		return a, true
	default:
		return nil, false
	}
}

// Collect drains the stream until EOS and returns all answers.
func (s *Stream) Collect() []*Answer {
	var out []*Answer
	for {
		a := s.Read()
		if a.IsEOS() {
			return out
		}
		out = append(out, a)
	}
}

// First returns the first answer, or false if the stream ended empty.
// The remaining answers are left unread.
func (s *Stream) First() (*Answer, bool) {
	a := s.Read()
	if a.IsEOS() {
		return nil, false
	}
	return a, true
}

// Channel is a writer endpoint of a stream. Endpoints may be used from
// different goroutines, but a single endpoint is owned by one writer.
type Channel struct {
	stream *Stream
	closed atomic.Bool
}

// Push publishes an answer. Pushing EOS closes the endpoint. Pushes
// block when the stream buffer is full; pushes on a closed endpoint
// are dropped with a warning.
func (c *Channel) Push(a *Answer) {
	if a.IsEOS() {
		c.Close()
		return
	}
	if c.closed.Load() {
		logging.Warnf("dropping answer pushed on closed channel")
		return
	}
	c.stream.ch <- a
}

// Close ends this writer. When the last writer closes, EOS is
// published to the reader. Closing twice is a no-op.
func (c *Channel) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if c.stream.writers.Add(-1) == 0 {
		close(c.stream.ch)
	}
}
