package queries

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"modalkb/internal/terms"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func answerFor(name, value string) *Answer {
	sub := terms.NewSubstitution()
	sub.Set(terms.NewVariable(name), terms.NewAtom(value))
	return NewAnswer(sub)
}

func TestStreamSingleWriter(t *testing.T) {
	stream := NewStream(0)
	ch := stream.NewChannel()

	ch.Push(answerFor("X", "a"))
	ch.Push(answerFor("X", "b"))
	ch.Close()

	answers := stream.Collect()
	require.Len(t, answers, 2)
	// per-writer order is preserved
	got, _ := answers[0].Substitution.GetByName("X")
	assert.True(t, got.Equals(terms.NewAtom("a")))
	got, _ = answers[1].Substitution.GetByName("X")
	assert.True(t, got.Equals(terms.NewAtom("b")))

	// reading past EOS keeps returning EOS
	assert.True(t, stream.Read().IsEOS())
}

func TestStreamPushEOSClosesWriter(t *testing.T) {
	stream := NewStream(0)
	ch := stream.NewChannel()
	ch.Push(answerFor("X", "a"))
	ch.Push(EOS())

	answers := stream.Collect()
	assert.Len(t, answers, 1)
}

func TestStreamEmptyResultIsLegitimate(t *testing.T) {
	stream := NewStream(0)
	stream.NewChannel().Close()
	assert.Empty(t, stream.Collect())
}

func TestStreamEOSAfterAllWriters(t *testing.T) {
	stream := NewStream(0)
	first := stream.NewChannel()
	second := stream.NewChannel()

	first.Push(answerFor("X", "a"))
	first.Close()
	// one writer still open: no EOS yet
	a, ok := stream.TryRead()
	require.True(t, ok)
	assert.False(t, a.IsEOS())
	_, ok = stream.TryRead()
	assert.False(t, ok)

	second.Push(answerFor("X", "b"))
	second.Close()

	answers := stream.Collect()
	assert.Len(t, answers, 1)
}

func TestStreamDoubleCloseIsNoop(t *testing.T) {
	stream := NewStream(0)
	ch := stream.NewChannel()
	other := stream.NewChannel()
	ch.Close()
	ch.Close()
	ch.Push(EOS())

	// the second endpoint keeps the stream open despite repeated
	// closes of the first
	_, ok := stream.TryRead()
	assert.False(t, ok)

	other.Close()
	assert.True(t, stream.Read().IsEOS())
}

func TestStreamPushAfterCloseIsDropped(t *testing.T) {
	stream := NewStream(0)
	ch := stream.NewChannel()
	keep := stream.NewChannel()
	ch.Close()
	ch.Push(answerFor("X", "a"))

	_, ok := stream.TryRead()
	assert.False(t, ok)
	keep.Close()
}

func TestStreamConcurrentWriters(t *testing.T) {
	const writers = 8
	const perWriter = 50

	stream := NewStream(4)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		ch := stream.NewChannel()
		wg.Add(1)
		go func(ch *Channel) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				ch.Push(answerFor("X", "a"))
			}
			ch.Close()
		}(ch)
	}

	answers := stream.Collect()
	wg.Wait()
	assert.Len(t, answers, writers*perWriter)
	assert.True(t, stream.Read().IsEOS())
}

func TestStreamFirst(t *testing.T) {
	stream := NewStream(0)
	ch := stream.NewChannel()
	ch.Push(answerFor("X", "a"))
	ch.Close()

	a, ok := stream.First()
	require.True(t, ok)
	assert.NotNil(t, a.Substitution)

	empty := NewStream(0)
	empty.NewChannel().Close()
	_, ok = empty.First()
	assert.False(t, ok)
}
