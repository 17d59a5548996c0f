package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiFansOutInOrder(t *testing.T) {
	var seen []string
	first := Func(func(e Event) { seen = append(seen, "first:"+e.Message) })
	second := Func(func(e Event) { seen = append(seen, "second:"+e.Message) })

	r := Multi(first, nil, second)
	r.Report(Event{Message: "hello"})

	assert.Equal(t, []string{"first:hello", "second:hello"}, seen)
}

func TestRecorderQueries(t *testing.T) {
	rec := &Recorder{}
	rec.Report(Event{Message: "Fetched 100 / 250 users...", Phase: PhaseEnumerate, Current: 100, Total: 250})
	rec.Report(Event{Message: "[1/2] Processing user: a", Phase: PhaseMutate, Current: 1, Total: 2})
	rec.Report(Event{Message: "Failed to change visibility", Phase: PhaseMutate, IsError: true})

	assert.Len(t, rec.Events(), 3)
	assert.Len(t, rec.ByPhase(PhaseMutate), 2)
	assert.Len(t, rec.Errors(), 1)
	assert.True(t, rec.Contains("Processing user: a"))
	assert.False(t, rec.Contains("nothing like this"))
	assert.Equal(t, "Fetched 100 / 250 users...", rec.Messages()[0])
}

func TestOrDiscard(t *testing.T) {
	assert.Equal(t, Discard, OrDiscard(nil))

	rec := &Recorder{}
	assert.Same(t, rec, OrDiscard(rec))
	assert.NotPanics(t, func() { Discard.Report(Event{Message: "x"}) })
}
