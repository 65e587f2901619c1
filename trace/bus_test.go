package trace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(b *Bus) []Event {
	var events []Event
	for event := range b.Subscribe() {
		events = append(events, event)
	}
	return events
}

func TestBus_OrderedDelivery(t *testing.T) {
	b := NewBus()

	b.Start("retrieval", "searching")
	b.Progress("retrieval", "halfway")
	b.Token("hello")
	b.Token(" world")
	b.StreamEnd()
	b.Close()

	events := collect(b)
	require.Len(t, events, 5)
	assert.Equal(t, KindStart, events[0].Kind())
	assert.Equal(t, KindProgress, events[1].Kind())
	assert.Equal(t, "hello", events[2].(Token).Text)
	assert.Equal(t, " world", events[3].(Token).Text)
	assert.Equal(t, KindStreamEnd, events[4].Kind())
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	b := NewBus()
	b.Token("x")
	b.Close()
	b.Close()
	b.Close()

	assert.True(t, b.Closed())
	events := collect(b)
	assert.Len(t, events, 1)
}

func TestBus_EmitAfterCloseIsDiscarded(t *testing.T) {
	b := NewBus()
	b.Start("knowledge", "asking")
	b.Close()
	b.Token("late")

	events := collect(b)
	require.Len(t, events, 1)
	assert.Equal(t, KindStart, events[0].Kind())
	assert.Len(t, b.Trace(), 1)
}

func TestBus_TraceRetainedAfterDrain(t *testing.T) {
	b := NewBus()
	b.Start("websearch", "go")
	b.Error("websearch", "boom")
	b.Close()

	// Drain the live stream first.
	collect(b)

	tr := b.Trace()
	require.Len(t, tr, 2)
	assert.Equal(t, KindStart, tr[0].Kind())
	assert.Equal(t, KindError, tr[1].Kind())
}

func TestBus_DropOnFullBufferNeverBlocks(t *testing.T) {
	b := NewBus(WithBufferSize(2))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Token("t")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on full buffer")
	}

	assert.Equal(t, 8, b.Dropped())
	// The durable trace log keeps everything.
	assert.Len(t, b.Trace(), 10)
}

func TestBus_ConcurrentEmit(t *testing.T) {
	b := NewBus()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Progress("agent", "tick")
			}
		}()
	}
	wg.Wait()
	b.Close()

	assert.Len(t, b.Trace(), 400)
	assert.Len(t, collect(b), 400)
}

func TestBus_SubscriberSeesEventsEmittedWhileConsuming(t *testing.T) {
	b := NewBus()

	go func() {
		for i := 0; i < 5; i++ {
			b.Token("t")
			time.Sleep(time.Millisecond)
		}
		b.StreamEnd()
		b.Close()
	}()

	events := collect(b)
	assert.Len(t, events, 6)
	assert.Equal(t, KindStreamEnd, events[len(events)-1].Kind())
}

func TestMarshalTrace_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	events := []Event{
		Start{Agent: "retrieval", Note: "searching", At: now},
		Result{Agent: "retrieval", Note: "found", Count: 3, BestDistance: 0.31, Sufficient: true, At: now},
		Token{Text: "answer", At: now},
		StreamEnd{At: now},
		PlanStep{Note: "classified", Intent: "question", At: now},
	}

	data, err := MarshalTrace(events)
	require.NoError(t, err)

	decoded, err := UnmarshalTrace(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(events))

	for i, event := range decoded {
		assert.Equal(t, events[i].Kind(), event.Kind())
	}
	result := decoded[1].(Result)
	assert.Equal(t, 3, result.Count)
	assert.InDelta(t, 0.31, result.BestDistance, 1e-9)
	assert.True(t, result.Sufficient)
}

func TestUnmarshalTrace_UnknownKind(t *testing.T) {
	_, err := UnmarshalTrace([]byte(`[{"kind":"mystery","event":{}}]`))
	assert.ErrorIs(t, err, ErrUnknownEventKind)
}
