package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(1)
	defer unsubA()
	defer unsubC()

	b.Publish(Event{Type: TypeMessageSent, Data: "x"})

	ea := <-a
	ec := <-c
	assert.Equal(t, TypeMessageSent, ea.Type)
	assert.Equal(t, "x", ec.Data)
	assert.False(t, ea.Time.IsZero())
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"}) // dropped, buffer full

	e := <-ch
	assert.Equal(t, "a", e.Type)
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %q", e.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()

	_, ok := <-ch
	require.False(t, ok)
	b.Publish(Event{Type: "after"})
}
