package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOnlyTheGame(t *testing.T) {
	h := New(4)
	a := h.Subscribe("ABCD")
	b := h.Subscribe("ABCD")
	other := h.Subscribe("WXYZ")
	assert.NotEqual(t, a.ID, b.ID)

	assert.Equal(t, 2, h.Publish("ABCD", []byte("1")))
	assert.Equal(t, []byte("1"), <-a.C)
	assert.Equal(t, []byte("1"), <-b.C)
	assert.Empty(t, other.C)

	assert.Equal(t, 0, h.Publish("NONE", []byte("x")))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := New(4)
	sub := h.Subscribe("ABCD")
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, h.Count("ABCD"))
	assert.Equal(t, 0, h.Publish("ABCD", []byte("1")))
}

func TestSlowSubscriberIsDroppedAlone(t *testing.T) {
	h := New(2)
	slow := h.Subscribe("ABCD")
	fast := h.Subscribe("ABCD")

	for i := 0; i < 3; i++ {
		h.Publish("ABCD", []byte{byte('0' + i)})
		<-fast.C
	}

	require.Equal(t, 1, h.Count("ABCD"))
	var got []string
	for p := range slow.C {
		got = append(got, string(p))
	}
	assert.Equal(t, []string{"0", "1"}, got)

	assert.Equal(t, 1, h.Publish("ABCD", []byte("3")))
	assert.Equal(t, []byte("3"), <-fast.C)
}
