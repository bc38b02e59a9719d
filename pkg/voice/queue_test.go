package voice

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrack(title string) *Track {
	return NewTrack(TrackInfo{Title: title}, func(context.Context) (string, error) {
		return "stream://" + title, nil
	}, Handlers{})
}

func titles(tracks []*Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue()
	q.Enqueue(testTrack("a"))
	q.Enqueue(testTrack("b"))
	q.Enqueue(testTrack("c"))

	assert.Equal(t, []string{"a", "b", "c"}, titles(q.Tracks()))
	assert.Equal(t, "a", q.pop().Title)
	assert.Equal(t, "b", q.pop().Title)
	assert.Equal(t, "c", q.pop().Title)
	assert.Nil(t, q.pop())
}

func TestQueue_EnqueueFront(t *testing.T) {
	tests := []struct {
		name    string
		initial []string
		want    []string
	}{
		{
			name:    "empty queue becomes singleton",
			initial: nil,
			want:    []string{"x"},
		},
		{
			name:    "single entry is displaced",
			initial: []string{"a"},
			want:    []string{"x", "a"},
		},
		{
			name:    "front entry moves to the back",
			initial: []string{"a", "b", "c"},
			want:    []string{"x", "b", "c", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue()
			for _, title := range tt.initial {
				q.Enqueue(testTrack(title))
			}
			q.EnqueueFront(testTrack("x"))
			assert.Equal(t, tt.want, titles(q.Tracks()))
		})
	}
}

func TestQueue_EnqueueAll(t *testing.T) {
	q := NewQueue()
	q.Enqueue(testTrack("a"))
	q.EnqueueAll([]*Track{testTrack("b"), testTrack("c"), testTrack("d")}, false)

	assert.Equal(t, []string{"a", "b", "c", "d"}, titles(q.Tracks()))
}

func TestQueue_EnqueueAllShuffled(t *testing.T) {
	batch := make([]*Track, 30)
	want := make([]string, 30)
	for i := range batch {
		batch[i] = testTrack(string(rune('a' + i)))
		want[i] = batch[i].Title
	}

	q := NewQueue()
	q.EnqueueAll(batch, true)

	got := titles(q.Tracks())
	require.Len(t, got, len(want))
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got, "shuffle must preserve the track set")
}

func TestQueue_ShufflePreservesTracks(t *testing.T) {
	q := NewQueue()
	want := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, title := range want {
		q.Enqueue(testTrack(title))
	}

	q.Shuffle()

	got := titles(q.Tracks())
	require.Len(t, got, len(want))
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue()
	q.Enqueue(testTrack("a"))
	q.Enqueue(testTrack("b"))
	q.Enqueue(testTrack("c"))

	removed := q.Remove(1)
	require.NotNil(t, removed)
	assert.Equal(t, "b", removed.Title)
	assert.Equal(t, []string{"a", "c"}, titles(q.Tracks()))

	assert.Nil(t, q.Remove(-1))
	assert.Nil(t, q.Remove(2))
	assert.Equal(t, 2, q.Len())
}

func TestQueue_Swap(t *testing.T) {
	q := NewQueue()
	q.Enqueue(testTrack("a"))
	q.Enqueue(testTrack("b"))
	q.Enqueue(testTrack("c"))

	q.Swap(0, 2)
	assert.Equal(t, []string{"c", "b", "a"}, titles(q.Tracks()))

	// Out-of-range indices are ignored.
	q.Swap(-1, 1)
	q.Swap(0, 3)
	assert.Equal(t, []string{"c", "b", "a"}, titles(q.Tracks()))
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue()
	q.Enqueue(testTrack("a"))
	q.Enqueue(testTrack("b"))

	q.Clear()

	assert.Zero(t, q.Len())
	assert.Nil(t, q.pop())
}

func TestQueue_Peek(t *testing.T) {
	q := NewQueue()
	assert.Nil(t, q.Peek())

	q.Enqueue(testTrack("a"))
	q.Enqueue(testTrack("b"))

	require.NotNil(t, q.Peek())
	assert.Equal(t, "a", q.Peek().Title)
	assert.Equal(t, 2, q.Len(), "peek must not remove")
}
