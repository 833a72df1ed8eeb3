package messages

import (
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonekit/tonekit/pkg/models"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func msgAt(offset time.Duration, sender, content string) models.Message {
	return models.Message{
		ChatroomID: 1,
		Timestamp:  base.Add(offset),
		Sender:     sender,
		Content:    content,
	}
}

func TestMergeAdjacent(t *testing.T) {
	msgs := []models.Message{
		msgAt(0, "alice", "hi"),
		msgAt(5*time.Second, "alice", "there"),
		// 9s after the advanced timestamp, 14s after the first message
		msgAt(14*time.Second, "alice", "friend"),
		msgAt(30*time.Second, "alice", "later"),
		msgAt(40*time.Second, "alice", "exactly ten"),
	}

	out := MergeAdjacent(msgs, DefaultMergeGap)

	require.Len(t, out, len(msgs)+1)
	assert.Equal(t, msgs, out[:len(msgs)])

	merged := out[len(msgs)]
	assert.Equal(t, "hi\nthere\nfriend", merged.Content)
	assert.Equal(t, base.Add(14*time.Second), merged.Timestamp)
	assert.Equal(t, "alice", merged.Sender)

	// inputs are never modified
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestMergeAdjacentTrailingGroup(t *testing.T) {
	msgs := []models.Message{
		msgAt(0, "alice", "one"),
		msgAt(20*time.Second, "alice", "two"),
		msgAt(21*time.Second, "alice", "three"),
	}

	out := MergeAdjacent(msgs, DefaultMergeGap)

	require.Len(t, out, 4)
	assert.Equal(t, "two\nthree", out[3].Content)
}

func TestMergeAdjacentSenderChangeBreaksGroup(t *testing.T) {
	msgs := []models.Message{
		msgAt(0, "alice", "a"),
		msgAt(time.Second, "bob", "b"),
		msgAt(2*time.Second, "bob", "c"),
	}

	out := MergeAdjacent(msgs, DefaultMergeGap)

	require.Len(t, out, 4)
	assert.Equal(t, "b\nc", out[3].Content)
	assert.Equal(t, "bob", out[3].Sender)
}

func TestMergeAdjacentInterleavedSenders(t *testing.T) {
	msgs := []models.Message{
		msgAt(0, "alice", "a"),
		msgAt(time.Second, "bob", "b"),
		msgAt(2*time.Second, "alice", "c"),
	}

	out := MergeAdjacent(msgs, DefaultMergeGap)

	assert.Equal(t, msgs, out)
}

func TestMergeAdjacentEmpty(t *testing.T) {
	assert.Empty(t, MergeAdjacent(nil, DefaultMergeGap))
}

// Output length is originals plus one record per group of size > 1, and merged
// content is its constituents joined by newlines.
func TestMergeAdjacentLengthLaw(t *testing.T) {
	faker := gofakeit.New(42)

	for run := 0; run < 20; run++ {
		n := faker.Number(1, 60)
		msgs := make([]models.Message, n)
		offset := time.Duration(0)
		for i := range msgs {
			offset += time.Duration(faker.Number(0, 20)) * time.Second
			msgs[i] = msgAt(offset, "alice", faker.Sentence(4))
		}

		var groups [][]string
		current := []string{msgs[0].Content}
		last := msgs[0].Timestamp
		for _, m := range msgs[1:] {
			if m.Timestamp.Sub(last) < DefaultMergeGap {
				current = append(current, m.Content)
			} else {
				groups = append(groups, current)
				current = []string{m.Content}
			}
			last = m.Timestamp
		}
		groups = append(groups, current)

		var expected []string
		for _, g := range groups {
			if len(g) > 1 {
				expected = append(expected, strings.Join(g, "\n"))
			}
		}

		out := MergeAdjacent(msgs, DefaultMergeGap)
		require.Len(t, out, n+len(expected))
		for i, content := range expected {
			assert.Equal(t, content, out[n+i].Content)
		}
	}
}
