package messages

import (
	"strings"
	"time"

	"github.com/tonekit/tonekit/pkg/models"
)

// DefaultMergeGap is the window within which consecutive messages are merged.
const DefaultMergeGap = 10 * time.Second

// MergeAdjacent returns every input message followed by one merged message for
// each run of two or more consecutive messages from the same sender whose
// timestamps are strictly less than gap apart. The gap is measured from the
// latest timestamp in the run. Merged content is joined with newlines and the
// merged timestamp is that of the last message in the run.
//
// A message from a different sender always ends the run, so A, B, A sent
// within the gap produces no merged message.
func MergeAdjacent(msgs []models.Message, gap time.Duration) []models.Message {
	if gap <= 0 {
		gap = DefaultMergeGap
	}

	out := make([]models.Message, 0, len(msgs))
	out = append(out, msgs...)

	var g group
	for _, msg := range msgs {
		if g.size > 0 && g.accepts(msg, gap) {
			g.add(msg)
			continue
		}
		if merged, ok := g.flush(); ok {
			out = append(out, merged)
		}
		g.start(msg)
	}
	if merged, ok := g.flush(); ok {
		out = append(out, merged)
	}

	return out
}

type group struct {
	head    models.Message
	content strings.Builder
	size    int
}

func (g *group) start(msg models.Message) {
	g.head = msg
	g.content.Reset()
	g.content.WriteString(msg.Content)
	g.size = 1
}

func (g *group) accepts(msg models.Message, gap time.Duration) bool {
	return msg.Sender == g.head.Sender && msg.Timestamp.Sub(g.head.Timestamp) < gap
}

func (g *group) add(msg models.Message) {
	g.content.WriteString("\n")
	g.content.WriteString(msg.Content)
	g.head.Timestamp = msg.Timestamp
	g.size++
}

// flush returns the merged message when the group combined more than one message.
func (g *group) flush() (models.Message, bool) {
	defer func() { g.size = 0 }()
	if g.size < 2 {
		return models.Message{}, false
	}
	merged := g.head
	merged.Content = g.content.String()
	return merged, true
}
