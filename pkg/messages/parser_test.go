package messages

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonekit/tonekit/pkg/models"
)

func TestParseRow(t *testing.T) {
	msg, err := ParseRow(7, "2024-03-01 12:00:05", "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.ChatroomID)
	assert.Equal(t, base.Add(5e9), msg.Timestamp)
	assert.Equal(t, "2024-03-01 12:00:05", msg.FormattedTimestamp())

	_, err = ParseRow(7, "2024/03/01 12:00", "alice", "hello")
	assert.ErrorIs(t, err, models.ErrParse)
}

func TestParseInline(t *testing.T) {
	raw := "2024-03-01 12:00:00,alice,hi\n2024-03-01 12:00:03,bob,\"hey, you\"\n"

	msgs, err := ParseInline(raw)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "bob", msgs[1].Sender)
	assert.Equal(t, "hey, you", msgs[1].Content)
	assert.Equal(t, DefaultChatroomID, msgs[1].ChatroomID)

	msgs, err = ParseInline("")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	_, err = ParseInline("2024-03-01 12:00:00,alice,hi\nnot a timestamp,bob,hey")
	assert.ErrorIs(t, err, models.ErrFormat)

	_, err = ParseInline("2024-03-01 12:00:00,alice")
	assert.ErrorIs(t, err, models.ErrFormat)
}

func TestExtractBySender(t *testing.T) {
	faker := gofakeit.New(7)
	var sb strings.Builder
	var expected []string
	for i := 0; i < 50; i++ {
		sender := "bob"
		if faker.Bool() {
			sender = "alice"
		}
		content := faker.Sentence(5)
		if sender == "alice" {
			expected = append(expected, content)
		}
		fmt.Fprintf(&sb, "2024-03-01 12:%02d:00,%s,%s\n", i, sender, content)
	}

	msgs, err := ExtractBySender(
		strings.NewReader(sb.String()),
		"KakaoTalk_Chat_4242_2024-03-01.csv",
		"alice",
	)
	require.NoError(t, err)
	require.Len(t, msgs, len(expected))
	for i, m := range msgs {
		assert.Equal(t, "alice", m.Sender)
		assert.Equal(t, int64(4242), m.ChatroomID)
		assert.Equal(t, expected[i], m.Content)
	}
}

func TestExtractBySenderErrors(t *testing.T) {
	_, err := ExtractBySender(strings.NewReader(""), "chat.csv", "alice")
	assert.ErrorIs(t, err, models.ErrFormat)

	_, err = ExtractBySender(strings.NewReader(""), "KakaoTalk_Chat_room_x.csv", "alice")
	assert.ErrorIs(t, err, models.ErrFormat)

	_, err = ExtractBySender(iotest.ErrReader(errors.New("disk gone")), "KakaoTalk_Chat_1_x.csv", "alice")
	assert.ErrorIs(t, err, models.ErrFormat)
}

func TestExtractBySenderSkipsBadRows(t *testing.T) {
	raw := strings.Join([]string{
		"2024-01-01 10:00:00,alice,hi",
		"2024/01/01 10:00:05,alice,bad ts",
		"2024-01-01 10:00:07,alice",
		"2024-01-01 10:00:08,bob,a,b",
		"2024-01-01 10:00:09,alice,there",
	}, "\n")

	msgs, err := ExtractBySender(strings.NewReader(raw), "KakaoTalk_Chat_9_2024.csv", "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "there", msgs[1].Content)
	assert.Equal(t, int64(9), msgs[1].ChatroomID)
}
