package style

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonekit/tonekit/pkg/models"
	"github.com/tonekit/tonekit/pkg/testutils"
)

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func TestConvert(t *testing.T) {
	generator := &testutils.FakeGenerator{
		Response: `{"즐거운": "오늘 회의 없어요~", "가벼운": "오늘 회의 없어요ㅋㅋ", "딱딱한": "오늘 회의는 없습니다."}`,
	}
	converter, err := NewConverter(generator, 0)
	require.NoError(t, err)

	history := []models.Message{
		{
			ChatroomID: 1,
			Timestamp:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			Sender:     "bob",
			Content:    "회의 있어요?",
		},
	}
	similar := []string{"오늘 점심 없어요~", "내일 출근 안 해요ㅋㅋ"}

	result, err := converter.Convert(context.Background(), "오늘 회의는 없어요", similar, history)
	require.NoError(t, err)
	assert.Len(t, result, 3)
	assert.Equal(t, "오늘 회의는 없습니다.", result["딱딱한"])

	instructions, input := generator.LastPrompt()
	assert.Equal(t, styleInstructions, instructions)
	assert.Contains(t, input, "2024-01-01 09:00:00 | bob: 회의 있어요?")
	assert.Contains(t, input, "주어진 문장:\n오늘 회의는 없어요\n")
	assert.Contains(t, input, "오늘 점심 없어요~\n\n내일 출근 안 해요ㅋㅋ")
	assert.True(t, strings.HasSuffix(input, "\n"))
}

func TestConvertEmptyInputs(t *testing.T) {
	generator := &testutils.FakeGenerator{Response: `{"평범한": "안녕"}`}
	converter, err := NewConverter(generator, 0)
	require.NoError(t, err)

	result, err := converter.Convert(context.Background(), "안녕하세요", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StyleResult{"평범한": "안녕"}, result)

	_, input := generator.LastPrompt()
	assert.Contains(t, input, "이전 대화 문맥:\n\n")
}

func TestConvertResponseFormats(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     models.StyleResult
		wantErr  bool
	}{
		{
			name:     "plain object",
			response: `{"a": "b"}`,
			want:     models.StyleResult{"a": "b"},
		},
		{
			name:     "json fence",
			response: "```json\n{\"a\": \"b\"}\n```",
			want:     models.StyleResult{"a": "b"},
		},
		{
			name:     "bare fence with whitespace",
			response: "  ```\n{\"a\": \"b\"}\n```\n",
			want:     models.StyleResult{"a": "b"},
		},
		{name: "not json", response: "sorry, I cannot help", wantErr: true},
		{name: "null", response: "null", wantErr: true},
		{name: "array", response: `["a"]`, wantErr: true},
		{name: "non-string value", response: `{"a": 1}`, wantErr: true},
		{name: "trailing data", response: `{"a": "b"} {"c": "d"}`, wantErr: true},
		{name: "trailing brace", response: `{"a": "b"}}`, wantErr: true},
		{name: "trailing bracket", response: `{"a": "b"}]`, wantErr: true},
		{name: "trailing whitespace", response: "{\"a\": \"b\"}\n\n", want: models.StyleResult{"a": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			converter, err := NewConverter(&testutils.FakeGenerator{Response: tt.response}, 0)
			require.NoError(t, err)

			result, err := converter.Convert(context.Background(), "target", nil, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrResponseFormat)

				var rfe *models.ResponseFormatError
				require.ErrorAs(t, err, &rfe)
				assert.Equal(t, tt.response, rfe.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestConvertGenerationError(t *testing.T) {
	generator := &testutils.FakeGenerator{Err: errors.New("upstream unavailable")}
	converter, err := NewConverter(generator, 0)
	require.NoError(t, err)

	_, err = converter.Convert(context.Background(), "target", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGeneration)
	assert.NotErrorIs(t, err, models.ErrResponseFormat)
}

func TestFitSimilar(t *testing.T) {
	similar := []string{"one two three", "four five", "six seven eight nine"}

	tests := []struct {
		name   string
		budget int
		want   []string
	}{
		{name: "no budget", budget: 0, want: similar},
		{name: "everything fits", budget: 100, want: similar},
		{name: "exact fit", budget: 5, want: similar[:2]},
		{name: "drop tail", budget: 7, want: similar[:2]},
		{name: "nothing fits", budget: 2, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			converter := &Converter{maxSimilarTokens: tt.budget, countTokens: wordCount}
			assert.Equal(t, tt.want, converter.fitSimilar(similar))
		})
	}
}
