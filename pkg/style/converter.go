package style

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/tonekit/tonekit/internal"
	"github.com/tonekit/tonekit/pkg/models"
)

var log = internal.GetLogger()

var _ models.StyleConverter = &Converter{}

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?\\s*```$")

// Converter rewrites a sentence in the style of a user's similar past utterances.
type Converter struct {
	generator        models.Generator
	maxSimilarTokens int
	countTokens      func(string) int
}

// NewConverter returns a Converter. When maxSimilarTokens is positive the similar
// utterances are trimmed from the tail until they fit that many cl100k tokens.
func NewConverter(generator models.Generator, maxSimilarTokens int) (*Converter, error) {
	c := &Converter{generator: generator, maxSimilarTokens: maxSimilarTokens}
	if maxSimilarTokens > 0 {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
		c.countTokens = func(text string) int {
			return len(tkm.Encode(text, nil, nil))
		}
	}
	return c, nil
}

// Convert returns mood label -> rewritten target. The model output must be a JSON
// object of strings, optionally wrapped in a Markdown code fence.
func (c *Converter) Convert(
	ctx context.Context,
	target string,
	similar []string,
	history []models.Message,
) (models.StyleResult, error) {
	input, err := c.buildInput(target, similar, history)
	if err != nil {
		return nil, err
	}
	log.Debugf("style input: %s", input)

	response, err := c.generator.Generate(ctx, styleInstructions, input)
	if err != nil {
		return nil, err
	}

	return parseStyleResult(response)
}

func (c *Converter) buildInput(target string, similar []string, history []models.Message) (string, error) {
	lines := make([]string, len(history))
	for i, msg := range history {
		lines[i] = fmt.Sprintf("%s | %s: %s", msg.FormattedTimestamp(), msg.Sender, msg.Content)
	}

	similar = c.fitSimilar(similar)

	return internal.ParsePrompt(styleInputTemplate, styleInputTemplateData{
		ContextJoined: strings.Join(lines, "\n"),
		Target:        target,
		SimilarJoined: strings.Join(similar, "\n\n"),
	})
}

// fitSimilar drops utterances from the tail, the least similar ones, until the
// rest fit the token budget.
func (c *Converter) fitSimilar(similar []string) []string {
	if c.maxSimilarTokens <= 0 || c.countTokens == nil {
		return similar
	}

	used := 0
	for i, s := range similar {
		used += c.countTokens(s)
		if used > c.maxSimilarTokens {
			log.Debugf("token budget keeps %d of %d similar utterances", i, len(similar))
			return similar[:i]
		}
	}
	return similar
}

// parseStyleResult strictly decodes the model output as a JSON object of strings.
func parseStyleResult(raw string) (models.StyleResult, error) {
	text := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	dec := json.NewDecoder(strings.NewReader(text))
	var result models.StyleResult
	if err := dec.Decode(&result); err != nil {
		return nil, models.NewResponseFormatError(raw, err)
	}
	if result == nil {
		return nil, models.NewResponseFormatError(raw, errors.New("response is null"))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, models.NewResponseFormatError(raw, errors.New("unexpected data after JSON object"))
	}

	return result, nil
}
