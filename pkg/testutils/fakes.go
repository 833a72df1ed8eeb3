package testutils

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/viterin/vek/vek32"

	"github.com/tonekit/tonekit/pkg/models"
)

var _ models.Embedder = &FakeEmbedder{}

// FakeEmbedder hashes the words of a text into a fixed number of buckets.
// Equal texts get equal vectors and texts sharing words score higher.
type FakeEmbedder struct {
	Dims int
	// Err, when set, is returned by every call
	Err error
	// FailAfter makes EmbedTexts fail once it has been called this many times. 0 disables.
	FailAfter int32

	calls atomic.Int32
}

func NewFakeEmbedder(dims int) *FakeEmbedder {
	return &FakeEmbedder{Dims: dims}
}

func (f *FakeEmbedder) Dimensions() int {
	return f.Dims
}

// Calls returns the number of EmbedTexts calls so far.
func (f *FakeEmbedder) Calls() int {
	return int(f.calls.Load())
}

func (f *FakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *FakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	n := f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, models.NewEmbeddingError("fake embedder failure", f.Err)
	}
	if f.FailAfter > 0 && n > f.FailAfter {
		return nil, models.NewEmbeddingError("fake embedder failure", nil)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *FakeEmbedder) vector(text string) []float32 {
	v := make([]float32, f.Dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%uint32(f.Dims)] += 1
	}
	if norm := vek32.Norm(v); norm > 0 {
		vek32.DivNumber_Inplace(v, norm)
	} else {
		v[0] = 1
	}
	return v
}

var _ models.Generator = &FakeGenerator{}

// FakeGenerator returns a canned response and records the last prompt it saw.
type FakeGenerator struct {
	Response string
	Err      error

	mu               sync.Mutex
	lastInstructions string
	lastInput        string
}

func (f *FakeGenerator) Generate(_ context.Context, instructions, input string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastInstructions = instructions
	f.lastInput = input
	if f.Err != nil {
		return "", models.NewGenerationError("fake generator failure", f.Err)
	}
	return f.Response, nil
}

// LastPrompt returns the instructions and input of the most recent call.
func (f *FakeGenerator) LastPrompt() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lastInstructions, f.lastInput
}
