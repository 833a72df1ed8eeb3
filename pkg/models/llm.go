package models

import "context"

type Embedder interface {
	// EmbedText embeds a single text
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedTexts embeds the given texts, returning one vector per text in input order
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the length of every vector the embedder produces
	Dimensions() int
}

type Generator interface {
	// Generate runs a single chat completion with instructions as the system
	// message and input as the user message
	Generate(ctx context.Context, instructions, input string) (string, error)
}
