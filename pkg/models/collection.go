package models

import "time"

const DistanceFunctionCosine = "cosine"

// Collection describes a named vector collection. Dimension is fixed at creation.
type Collection struct {
	Name             string    `json:"name"`
	Dimension        int       `json:"dimension"`
	DistanceFunction string    `json:"distance_function"`
	IndexType        string    `json:"index_type"`
	CreatedAt        time.Time `json:"created_at"`
}

// SearchHit is a stored utterance returned by a similarity search.
// Score is cosine similarity; higher is more similar.
type SearchHit struct {
	Message Message
	Score   float64
}
