package models

import (
	"github.com/tonekit/tonekit/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	Config    *config.Config
	Embedder  Embedder
	Generator Generator
	Index     VectorIndex
	Loader    IngestLoader
	Converter StyleConverter
}
