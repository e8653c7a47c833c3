package embedder

import "context"

// Embedder turns query text into a fixed-length vector. The engine treats it
// as opaque: any implementation producing vectors of the configured
// dimensions works.
type Embedder interface {
	Model() string
	Dimensions() int
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
