package domain

import (
	"context"
)

// VectorEncoder defines the interface for generating embeddings.
// Encode is batchable and deterministic per text; Dim is the fixed output
// dimension every returned vector has.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
	Version() string
}
