// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval turns a user question into scored policy-document
// chunks. It separates embedding, index search, and result normalization
// behind small interfaces so the vector backend can be swapped without
// touching the answer pipeline.
package retrieval

import "context"

// DefaultTopK is how many chunks a retrieval returns unless the caller
// asks otherwise.
const DefaultTopK = 5

// EmbeddingProvider computes a dense vector for a piece of text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Hit is one scored row from a vector index. Indexes that pad their result
// set mark padding rows with a negative ID; such rows carry no chunk data
// and must be skipped by callers.
type Hit struct {
	ID      int64
	Score   float64
	ChunkID string
	Source  *string
	Page    *int
	Text    string
}

// SearchIndex finds the topK nearest chunks for a query vector. Scores are
// similarity in [0, 1], higher is closer.
type SearchIndex interface {
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
}

// Chunk is a normalized retrieval result ready for prompt assembly.
// Source and Page are always populated; rows stored without provenance get
// placeholder values.
type Chunk struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}
