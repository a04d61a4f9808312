// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
)

// Placeholders for chunks stored without provenance metadata.
const (
	unknownSource = "unknown"
	unknownPage   = 0
)

// Retriever embeds a query and normalizes index hits into Chunks.
type Retriever struct {
	embedder EmbeddingProvider
	index    SearchIndex
}

// NewRetriever wires an embedding provider to a search index.
func NewRetriever(embedder EmbeddingProvider, index SearchIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns up to topK chunks for the query, best score first.
// Padding hits (negative ID) are dropped; missing source and page fields
// are replaced with placeholders so downstream formatting never deals with
// nils. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Chunk, error) {
	ctx, span := tracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()

	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		slog.Error("Failed to embed retrieval query", "error", err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.index.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(hits))
	for _, h := range hits {
		if h.ID < 0 {
			continue
		}
		source := unknownSource
		if h.Source != nil && *h.Source != "" {
			source = *h.Source
		}
		page := unknownPage
		if h.Page != nil {
			page = *h.Page
		}
		chunkID := h.ChunkID
		if chunkID == "" {
			chunkID = fmt.Sprintf("chunk_%d", h.ID)
		}
		chunks = append(chunks, Chunk{
			ChunkID: chunkID,
			Source:  source,
			Page:    page,
			Text:    h.Text,
			Score:   h.Score,
		})
	}

	slog.Debug("Retrieval complete", "requested", topK, "returned", len(chunks))
	return chunks, nil
}
