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

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"

	"github.com/policylab/youthchat/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("youthchat.orchestrator.retrieval")

// WeaviateIndex implements SearchIndex against the PolicyChunk class.
//
// Scores are Weaviate certainty values, already in [0, 1], so they are
// directly comparable to the answer pipeline's confidence floor. The
// underlying client pools connections; the index is safe for concurrent
// use.
type WeaviateIndex struct {
	client *weaviate.Client
}

// NewWeaviateIndex creates an index over an already connected client.
func NewWeaviateIndex(client *weaviate.Client) *WeaviateIndex {
	return &WeaviateIndex{client: client}
}

// Search runs a nearVector query for the topK closest policy chunks.
// Row position doubles as the hit ID, so every returned hit has a
// non-negative ID and carries real chunk data.
func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	ctx, span := tracer.Start(ctx, "WeaviateIndex.Search")
	defer span.End()

	if topK <= 0 {
		topK = DefaultTopK
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	// certainty is always [0,1], unlike distance which varies by metric
	fields := []graphql.Field{
		{Name: "chunk_id"},
		{Name: "content"},
		{Name: "source"},
		{Name: "page"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName("PolicyChunk").
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to search PolicyChunk class", "error", err)
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.PolicyChunkQueryResponse](result)
	if err != nil {
		slog.Error("Failed to parse search results", "error", err)
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Get.PolicyChunk))
	for i, row := range parsed.Get.PolicyChunk {
		score := 0.0
		if row.Additional.Certainty != nil {
			score = float64(*row.Additional.Certainty)
		}
		hits = append(hits, Hit{
			ID:      int64(i),
			Score:   score,
			ChunkID: row.ChunkID,
			Source:  row.Source,
			Page:    row.Page,
			Text:    row.Content,
		})
	}
	slog.Debug("PolicyChunk search complete", "hits", len(hits))
	return hits, nil
}
