// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target
// type. It encapsulates the marshal/unmarshal round trip needed to convert
// the client's dynamic response (map[string]models.JSONObject) into a typed
// struct; T must carry json tags matching the response shape.
//
// Type mismatches produce zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// PolicyChunkQueryResponse is the shape of a Get query against the
// PolicyChunk class.
type PolicyChunkQueryResponse struct {
	Get struct {
		PolicyChunk []PolicyChunkResult `json:"PolicyChunk"`
	} `json:"Get"`
}

// PolicyChunkResult is a single corpus chunk from a query. Pointer fields
// distinguish "missing in the index" from zero values so the retriever can
// apply explicit placeholders.
type PolicyChunkResult struct {
	ChunkID    string  `json:"chunk_id"`
	Source     *string `json:"source"`
	Page       *int    `json:"page"`
	Content    string  `json:"content"`
	Additional struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}
