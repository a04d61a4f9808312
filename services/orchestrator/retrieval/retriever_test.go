// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

type stubIndex struct {
	hits []Hit
	err  error

	gotTopK int
}

func (s *stubIndex) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	s.gotTopK = topK
	return s.hits, s.err
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestRetrieve_NormalizesHits(t *testing.T) {
	idx := &stubIndex{hits: []Hit{
		{ID: 0, Score: 0.81, ChunkID: "c0", Source: strPtr("jump.pdf"), Page: intPtr(3), Text: "첫 번째"},
		{ID: 1, Score: 0.60, Text: "메타데이터 없음"},
		{ID: -1, Score: 0.0},
	}}
	r := NewRetriever(&stubEmbedder{vector: []float32{0.1, 0.2}}, idx)

	chunks, err := r.Retrieve(context.Background(), "도약장려금 조건", 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2, "padding hit must be dropped")

	assert.Equal(t, "c0", chunks[0].ChunkID)
	assert.Equal(t, "jump.pdf", chunks[0].Source)
	assert.Equal(t, 3, chunks[0].Page)
	assert.Equal(t, 0.81, chunks[0].Score)

	assert.Equal(t, "chunk_1", chunks[1].ChunkID)
	assert.Equal(t, unknownSource, chunks[1].Source)
	assert.Equal(t, unknownPage, chunks[1].Page)
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	idx := &stubIndex{}
	r := NewRetriever(&stubEmbedder{vector: []float32{0.1}}, idx)

	_, err := r.Retrieve(context.Background(), "질문", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, idx.gotTopK)
}

func TestRetrieve_EmbedFailure(t *testing.T) {
	r := NewRetriever(&stubEmbedder{err: errors.New("embed service down")}, &stubIndex{})

	_, err := r.Retrieve(context.Background(), "질문", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed query")
}

func TestRetrieve_IndexFailure(t *testing.T) {
	r := NewRetriever(&stubEmbedder{vector: []float32{0.1}}, &stubIndex{err: errors.New("weaviate down")})

	_, err := r.Retrieve(context.Background(), "질문", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index search failed")
}

func TestEmbeddingClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"bge-m3","vectors":[[0.1,0.2,0.3]],"dim":3}`)
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL)
	vec, err := client.Embed(context.Background(), "청년 정책")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbeddingClient_EmptyText(t *testing.T) {
	client := NewEmbeddingClient("http://unused")

	_, err := client.Embed(context.Background(), "")
	assert.Error(t, err)
}

func TestEmbeddingClient_VectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"bge-m3","vectors":[],"dim":3}`)
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL)
	_, err := client.BatchEmbed(context.Background(), []string{"하나", "둘"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 vectors for 2 texts")
}

func TestEmbeddingClient_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL)
	_, err := client.Embed(context.Background(), "청년 정책")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
