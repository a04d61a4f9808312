// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/policylab/youthchat/services/orchestrator/retrieval"
)

// Policy documents arrive as extracted PDF text. Splitting prefers
// paragraph then line boundaries so eligibility tables keep their headings
// attached to their bodies.
var (
	chunkSize       = 1000
	chunkOverlap    = chunkSize / 10
	chunkSeparators = []string{"\n\n", "\n", " ", ""}
)

// IngestDocumentRequest carries one policy document's extracted text.
type IngestDocumentRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
}

// IngestDocument splits, embeds, and stores a policy document.
func IngestDocument(client *weaviate.Client, embedder *retrieval.EmbeddingClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IngestDocumentRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Content == "" || req.Source == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content and source are required"})
			return
		}

		chunksCreated, err := RunIngestion(c.Request.Context(), client, embedder, req)
		if err != nil {
			slog.Error("Ingestion failed", "source", req.Source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		slog.Info("Successfully processed document", "source", req.Source, "chunks_processed", chunksCreated)
		c.JSON(http.StatusCreated, gin.H{
			"status":           "success",
			"source":           req.Source,
			"chunks_processed": chunksCreated,
		})
	}
}

// RunIngestion is the reusable ingestion pipeline: split the text, batch
// embed the chunks, and batch import them into the PolicyChunk class.
// Chunk ids are content hashes, so re-ingesting the same document is
// idempotent rather than duplicating rows.
func RunIngestion(ctx context.Context, client *weaviate.Client, embedder *retrieval.EmbeddingClient, req IngestDocumentRequest) (int, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(chunkSeparators),
	)

	chunks, err := splitter.SplitText(req.Content)
	if err != nil {
		slog.Error("Failed to split text", "source", req.Source, "error", err)
		return 0, fmt.Errorf("failed to split content: %w", err)
	}
	if len(chunks) == 0 {
		slog.Warn("No chunks produced after splitting", "source", req.Source)
		return 0, nil
	}
	slog.Info("Split document into chunks", "source", req.Source, "chunk_count", len(chunks))

	vectors, err := embedder.BatchEmbed(ctx, chunks)
	if err != nil {
		slog.Error("Failed to get batch embeddings", "source", req.Source, "error", err)
		return 0, err
	}

	batcher := client.Batch().ObjectsBatcher()
	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		hash := sha256.Sum256([]byte(chunk))
		docUUID, _ := uuid.FromBytes(hash[:16])

		objects[i] = &models.Object{
			Class:  "PolicyChunk",
			ID:     strfmt.UUID(docUUID.String()),
			Vector: vectors[i],
			Properties: map[string]interface{}{
				"chunk_id":    fmt.Sprintf("%s_part_%d", req.Source, i+1),
				"content":     chunk,
				"source":      req.Source,
				"page":        req.Page,
				"ingested_at": time.Now().UnixMilli(),
			},
		}
	}
	batcher.WithObjects(objects...)

	resp, err := batcher.Do(ctx)
	if err != nil {
		slog.Error("Failed to perform batch import to Weaviate", "error", err)
		return 0, fmt.Errorf("failed to save objects to Weaviate: %w", err)
	}

	chunksCreated := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			chunksCreated++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Error in Weaviate batch item", "source", req.Source, "error", errItem.Message)
			}
		}
	}
	return chunksCreated, nil
}

// ListDocuments returns the distinct source names of all ingested chunks.
func ListDocuments(client *weaviate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Received request to list ingested documents")

		agg, err := client.GraphQL().Aggregate().
			WithClassName("PolicyChunk").
			WithGroupBy("source").
			Do(context.Background())
		if err != nil {
			slog.Error("Failed to aggregate documents from Weaviate", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query documents"})
			return
		}

		var docList []string
		if agg.Data["Aggregate"] != nil {
			aggMap, ok := agg.Data["Aggregate"].(map[string]interface{})
			if ok && aggMap["PolicyChunk"] != nil {
				groups, ok := aggMap["PolicyChunk"].([]interface{})
				if ok {
					for _, groupItem := range groups {
						groupMap, ok := groupItem.(map[string]interface{})
						if !ok || groupMap["groupedBy"] == nil {
							continue
						}
						groupedBy, ok := groupMap["groupedBy"].(map[string]interface{})
						if !ok {
							continue
						}
						if sourceName, ok := groupedBy["value"].(string); ok {
							docList = append(docList, sourceName)
						}
					}
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{"documents": docList})
	}
}

// DeleteDocument removes every chunk ingested from one source.
func DeleteDocument(client *weaviate.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := c.Query("source")
		if source == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source query parameter is required"})
			return
		}
		slog.Info("Received request to delete a document", "source", source)

		whereFilter := filters.Where().
			WithPath([]string{"source"}).
			WithOperator(filters.Equal).
			WithValueString(source)

		resp, err := client.Batch().ObjectsBatchDeleter().
			WithClassName("PolicyChunk").
			WithOutput("minimal").
			WithWhere(whereFilter).
			Do(context.Background())
		if err != nil {
			slog.Error("Failed to delete chunks from Weaviate", "source", source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
			return
		}

		var deleted int64
		if resp != nil && resp.Results != nil {
			deleted = resp.Results.Successful
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "source": source, "chunks_deleted": deleted})
	}
}
