// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/policylab/youthchat/services/orchestrator/handlers"
	"github.com/policylab/youthchat/services/orchestrator/onboarding"
	"github.com/policylab/youthchat/services/orchestrator/retrieval"
	"github.com/policylab/youthchat/services/orchestrator/services"
	"github.com/policylab/youthchat/services/orchestrator/session"
)

// SetupRoutes wires every endpoint. A nil Weaviate client means the
// service runs in lightweight mode: chat still works (retrieval degrades
// inside the answer pipeline) but the document admin routes are absent.
func SetupRoutes(router *gin.Engine, client *weaviate.Client, store *session.Store,
	onboard *onboarding.Engine, answers *services.AnswerService,
	embedder *retrieval.EmbeddingClient) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/chat", handlers.HandleChat(store, onboard, answers))

	v1 := router.Group("/v1")
	{
		if client != nil {
			v1.POST("/documents", handlers.IngestDocument(client, embedder))
			v1.GET("/documents", handlers.ListDocuments(client))
			v1.DELETE("/document", handlers.DeleteDocument(client))
		}

		sessions := v1.Group("/sessions")
		{
			sessions.GET("", handlers.ListSessions(store))
			sessions.GET("/:sessionId/history", handlers.GetSessionHistory(store))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(store))
		}
	}
}
