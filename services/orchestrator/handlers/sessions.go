// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/policylab/youthchat/services/orchestrator/session"
)

// ListSessions returns summaries of every live session in the store.
func ListSessions(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Received request to list sessions")
		c.JSON(http.StatusOK, gin.H{"sessions": store.List()})
	}
}

// GetSessionHistory returns the full message log and profile state of one
// session.
func GetSessionHistory(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")

		sess, ok := store.Get(sessionID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		sess.Lock()
		defer sess.Unlock()
		c.JSON(http.StatusOK, gin.H{
			"session_id": sess.SessionID,
			"created_at": sess.CreatedAt,
			"updated_at": sess.UpdatedAt,
			"messages":   sess.Messages,
			"profile":    sess.Profile.ToDebugMap(),
			"followups":  sess.Followups.ToDebugMap(),
		})
	}
}

// DeleteSession removes one session and all its state from the store.
func DeleteSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		slog.Info("Received a request to delete a session", "sessionId", sessionID)

		if !store.Delete(sessionID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": sessionID})
	}
}
