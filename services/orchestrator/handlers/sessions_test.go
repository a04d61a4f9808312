// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policylab/youthchat/services/orchestrator/session"
)

func newSessionRouter(store *session.Store) *gin.Engine {
	router := gin.New()
	router.GET("/v1/sessions", ListSessions(store))
	router.GET("/v1/sessions/:sessionId/history", GetSessionHistory(store))
	router.DELETE("/v1/sessions/:sessionId", DeleteSession(store))
	return router
}

func TestListSessions(t *testing.T) {
	store := session.NewStore()
	sess := store.ResolveOrCreate("")
	store.Persist(sess)
	router := newSessionRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/sessions", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sessions []session.Summary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, sess.SessionID, resp.Sessions[0].SessionID)
}

func TestGetSessionHistory(t *testing.T) {
	store := session.NewStore()
	sess := store.ResolveOrCreate("")
	sess.Lock()
	sess.AppendMessage("user", "안녕")
	sess.AppendMessage("assistant", "만 나이가 어떻게 되세요?")
	sess.Unlock()
	store.Persist(sess)
	router := newSessionRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/sessions/"+sess.SessionID+"/history", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sess.SessionID, resp["session_id"])
	messages, ok := resp["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 2)
	assert.Contains(t, resp, "profile")
	assert.Contains(t, resp, "followups")
}

func TestGetSessionHistory_NotFound(t *testing.T) {
	router := newSessionRouter(session.NewStore())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/sessions/missing/history", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSession(t *testing.T) {
	store := session.NewStore()
	sess := store.ResolveOrCreate("")
	store.Persist(sess)
	router := newSessionRouter(store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/sessions/"+sess.SessionID, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.Len())

	// Second delete reports not found.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/v1/sessions/"+sess.SessionID, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
