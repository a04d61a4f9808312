// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session provides the in-memory session store for the orchestrator.
//
// The store is a single map keyed by session id. The map itself is guarded
// by a store-level RWMutex; mutual exclusion for a session's contents is the
// per-session mutex on datatypes.Session, which a chat turn holds for its
// full read-modify-write span. This split keeps turns for distinct sessions
// fully concurrent while making same-session turns strictly serial.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/policylab/youthchat/services/orchestrator/datatypes"
)

// Summary is the admin-facing view of a stored session.
type Summary struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     int       `json:"turns"`
	Complete  bool      `json:"profile_complete"`
}

// Store holds all live sessions. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*datatypes.Session

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*datatypes.Session),
		now:      time.Now,
	}
}

// ResolveOrCreate returns the session for the given id, or allocates a new
// one when the id is empty or unknown. An unknown explicit id is treated
// the same as no id: the caller gets a fresh session with a newly generated
// id rather than an error. This operation cannot fail.
func (s *Store) ResolveOrCreate(sessionID string) *datatypes.Session {
	if sessionID != "" {
		s.mu.RLock()
		sess, ok := s.sessions[sessionID]
		s.mu.RUnlock()
		if ok {
			return sess
		}
	}

	now := s.now()
	sess := &datatypes.Session{
		SessionID: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.SessionID] = sess
	s.mu.Unlock()
	return sess
}

// Persist refreshes the session's last-modified timestamp and stores it
// under its id. Idempotent for sessions already in the map. The caller must
// hold the session's lock: UpdatedAt is session state, and every other
// reader (List, sweepIdle) takes the session lock before touching it.
func (s *Store) Persist(sess *datatypes.Session) {
	sess.UpdatedAt = s.now()
	s.mu.Lock()
	s.sessions[sess.SessionID] = sess
	s.mu.Unlock()
}

// Get returns the session for an id without creating one.
func (s *Store) Get(sessionID string) (*datatypes.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// Delete removes a session. Reports whether the id existed.
func (s *Store) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// List returns summaries of all live sessions, most recently updated first.
func (s *Store) List() []Summary {
	// Snapshot under the map lock, then summarize under each session lock.
	// Taking a session lock while holding the map lock would invert the
	// ordering the chat path uses (session lock first, then Persist).
	s.mu.RLock()
	snapshot := make([]*datatypes.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		snapshot = append(snapshot, sess)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(snapshot))
	for _, sess := range snapshot {
		sess.Lock()
		out = append(out, Summary{
			SessionID: sess.SessionID,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
			Turns:     len(sess.Messages),
			Complete:  sess.Profile.IsComplete(),
		})
		sess.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// sweepIdle removes sessions whose last update is older than ttl. Returns
// the removed ids. Used by the Janitor; exported behavior is tested through
// it.
func (s *Store) sweepIdle(ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}
	cutoff := s.now().Add(-ttl)

	// Snapshot under the map lock, then judge idleness under each session
	// lock. UpdatedAt is written by Persist while a turn holds the session
	// lock, so reading it under only the map lock would race. Taking the
	// map lock inside the session lock matches the chat path's ordering
	// (session lock first, then Persist), and it means a session judged
	// idle cannot be mid-turn when it is removed.
	s.mu.RLock()
	snapshot := make(map[string]*datatypes.Session, len(s.sessions))
	for id, sess := range s.sessions {
		snapshot[id] = sess
	}
	s.mu.RUnlock()

	var removed []string
	for id, sess := range snapshot {
		sess.Lock()
		if sess.UpdatedAt.Before(cutoff) && s.Delete(id) {
			removed = append(removed, id)
		}
		sess.Unlock()
	}
	return removed
}
