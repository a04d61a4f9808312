// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrCreate_EmptyIDAllocates(t *testing.T) {
	store := NewStore()

	sess := store.ResolveOrCreate("")

	assert.NotEmpty(t, sess.SessionID)
	assert.Equal(t, 1, store.Len())
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestResolveOrCreate_KnownIDReturnsSameSession(t *testing.T) {
	store := NewStore()
	first := store.ResolveOrCreate("")

	second := store.ResolveOrCreate(first.SessionID)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.Len())
}

func TestResolveOrCreate_UnknownIDAllocatesFresh(t *testing.T) {
	store := NewStore()

	sess := store.ResolveOrCreate("not-a-real-session")

	assert.NotEqual(t, "not-a-real-session", sess.SessionID)
	assert.Equal(t, 1, store.Len())
}

func TestPersist_RefreshesUpdatedAt(t *testing.T) {
	store := NewStore()
	base := time.Now()
	current := base
	store.now = func() time.Time { return current }

	sess := store.ResolveOrCreate("")
	current = base.Add(time.Minute)
	sess.Lock()
	store.Persist(sess)
	sess.Unlock()

	assert.Equal(t, base.Add(time.Minute), sess.UpdatedAt)
	assert.Equal(t, base, sess.CreatedAt)
}

func TestDelete(t *testing.T) {
	store := NewStore()
	sess := store.ResolveOrCreate("")

	assert.True(t, store.Delete(sess.SessionID))
	assert.False(t, store.Delete(sess.SessionID))
	assert.Equal(t, 0, store.Len())
}

func TestList_OrderedByRecency(t *testing.T) {
	store := NewStore()
	base := time.Now()
	current := base
	store.now = func() time.Time { return current }

	older := store.ResolveOrCreate("")
	current = base.Add(time.Minute)
	newer := store.ResolveOrCreate("")
	newer.Lock()
	newer.AppendMessage("user", "안녕")
	store.Persist(newer)
	newer.Unlock()

	summaries := store.List()

	require.Len(t, summaries, 2)
	assert.Equal(t, newer.SessionID, summaries[0].SessionID)
	assert.Equal(t, older.SessionID, summaries[1].SessionID)
	assert.Equal(t, 1, summaries[0].Turns)
	assert.False(t, summaries[0].Complete)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sess := store.ResolveOrCreate("")
			sess.Lock()
			sess.AppendMessage("user", fmt.Sprintf("msg-%d", n))
			store.Persist(sess)
			sess.Unlock()
			store.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 32, store.Len())
}

// Persist updates the timestamp under the session lock and the sweeper must
// read it the same way; run turns and sweeps concurrently so the race
// detector can watch the pair.
func TestSweepIdle_ConcurrentWithTurns(t *testing.T) {
	store := NewStore()
	sess := store.ResolveOrCreate("")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			sess.Lock()
			store.Persist(sess)
			sess.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			store.sweepIdle(time.Nanosecond)
		}
	}()
	wg.Wait()
}

func TestSweepIdle_KeepsSessionRefreshedMidSweep(t *testing.T) {
	store := NewStore()
	base := time.Now()
	current := base
	store.now = func() time.Time { return current }

	sess := store.ResolveOrCreate("")
	current = base.Add(time.Hour)

	// A turn that refreshes the session right before the sweep runs must
	// keep it alive: the sweeper judges idleness under the session lock,
	// after any in-flight Persist.
	sess.Lock()
	store.Persist(sess)
	sess.Unlock()

	removed := store.sweepIdle(30 * time.Minute)

	assert.Empty(t, removed)
	_, ok := store.Get(sess.SessionID)
	assert.True(t, ok)
}

func TestSweepIdle(t *testing.T) {
	store := NewStore()
	base := time.Now()
	current := base
	store.now = func() time.Time { return current }

	stale := store.ResolveOrCreate("")
	current = base.Add(30 * time.Minute)
	fresh := store.ResolveOrCreate("")

	current = base.Add(40 * time.Minute)
	removed := store.sweepIdle(15 * time.Minute)

	require.Len(t, removed, 1)
	assert.Equal(t, stale.SessionID, removed[0])
	_, ok := store.Get(fresh.SessionID)
	assert.True(t, ok)
}

func TestSweepIdle_ZeroTTLDisabled(t *testing.T) {
	store := NewStore()
	store.ResolveOrCreate("")

	assert.Nil(t, store.sweepIdle(0))
	assert.Equal(t, 1, store.Len())
}

func TestJanitor_SweepOnce(t *testing.T) {
	store := NewStore()
	base := time.Now()
	current := base
	store.now = func() time.Time { return current }

	store.ResolveOrCreate("")
	current = base.Add(2 * time.Hour)

	j := NewJanitor(store, time.Hour, DefaultSweepInterval)
	assert.Equal(t, 1, j.SweepOnce())
	assert.Equal(t, 0, store.Len())
}
