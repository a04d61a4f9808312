// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the janitor scans for idle sessions.
const DefaultSweepInterval = 10 * time.Minute

// Janitor makes the store's retention policy explicit: sessions idle longer
// than TTL are removed on a fixed sweep interval. A TTL of zero disables
// sweeping entirely, which keeps the store unbounded — the documented MVP
// behavior — but as a visible configuration choice rather than an accident.
type Janitor struct {
	store    *Store
	ttl      time.Duration
	interval time.Duration
}

// NewJanitor creates a janitor for the given store. interval <= 0 falls back
// to DefaultSweepInterval.
func NewJanitor(store *Store, ttl, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{store: store, ttl: ttl, interval: interval}
}

// Run sweeps until the context is canceled. Call in its own goroutine.
// With TTL disabled it returns immediately.
func (j *Janitor) Run(ctx context.Context) {
	if j.ttl <= 0 {
		slog.Info("Session retention disabled, sessions are kept indefinitely")
		return
	}
	slog.Info("Session janitor started", "ttl", j.ttl, "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Session janitor stopped")
			return
		case <-ticker.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce removes all sessions idle past the TTL and returns how many
// were removed.
func (j *Janitor) SweepOnce() int {
	removed := j.store.sweepIdle(j.ttl)
	if len(removed) > 0 {
		slog.Info("Swept idle sessions", "count", len(removed), "ttl", j.ttl)
	}
	return len(removed)
}
