// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatMetrics_RegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newChatMetrics(reg)

	m.TurnsTotal.WithLabelValues("answer", "ok").Inc()
	m.TurnsTotal.WithLabelValues("answer", "ok").Inc()
	m.TurnsTotal.WithLabelValues("onboarding", "rejected").Inc()
	m.FallbacksTotal.WithLabelValues("timeout").Inc()
	m.LowConfidenceTotal.Inc()
	m.TurnDurationSeconds.WithLabelValues("answer").Observe(0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("answer", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("onboarding", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LowConfidenceTotal))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewChatMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = newChatMetrics(reg)

	assert.Panics(t, func() {
		_ = newChatMetrics(reg)
	})
}
