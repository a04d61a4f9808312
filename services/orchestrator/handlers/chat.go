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
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/policylab/youthchat/services/orchestrator/datatypes"
	"github.com/policylab/youthchat/services/orchestrator/observability"
	"github.com/policylab/youthchat/services/orchestrator/onboarding"
	"github.com/policylab/youthchat/services/orchestrator/services"
	"github.com/policylab/youthchat/services/orchestrator/session"
)

var chatTracer = otel.Tracer("youthchat.orchestrator.handlers")

// HandleChat runs one conversation turn.
//
// Until the six-question profile is complete the turn stays in onboarding
// mode: the handler feeds the message to the onboarding engine and returns
// the next (or repeated) question with its options. Afterwards every turn
// is answer mode: the message goes through the answer pipeline and comes
// back as free text with no options.
//
// The session lock is held for the whole turn, so two concurrent posts for
// the same session serialize instead of interleaving their state writes.
func HandleChat(store *session.Store, onboard *onboarding.Engine, answers *services.AnswerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()
		start := time.Now()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("Failed to parse the chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Warn("Rejected chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sess := store.ResolveOrCreate(req.SessionID)
		sess.Lock()
		defer sess.Unlock()

		userText := strings.TrimSpace(req.Message)
		if userText != "" {
			sess.AppendMessage("user", userText)
		}

		if onboard.NeedsOnboarding(sess) {
			resp, status := runOnboardingTurn(sess, onboard, userText)
			store.Persist(sess)
			recordTurn(datatypes.ModeOnboarding, status, start)
			c.JSON(http.StatusOK, resp)
			return
		}

		result := answers.Answer(ctx, userText, sess)
		sess.AppendMessage("assistant", result.Text)
		store.Persist(sess)

		recordTurn(datatypes.ModeAnswer, answerStatus(result), start)
		recordAnswerOutcomes(result)

		debug := sess.Profile.ToDebugMap()
		for k, v := range sess.Followups.ToDebugMap() {
			debug[k] = v
		}
		c.JSON(http.StatusOK, datatypes.ChatResponse{
			SessionID:    sess.SessionID,
			Mode:         datatypes.ModeAnswer,
			Answer:       result.Text,
			Options:      nil,
			DebugProfile: debug,
		})
	}
}

// runOnboardingTurn applies the user's message to the pending question (if
// any) and builds the onboarding response. An empty message skips the apply
// and just repeats the pending question. A rejected answer prefixes the
// guidance to the repeated question. The engine guarantees a non-nil options
// array, so clients can render buttons unconditionally.
func runOnboardingTurn(sess *datatypes.Session, onboard *onboarding.Engine, userText string) (datatypes.ChatResponse, string) {
	status := "ok"
	prefix := ""
	if sess.PendingQuestionID != "" && userText != "" {
		accepted, errMsg := onboard.ApplyAnswer(sess, userText)
		if !accepted {
			status = "rejected"
			prefix = errMsg + "\n\n"
		}
	}

	view := onboard.NextQuestion(sess)

	return datatypes.ChatResponse{
		SessionID:    sess.SessionID,
		Mode:         datatypes.ModeOnboarding,
		Answer:       prefix + view.Prompt,
		Options:      view.Options,
		DebugProfile: sess.Profile.ToDebugMap(),
	}, status
}

func answerStatus(result services.Result) string {
	switch {
	case result.Fallback:
		return "fallback"
	case result.Confirmation:
		return "confirmation"
	default:
		return "ok"
	}
}

func recordTurn(mode, status string, start time.Time) {
	if m := observability.DefaultMetrics; m != nil {
		m.TurnsTotal.WithLabelValues(mode, status).Inc()
		m.TurnDurationSeconds.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
}

func recordAnswerOutcomes(result services.Result) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	if result.Fallback {
		m.FallbacksTotal.WithLabelValues(string(result.FailureKind)).Inc()
	}
	if result.LowConfidence && !result.Confirmation {
		m.LowConfidenceTotal.Inc()
	}
}
