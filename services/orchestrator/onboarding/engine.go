// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package onboarding implements the profile-collection state machine.
//
// A session in onboarding walks a fixed question sequence. Every accepted
// answer writes exactly one profile field and advances the step; every
// rejected answer re-issues the same question with guidance. There is no
// path that stalls the conversation.
package onboarding

import (
	"fmt"

	"github.com/policylab/youthchat/services/orchestrator/datatypes"
)

const ageUnknownSentinel = datatypes.AgeUnknown

// User-facing guidance strings. These are response content, not errors.
const (
	msgDone          = "기본 정보는 충분히 받았어요. 이제 궁금한 정책을 질문해 주세요."
	msgAgeFormat     = "만 나이는 숫자로 입력해 주세요. 예: 27 / 모르면 '모름'"
	msgPickAnOption  = "선택지 중 하나로 답해 주세요."
	msgNoPending     = "질문 상태가 꼬였어요. 다시 시도해 주세요."
	msgUnknownFollow = "알 수 없는 질문입니다."
)

// QuestionView is what a handler presents for the current step: the prompt
// plus the materialized options. Options is always non-nil so onboarding
// responses serialize it as an array; free-entry questions and the terminal
// sentinel carry an empty one.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"text"`
	Options []string `json:"options"`
}

// Engine drives onboarding against the fixed catalog. Stateless across
// sessions; all per-user state lives on the session, so a single Engine is
// shared by every request. Callers must hold the session lock.
type Engine struct {
	catalog *Catalog
}

// NewEngine parses and validates the embedded catalog. A malformed catalog
// is a hard startup failure: the service cannot collect profiles without it.
func NewEngine() (*Engine, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, fmt.Errorf("onboarding engine init: %w", err)
	}
	return &Engine{catalog: cat}, nil
}

// QuestionCount returns the number of configured questions.
func (e *Engine) QuestionCount() int {
	return len(e.catalog.Questions)
}

// NeedsOnboarding reports whether the session still owes profile answers.
// The check is on the profile, not the step index: a profile completed by
// any means ends onboarding even if later questions were never issued.
func (e *Engine) NeedsOnboarding(sess *datatypes.Session) bool {
	return !sess.Profile.IsComplete()
}

// NextQuestion returns the question at the session's current step and marks
// it pending. Past the end of the catalog it returns the terminal sentinel
// and clears the pending marker.
func (e *Engine) NextQuestion(sess *datatypes.Session) QuestionView {
	if sess.OnboardingStep >= len(e.catalog.Questions) {
		sess.PendingQuestionID = ""
		return QuestionView{ID: QuestionDone, Prompt: msgDone, Options: []string{}}
	}

	q := &e.catalog.Questions[sess.OnboardingStep]
	sess.PendingQuestionID = q.ID
	return QuestionView{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: q.BuildOptions(),
	}
}

// ApplyAnswer processes one raw answer against the session's pending
// question. It returns (true, "") on acceptance, after writing the profile
// field, advancing the step, and clearing the pending marker. On rejection
// it returns (false, guidance) and leaves the pending marker in place so
// the same question repeats. Rejections are conversation content, never
// errors.
func (e *Engine) ApplyAnswer(sess *datatypes.Session, raw string) (bool, string) {
	qid := sess.PendingQuestionID
	if qid == "" {
		return false, msgNoPending
	}

	a := e.catalog.normalize(raw)

	q := e.catalog.questionByID(qid)
	if q == nil {
		return false, msgUnknownFollow
	}

	switch qid {
	case QuestionAge:
		age, ok := parseAge(a)
		if !ok {
			return false, msgAgeFormat
		}
		sess.Profile.Age = &age

	case QuestionResidency:
		v, ok := e.resolveOption(q, a)
		if !ok {
			return false, msgPickAnOption
		}
		sess.Profile.Residency = &v

	case QuestionStatus:
		v, ok := e.resolveOption(q, a)
		if !ok {
			return false, msgPickAnOption
		}
		sess.Profile.Status = &v

	case QuestionWorkLast6m:
		v, ok := e.resolveOption(q, a)
		if !ok {
			return false, msgPickAnOption
		}
		sess.Profile.WorkLast6m = &v

	case QuestionWelfare:
		v, ok := e.resolveOption(q, a)
		if !ok {
			return false, msgPickAnOption
		}
		sess.Profile.Welfare = &v

	case QuestionHousehold:
		v, ok := e.resolveOption(q, a)
		if !ok {
			return false, msgPickAnOption
		}
		sess.Profile.Household = &v

	default:
		return false, msgUnknownFollow
	}

	sess.OnboardingStep++
	sess.PendingQuestionID = ""
	return true, ""
}

// resolveOption maps a normalized answer onto a storable value. An answer
// matching one of the materialized options is stored verbatim. Otherwise
// free text is stored as-is (empty input falls back to "모름") unless the
// question's policy is strict without free text — a combination no shipped
// question uses, kept for forward compatibility.
func (e *Engine) resolveOption(q *Question, normalized string) (string, bool) {
	opts := q.BuildOptions()
	for _, opt := range opts {
		if normalized == opt {
			return normalized, true
		}
	}
	if q.Policy.Strict && !q.Policy.AllowFreeText {
		return "", false
	}
	if normalized == "" {
		return TokenUnknown, true
	}
	return normalized, true
}
