// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package intent detects which youth policy a free-text question is about
// and decides whether the policy name must be confirmed with the user
// before any eligibility answer is attempted.
package intent

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/policylab/youthchat/services/intent/enforcement"
	"gopkg.in/yaml.v3"
)

// Questions at or below this rune length are too terse to trust a keyword
// match on its own, so they still go through confirmation.
const shortQuestionRunes = 14

// Engine is the entry point for intent detection. It holds the loaded
// keyword rules, sorted by priority, and is safe for concurrent use.
type Engine struct {
	rules           []IntentRule
	genericKeywords []string
}

// NewEngine initializes an Engine from the keyword rules embedded in the
// binary via the enforcement package.
//
// It performs the following operations:
// 1. Unmarshals the embedded YAML data.
// 2. Validates that every rule has an id, a policy name, and keywords.
// 3. Sorts the rules by priority.
//
// Returns an error if the embedded YAML is malformed or incomplete.
func NewEngine() (*Engine, error) {
	var file KeywordFile
	if err := yaml.Unmarshal(enforcement.PolicyKeywords, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded keyword file: %w", err)
	}
	if len(file.Intents) == 0 {
		return nil, fmt.Errorf("keyword file contains no intent rules")
	}
	for i, rule := range file.Intents {
		if rule.ID == "" || rule.PolicyName == "" || len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("intent rule %d is incomplete", i)
		}
	}

	file.SortByPriority()
	return &Engine{
		rules:           file.Intents,
		genericKeywords: file.GenericKeywords,
	}, nil
}

// Detect returns the id of the highest-priority intent whose keyword
// appears as a substring of the question, or "" when nothing matches.
// Matching is case-insensitive on the question side; blank input never
// matches.
func (e *Engine) Detect(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return ""
	}
	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(q, kw) {
				return rule.ID
			}
		}
	}
	return ""
}

// NeedsConfirmation reports whether the question must be answered with a
// policy-confirmation prompt instead of a retrieval answer. Rules apply in
// order, first hit wins:
//
//  1. The question names a known policy verbatim: no confirmation.
//  2. The question uses a generic benefit word ("장려금", "지원금", ...):
//     confirmation, since several policies share those words.
//  3. No intent was detected: confirmation.
//  4. The question is 14 runes or shorter: confirmation, keyword matches
//     on that little text are not trustworthy.
//
// Otherwise the detected intent stands and no confirmation is needed.
func (e *Engine) NeedsConfirmation(question, intentID string) bool {
	q := strings.TrimSpace(question)
	low := strings.ToLower(q)

	for _, rule := range e.rules {
		if strings.Contains(q, rule.PolicyName) {
			return false
		}
	}

	for _, kw := range e.genericKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}

	if intentID == "" {
		return true
	}

	if utf8.RuneCountInString(q) <= shortQuestionRunes {
		return true
	}

	return false
}

// ConfirmationMessage builds the fixed prompt asking the user to pick one
// of the known policies by name.
func (e *Engine) ConfirmationMessage() string {
	var b strings.Builder
	b.WriteString("질문하신 '청년 장려금'이 정확히 어떤 정책을 뜻하는지 먼저 확인이 필요합니다.\n")
	b.WriteString("비슷한 이름의 제도가 여러 개라서, 정책명을 확정하지 않으면 요건을 잘못 안내할 위험이 있어요.\n\n")
	b.WriteString("혹시 아래 중 어떤 정책을 찾으시는 걸까요?\n")
	for _, rule := range e.rules {
		b.WriteString("- ")
		b.WriteString(rule.PolicyName)
		b.WriteString("\n")
	}
	b.WriteString("\n원하시는 정책명을 그대로 입력해 주시면, 그 다음에 자격/조건을 정확히 정리해드릴게요.")
	return b.String()
}

// PolicyNames returns the known policy display names in priority order.
func (e *Engine) PolicyNames() []string {
	names := make([]string, 0, len(e.rules))
	for _, rule := range e.rules {
		names = append(names, rule.PolicyName)
	}
	return names
}
