// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package onboarding

import (
	"fmt"

	"github.com/policylab/youthchat/services/orchestrator/onboarding/catalog"
	"gopkg.in/yaml.v3"
)

// Tokens appended to option lists by the per-question policy.
const (
	TokenUnknown       = "모름"
	TokenNotApplicable = "해당없음"
)

// Question ids in the shipped catalog. Each maps to exactly one profile
// field in the engine.
const (
	QuestionAge        = "age"
	QuestionResidency  = "residency"
	QuestionStatus     = "status"
	QuestionWorkLast6m = "work_last_6m"
	QuestionWelfare    = "welfare"
	QuestionHousehold  = "household"

	// QuestionDone is the terminal sentinel returned once all configured
	// questions are exhausted. It never appears in the catalog.
	QuestionDone = "done"
)

// OptionPolicy controls how a question's options are materialized and how
// off-option answers are treated.
type OptionPolicy struct {
	IncludeUnknown bool `yaml:"include_unknown"`
	IncludeNone    bool `yaml:"include_none"`
	AllowFreeText  bool `yaml:"allow_free_text"`
	Strict         bool `yaml:"strict"`
}

// Question is one entry of the fixed onboarding sequence.
type Question struct {
	ID      string       `yaml:"id"`
	Prompt  string       `yaml:"prompt"`
	Options []string     `yaml:"options"`
	Policy  OptionPolicy `yaml:"policy"`
}

// BuildOptions materializes the presentable option list: template options in
// order, then "모름" and/or "해당없음" per policy, deduplicated with the
// appended tokens last. Questions without template options materialize to an
// empty, non-nil list regardless of policy (free-entry questions show no
// buttons but still serialize as an array). Materialization is pure; calling
// it twice yields identical lists.
func (q *Question) BuildOptions() []string {
	if len(q.Options) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(q.Options)+2)
	out = append(out, q.Options...)
	if q.Policy.IncludeUnknown {
		out = append(out, TokenUnknown)
	}
	if q.Policy.IncludeNone {
		out = append(out, TokenNotApplicable)
	}

	seen := make(map[string]struct{}, len(out))
	uniq := out[:0]
	for _, opt := range out {
		if _, ok := seen[opt]; ok {
			continue
		}
		seen[opt] = struct{}{}
		uniq = append(uniq, opt)
	}
	return uniq
}

// RewriteRule maps common answer variants onto one canonical form. Rules are
// applied in catalog order; first match wins.
type RewriteRule struct {
	Match     []string `yaml:"match"`
	Canonical string   `yaml:"canonical"`
}

// Catalog is the parsed onboarding configuration: the ordered question
// sequence plus the normalization table. Immutable after load.
type Catalog struct {
	Questions []Question    `yaml:"questions"`
	Rewrites  []RewriteRule `yaml:"rewrites"`

	byID map[string]*Question
}

// loadCatalog parses and validates the embedded catalog. Returns an error
// on malformed YAML, duplicate ids, or a question id the engine has no
// profile field for — all of which should abort startup.
func loadCatalog() (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(catalog.OnboardingCatalog, &cat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded onboarding catalog: %w", err)
	}
	if len(cat.Questions) == 0 {
		return nil, fmt.Errorf("onboarding catalog contains no questions")
	}

	cat.byID = make(map[string]*Question, len(cat.Questions))
	for i := range cat.Questions {
		q := &cat.Questions[i]
		if q.ID == "" || q.Prompt == "" {
			return nil, fmt.Errorf("onboarding question %d is missing id or prompt", i)
		}
		if q.ID == QuestionDone {
			return nil, fmt.Errorf("question id %q is reserved", QuestionDone)
		}
		if _, dup := cat.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate onboarding question id %q", q.ID)
		}
		if !knownQuestionID(q.ID) {
			return nil, fmt.Errorf("onboarding question id %q has no profile field", q.ID)
		}
		cat.byID[q.ID] = q
	}

	for i, rule := range cat.Rewrites {
		if len(rule.Match) == 0 || rule.Canonical == "" {
			return nil, fmt.Errorf("rewrite rule %d is incomplete", i)
		}
	}
	return &cat, nil
}

// questionByID returns the catalog entry for an id, or nil.
func (c *Catalog) questionByID(id string) *Question {
	return c.byID[id]
}

func knownQuestionID(id string) bool {
	switch id {
	case QuestionAge, QuestionResidency, QuestionStatus,
		QuestionWorkLast6m, QuestionWelfare, QuestionHousehold:
		return true
	}
	return false
}
