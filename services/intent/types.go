// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package intent

import "sort"

// Well-known intent ids from the shipped keyword file. Exported for use in
// handler logic and tests; the engine itself treats ids as opaque.
const (
	IntentJobJump     = "job_jump"
	IntentKua         = "kua"
	IntentHopeAccount = "hope_account"
)

// IntentRule maps one policy onto the keyword substrings that identify it.
type IntentRule struct {
	ID         string   `yaml:"id"`
	PolicyName string   `yaml:"policy_name"`
	Priority   int      `yaml:"priority"`
	Keywords   []string `yaml:"keywords"`
}

// KeywordFile is the parsed shape of policy_keywords.yaml.
type KeywordFile struct {
	Intents         []IntentRule `yaml:"intents"`
	GenericKeywords []string     `yaml:"generic_keywords"`
}

// SortByPriority orders the intent rules from highest to lowest priority.
// Matching iterates this order, so priority decides which rule claims a
// keyword that appears in several rules.
func (f *KeywordFile) SortByPriority() {
	sort.SliceStable(f.Intents, func(i, j int) bool {
		return f.Intents[i].Priority > f.Intents[j].Priority
	})
}
