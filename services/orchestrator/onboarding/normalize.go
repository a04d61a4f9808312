// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package onboarding

import (
	"strings"
)

// normalize trims the raw answer and applies the catalog's ordered rewrite
// table. Rules match the whole trimmed answer exactly; first match wins.
func (c *Catalog) normalize(raw string) string {
	a := strings.TrimSpace(raw)
	if a == "" {
		return a
	}
	for _, rule := range c.Rewrites {
		for _, variant := range rule.Match {
			if a == variant {
				return rule.Canonical
			}
		}
	}
	return a
}

// parseAge extracts an age from a normalized answer. The "모름" token maps
// to the unknown sentinel. Otherwise every digit rune in the text is
// concatenated ("나이는 27살" parses as 27) and the result must be strictly
// between 0 and 120. The bool result is false when nothing parseable was
// found or the value is out of range.
func parseAge(normalized string) (int, bool) {
	if normalized == TokenUnknown {
		return ageUnknownSentinel, true
	}

	v := 0
	found := false
	for _, r := range normalized {
		if r < '0' || r > '9' {
			continue
		}
		found = true
		v = v*10 + int(r-'0')
		if v >= 10000 {
			// Absurd digit run, no point accumulating further.
			return 0, false
		}
	}
	if !found || v <= 0 || v >= 120 {
		return 0, false
	}
	return v, true
}
