// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file bridges the build system and the runtime logic. It uses the Go
embed package to bake policy_keywords.yaml directly into the compiled
binary, so the intent rules are immutable at runtime and travel with the
executable.
*/

package enforcement

import (
	_ "embed"
)

// PolicyKeywords holds the raw byte content of the 'policy_keywords.yaml' file.
//
// Populated at compile time via the Go 'embed' directive. Baking the YAML
// into the binary means the keyword rules cannot drift from the deployed
// executable without recompiling.
//
// Usage:
//
//	// Pass these bytes directly to yaml.Unmarshal
//	err := yaml.Unmarshal(enforcement.PolicyKeywords, &targetStruct)
//
//go:embed policy_keywords.yaml
var PolicyKeywords []byte
