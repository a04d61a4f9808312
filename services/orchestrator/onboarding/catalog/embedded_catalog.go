// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package catalog bakes the onboarding question set and answer-normalization
table into the binary via the Go embed package, so the catalog is immutable
at runtime and travels with the executable.
*/
package catalog

import (
	_ "embed"
)

// OnboardingCatalog holds the raw bytes of onboarding_catalog.yaml,
// populated at compile time. Pass directly to yaml.Unmarshal.
//
//go:embed onboarding_catalog.yaml
var OnboardingCatalog []byte
