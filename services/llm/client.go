// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"fmt"
)

// GenerationParams carries per-call sampling overrides. Nil fields fall
// back to the backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// FailureKind classifies why a backend call failed. Callers use it to pick
// the right user-facing message without parsing error strings.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureUnreachable FailureKind = "unreachable"
	FailureMalformed   FailureKind = "malformed"
)

// BackendError wraps a backend failure with its classification. The
// transport or parse error stays available through Unwrap.
type BackendError struct {
	Kind    FailureKind
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure classification from an error chain. Errors
// that are not BackendErrors report as unreachable, the most conservative
// reading for retry and messaging decisions.
func KindOf(err error) FailureKind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	return FailureUnreachable
}

// IsTimeout reports whether the error chain contains a timeout-classified
// backend failure.
func IsTimeout(err error) bool {
	return KindOf(err) == FailureTimeout
}
