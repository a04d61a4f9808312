// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the request/response types and the session
// model for the orchestrator service.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// MaxMessageContentBytes caps a single inbound chat message. Checked as byte
// length, not rune count, to bound memory regardless of encoding.
const MaxMessageContentBytes = 32 * 1024 // 32KB

// Response modes for the chat endpoint.
const (
	// ModeOnboarding marks responses issued while profile collection owns
	// the turn. Options is always non-nil in this mode.
	ModeOnboarding = "onboarding"

	// ModeAnswer marks free-form counseling responses. Options is always
	// null in this mode.
	ModeAnswer = "answer"
)

var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// ChatRequest is the single inbound shape for the chat endpoint. Free text
// and option-button clicks both arrive as Message; SessionID is empty for a
// fresh conversation. An empty Message is valid: during onboarding it means
// "repeat the pending question", so rejecting it would turn a recoverable
// input into a protocol error.
type ChatRequest struct {
	Message   string `json:"message" validate:"maxbytes"`
	SessionID string `json:"session_id"`
}

// Validate checks the bound request against its tags.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// ChatResponse is what the chat endpoint returns for every turn, including
// degraded ones. Options carries the current question's choices only in
// onboarding mode; in answer mode it is null. DebugProfile exposes the
// collected profile for the dev console.
type ChatResponse struct {
	SessionID    string                 `json:"session_id"`
	Mode         string                 `json:"mode"`
	Answer       string                 `json:"answer"`
	Options      []string               `json:"options"`
	DebugProfile map[string]interface{} `json:"debug_profile"`
}
