// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"sync"
	"time"
)

// AgeUnknown is the sentinel stored when the user answers the age question
// with "모름". A nil Age pointer means the question has not been answered yet.
const AgeUnknown = -1

// ChatMessage is a single turn entry in a session's conversation log.
// Role is either "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserProfile holds the six onboarding answers. A nil field means the
// question has not been answered; the "모름" sentinel still counts as set.
//
// Fields are only ever written by the onboarding engine, one field per
// accepted answer.
type UserProfile struct {
	Age        *int    `json:"age"`
	Residency  *string `json:"residency"`
	Status     *string `json:"status"`
	WorkLast6m *string `json:"work_last_6m"`
	Welfare    *string `json:"welfare"`
	Household  *string `json:"household"`
}

// IsComplete reports whether every profile field has been answered.
func (p *UserProfile) IsComplete() bool {
	return p.Age != nil &&
		p.Residency != nil &&
		p.Status != nil &&
		p.WorkLast6m != nil &&
		p.Welfare != nil &&
		p.Household != nil
}

// ToDebugMap renders the profile for the debug_profile response field.
// Unanswered fields appear as explicit nulls so the frontend can show
// collection progress.
func (p *UserProfile) ToDebugMap() map[string]interface{} {
	out := map[string]interface{}{
		"age":          nil,
		"residency":    nil,
		"status":       nil,
		"work_last_6m": nil,
		"welfare":      nil,
		"household":    nil,
	}
	if p.Age != nil {
		out["age"] = *p.Age
	}
	if p.Residency != nil {
		out["residency"] = *p.Residency
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.WorkLast6m != nil {
		out["work_last_6m"] = *p.WorkLast6m
	}
	if p.Welfare != nil {
		out["welfare"] = *p.Welfare
	}
	if p.Household != nil {
		out["household"] = *p.Household
	}
	return out
}

// FollowupAnswers holds policy-specific secondary answers. No flow in the
// core populates these yet; the answer orchestrator renders any non-nil
// field into the user-context block, so a future drill-down flow only has
// to write them.
type FollowupAnswers struct {
	EmploymentType       *string `json:"employment_type"`
	EIInsured            *string `json:"ei_insured"`
	CompanySize          *string `json:"company_size"`
	SeoulResidencyMonths *string `json:"seoul_residency_months"`
}

// ToDebugMap renders the follow-up answers alongside the profile in
// debug_profile output.
func (f *FollowupAnswers) ToDebugMap() map[string]interface{} {
	out := map[string]interface{}{
		"employment_type":        nil,
		"ei_insured":             nil,
		"company_size":           nil,
		"seoul_residency_months": nil,
	}
	if f.EmploymentType != nil {
		out["employment_type"] = *f.EmploymentType
	}
	if f.EIInsured != nil {
		out["ei_insured"] = *f.EIInsured
	}
	if f.CompanySize != nil {
		out["company_size"] = *f.CompanySize
	}
	if f.SeoulResidencyMonths != nil {
		out["seoul_residency_months"] = *f.SeoulResidencyMonths
	}
	return out
}

// Session is the per-user conversation state. It is owned by the session
// store; handlers must hold the session lock for the full read-modify-write
// span of a turn so concurrent requests for the same session id cannot lose
// updates.
type Session struct {
	mu sync.Mutex

	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []ChatMessage `json:"messages"`

	Profile   UserProfile     `json:"profile"`
	Followups FollowupAnswers `json:"followups"`

	// OnboardingStep indexes into the fixed question catalog. It only ever
	// advances.
	OnboardingStep    int    `json:"onboarding_step"`
	PendingQuestionID string `json:"pending_question_id,omitempty"`
	PendingFollowupID string `json:"pending_followup_id,omitempty"`
}

// Lock acquires the per-session mutex. One chat turn holds it end-to-end.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendMessage adds a turn entry to the conversation log. Caller must hold
// the session lock.
func (s *Session) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, ChatMessage{Role: role, Content: content})
}

// RecentMessages returns up to n of the newest messages, oldest first.
// Caller must hold the session lock.
func (s *Session) RecentMessages(n int) []ChatMessage {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
