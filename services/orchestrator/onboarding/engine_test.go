// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policylab/youthchat/services/orchestrator/datatypes"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine()
	require.NoError(t, err)
	return eng
}

func newTestSession() *datatypes.Session {
	return &datatypes.Session{SessionID: "test-session"}
}

func TestNewEngine_LoadsEmbeddedCatalog(t *testing.T) {
	eng := newTestEngine(t)
	assert.Equal(t, 6, eng.QuestionCount())
}

func TestNextQuestion_FirstIsAge(t *testing.T) {
	eng := newTestEngine(t)
	sess := newTestSession()

	view := eng.NextQuestion(sess)

	assert.Equal(t, QuestionAge, view.ID)
	assert.Contains(t, view.Prompt, "만 나이")
	assert.NotNil(t, view.Options, "free-entry questions still carry an options array")
	assert.Empty(t, view.Options)
	assert.Equal(t, QuestionAge, sess.PendingQuestionID)
}

func TestNextQuestion_PastEndReturnsDoneSentinel(t *testing.T) {
	eng := newTestEngine(t)
	sess := newTestSession()
	sess.OnboardingStep = eng.QuestionCount()
	sess.PendingQuestionID = QuestionHousehold

	view := eng.NextQuestion(sess)

	assert.Equal(t, QuestionDone, view.ID)
	assert.Equal(t, msgDone, view.Prompt)
	assert.Empty(t, sess.PendingQuestionID)
}

func TestApplyAnswer_AgeParsing(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		name     string
		input    string
		accepted bool
		wantAge  int
	}{
		{name: "plain digits", input: "27", accepted: true, wantAge: 27},
		{name: "digits with suffix", input: "만 27세", accepted: true, wantAge: 27},
		{name: "unknown token", input: "모름", accepted: true, wantAge: datatypes.AgeUnknown},
		{name: "unknown variant", input: "잘모름", accepted: true, wantAge: datatypes.AgeUnknown},
		{name: "zero rejected", input: "0", accepted: false},
		{name: "upper bound rejected", input: "120", accepted: false},
		{name: "upper bound minus one", input: "119", accepted: true, wantAge: 119},
		{name: "no digits", input: "스물일곱", accepted: false},
		{name: "empty", input: "", accepted: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sess := newTestSession()
			eng.NextQuestion(sess)

			ok, msg := eng.ApplyAnswer(sess, tc.input)

			if !tc.accepted {
				assert.False(t, ok)
				assert.Equal(t, msgAgeFormat, msg)
				assert.Equal(t, QuestionAge, sess.PendingQuestionID, "rejection keeps the question pending")
				assert.Nil(t, sess.Profile.Age)
				return
			}
			require.True(t, ok)
			assert.Empty(t, msg)
			require.NotNil(t, sess.Profile.Age)
			assert.Equal(t, tc.wantAge, *sess.Profile.Age)
			assert.Equal(t, 1, sess.OnboardingStep)
			assert.Empty(t, sess.PendingQuestionID)
		})
	}
}

func TestApplyAnswer_NoPendingQuestion(t *testing.T) {
	eng := newTestEngine(t)
	sess := newTestSession()

	ok, msg := eng.ApplyAnswer(sess, "27")

	assert.False(t, ok)
	assert.Equal(t, msgNoPending, msg)
}

func TestApplyAnswer_NormalizationRewrites(t *testing.T) {
	eng := newTestEngine(t)

	// 무직 rewrites to the catalog option for the status question.
	sess := newTestSession()
	sess.OnboardingStep = 2
	eng.NextQuestion(sess)

	ok, msg := eng.ApplyAnswer(sess, "무직")

	require.True(t, ok, msg)
	require.NotNil(t, sess.Profile.Status)
	assert.Equal(t, "구직 중(미취업)", *sess.Profile.Status)
}

func TestApplyAnswer_FreeTextFallsBackToUnknownWhenEmpty(t *testing.T) {
	eng := newTestEngine(t)
	sess := newTestSession()
	sess.OnboardingStep = 1
	eng.NextQuestion(sess)

	ok, msg := eng.ApplyAnswer(sess, "   ")

	require.True(t, ok, msg)
	require.NotNil(t, sess.Profile.Residency)
	assert.Equal(t, TokenUnknown, *sess.Profile.Residency)
}

func TestApplyAnswer_FreeTextStoredVerbatim(t *testing.T) {
	eng := newTestEngine(t)
	sess := newTestSession()
	sess.OnboardingStep = 1
	eng.NextQuestion(sess)

	ok, msg := eng.ApplyAnswer(sess, "서울 강서구")

	require.True(t, ok, msg)
	require.NotNil(t, sess.Profile.Residency)
	assert.Equal(t, "서울 강서구", *sess.Profile.Residency)
}

func TestApplyAnswer_FullWalkCompletesProfile(t *testing.T) {
	eng := newTestEngine(t)
	sess := newTestSession()

	answers := []string{"27", "서울", "구직 중(미취업)", "없음", "아니오", "1인 가구"}

	for i, ans := range answers {
		view := eng.NextQuestion(sess)
		require.NotEqual(t, QuestionDone, view.ID, "step %d", i)

		ok, msg := eng.ApplyAnswer(sess, ans)
		require.True(t, ok, "step %d: %s", i, msg)
	}

	assert.True(t, sess.Profile.IsComplete())
	assert.False(t, eng.NeedsOnboarding(sess))

	view := eng.NextQuestion(sess)
	assert.Equal(t, QuestionDone, view.ID)
}

func TestResolveOption_StrictWithoutFreeTextRejects(t *testing.T) {
	eng := newTestEngine(t)

	q := &Question{
		ID:     "synthetic",
		Prompt: "test",
		Options: []string{
			"예", "아니오",
		},
		Policy: OptionPolicy{Strict: true, AllowFreeText: false},
	}

	_, ok := eng.resolveOption(q, "글쎄요")
	assert.False(t, ok)

	v, ok := eng.resolveOption(q, "예")
	assert.True(t, ok)
	assert.Equal(t, "예", v)
}

func TestBuildOptions_Idempotent(t *testing.T) {
	eng := newTestEngine(t)

	for i := range eng.catalog.Questions {
		q := &eng.catalog.Questions[i]
		first := q.BuildOptions()
		second := q.BuildOptions()
		assert.Equal(t, first, second, "question %s", q.ID)

		seen := map[string]bool{}
		for _, opt := range second {
			assert.False(t, seen[opt], "question %s duplicates option %q", q.ID, opt)
			seen[opt] = true
		}
	}
}

func TestBuildOptions_UnknownAndNoneAppendedLast(t *testing.T) {
	eng := newTestEngine(t)

	q := eng.catalog.questionByID(QuestionWelfare)
	require.NotNil(t, q)

	opts := q.BuildOptions()
	require.NotEmpty(t, opts)
	assert.Equal(t, TokenUnknown, opts[len(opts)-1])
}
