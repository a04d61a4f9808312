// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services holds the answer pipeline that sits between the HTTP
// handlers and the LLM, retrieval, and intent backends.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/policylab/youthchat/services/intent"
	"github.com/policylab/youthchat/services/llm"
	"github.com/policylab/youthchat/services/orchestrator/datatypes"
	"github.com/policylab/youthchat/services/orchestrator/retrieval"
)

var tracer = otel.Tracer("youthchat.orchestrator.services")

// Pipeline tuning. The confidence floor decides when retrieval evidence is
// strong enough to ground a full answer; below it the model only gets the
// single best chunk and is steered toward saying the documents are thin.
const (
	DefaultMinTopScore       = 0.55
	DefaultGenerationTimeout = 180 * time.Second

	maxCtxRunesPerChunk = 900
	historyTurns        = 8
	answerTopK          = retrieval.DefaultTopK
)

// Canned replies used when a backend fails. Users always get natural
// language, never a transport error.
const (
	fallbackLowConfidence = "현재 보유 문서에서 질문과 직접 연결되는 근거를 찾기 어렵습니다.\n" +
		"정확한 안내를 위해 정책명을 조금 더 구체적으로 적어주시거나, 해당 정책 PDF를 데이터에 추가해 주세요."

	fallbackGenerationError = "지금은 답변을 만드는 과정에서 오류가 발생했어요.\n" +
		"질문을 조금 더 짧게/구체적으로 다시 보내주시거나, 잠시 후 다시 시도해 주세요."
)

// ChunkRetriever is the slice of the retrieval package the pipeline needs.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Chunk, error)
}

// Result is one pipeline outcome. Exactly one of the flag combinations
// holds: a confirmation prompt, a grounded answer, a low-confidence
// answer, or a canned fallback after a backend failure.
type Result struct {
	Text          string
	Intent        string
	Confirmation  bool
	LowConfidence bool
	Fallback      bool
	FailureKind   llm.FailureKind
}

// AnswerService runs the question-to-answer pipeline: intent detection,
// the policy confirmation gate, profile-aware retrieval, prompt assembly,
// and generation with canned fallbacks.
//
// The service is stateless and safe for concurrent use; per-user state is
// read from the session, which the caller must hold locked for the whole
// call.
type AnswerService struct {
	llmClient   llm.LLMClient
	retriever   ChunkRetriever
	intents     *intent.Engine
	minTopScore float64
	genTimeout  time.Duration
}

// NewAnswerService wires the pipeline. minTopScore at or below zero and a
// non-positive timeout fall back to the defaults.
func NewAnswerService(llmClient llm.LLMClient, retriever ChunkRetriever, intents *intent.Engine,
	minTopScore float64, genTimeout time.Duration) *AnswerService {

	if minTopScore <= 0 {
		minTopScore = DefaultMinTopScore
	}
	if genTimeout <= 0 {
		genTimeout = DefaultGenerationTimeout
	}
	return &AnswerService{
		llmClient:   llmClient,
		retriever:   retriever,
		intents:     intents,
		minTopScore: minTopScore,
		genTimeout:  genTimeout,
	}
}

// Answer runs one question through the pipeline. It never returns an
// error: backend failures degrade to canned Korean fallbacks and the
// failure classification is reported on the Result for logging and
// metrics.
//
// The caller must hold the session lock.
func (s *AnswerService) Answer(ctx context.Context, question string, sess *datatypes.Session) Result {
	ctx, span := tracer.Start(ctx, "AnswerService.Answer")
	defer span.End()

	intentID := s.intents.Detect(question)

	// Confirmation gate runs before any retrieval. Half keywords like
	// "장려금" match several policies; answering eligibility on a guess
	// is how hallucinated requirements get shipped to users.
	if s.intents.NeedsConfirmation(question, intentID) {
		slog.Info("Policy confirmation required", "session_id", sess.SessionID, "intent", intentID)
		return Result{Text: s.intents.ConfirmationMessage(), Intent: intentID, Confirmation: true}
	}

	userContext := buildUserContext(&sess.Profile, &sess.Followups)
	retrievalQuery := question + "\n\n[사용자 정보]\n" + userContext

	chunks, err := s.retriever.Retrieve(ctx, retrievalQuery, answerTopK)
	if err != nil {
		// Retrieval down is survivable: continue with no evidence so
		// the model produces the "documents are thin" answer shape.
		slog.Error("Retrieval failed, continuing without context",
			"session_id", sess.SessionID, "error", err)
		chunks = nil
	}

	lowConfidence := len(chunks) == 0 || chunks[0].Score < s.minTopScore
	promptChunks := chunks
	if lowConfidence && len(chunks) > 1 {
		promptChunks = chunks[:1]
	}

	prompt := buildPrompt(question, promptChunks, userContext, sess.RecentMessages(historyTurns), intentID)

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	text, err := s.llmClient.Generate(genCtx, prompt, llm.GenerationParams{})
	if err != nil {
		kind := llm.KindOf(err)
		slog.Error("Generation failed", "session_id", sess.SessionID,
			"failure_kind", kind, "low_confidence", lowConfidence, "error", err)
		msg := fallbackGenerationError
		if lowConfidence {
			msg = fallbackLowConfidence
		}
		return Result{Text: msg, Intent: intentID, LowConfidence: lowConfidence,
			Fallback: true, FailureKind: kind}
	}

	return Result{Text: text, Intent: intentID, LowConfidence: lowConfidence}
}

// buildUserContext renders the profile and follow-up answers as the
// bullet block embedded in prompts. Unanswered fields render as "모름" so
// the model never sees empty slots it might fill by guessing.
func buildUserContext(profile *datatypes.UserProfile, followups *datatypes.FollowupAnswers) string {
	lines := []string{
		"- 만 나이: " + renderAge(profile.Age),
		"- 거주지: " + renderField(profile.Residency),
		"- 현재 상태: " + renderField(profile.Status),
		"- 최근 6개월 근로 이력: " + renderField(profile.WorkLast6m),
		"- 기초생활수급/차상위 여부: " + renderField(profile.Welfare),
		"- 가구/세대 형태: " + renderField(profile.Household),
	}

	followupFields := []struct {
		key string
		val *string
	}{
		{"employment_type", followups.EmploymentType},
		{"ei_insured", followups.EIInsured},
		{"company_size", followups.CompanySize},
		{"seoul_residency_months", followups.SeoulResidencyMonths},
	}
	var extra []string
	for _, f := range followupFields {
		if f.val == nil {
			continue
		}
		s := strings.TrimSpace(*f.val)
		if s != "" {
			extra = append(extra, "- "+f.key+": "+s)
		}
	}
	if len(extra) > 0 {
		lines = append(lines, "", "[추가 정보]")
		lines = append(lines, extra...)
	}

	return strings.Join(lines, "\n")
}

func renderField(v *string) string {
	if v == nil {
		return "모름"
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return "모름"
	}
	return s
}

func renderAge(v *int) string {
	if v == nil || *v == datatypes.AgeUnknown {
		return "모름"
	}
	return fmt.Sprintf("%d", *v)
}

// buildPrompt assembles the full generation prompt: persona and rules,
// user profile, recent history, a weak intent hint, the question, and the
// evidence block.
func buildPrompt(question string, chunks []retrieval.Chunk, userContext string,
	history []datatypes.ChatMessage, intentID string) string {

	var ctxLines []string
	for i, c := range chunks {
		text := c.Text
		if runes := []rune(text); len(runes) > maxCtxRunesPerChunk {
			text = string(runes[:maxCtxRunesPerChunk]) + "\n...(생략)"
		}
		ctxLines = append(ctxLines, fmt.Sprintf("[%d] (%s p.%d)\n%s", i+1, c.Source, c.Page, text))
	}
	ctxBlock := strings.TrimSpace(strings.Join(ctxLines, "\n\n"))
	if ctxBlock == "" {
		ctxBlock = "(관련 문서 발췌가 충분하지 않음)"
	}

	var histLines []string
	for _, m := range history {
		histLines = append(histLines, m.Role+": "+m.Content)
	}
	histBlock := strings.Join(histLines, "\n")

	// Intent is a hint only. Policy identity is settled by the
	// confirmation gate, not by the model.
	intentHint := ""
	if intentID != "" {
		intentHint = fmt.Sprintf("- 시스템 추정 intent: %s (참고용, 확정 아님)", intentID)
	}

	return strings.TrimSpace(fmt.Sprintf(`
너는 '청년 정책 상담사'다. 사용자는 비전공자이며 문서 용어에 익숙하지 않다.

[최우선 규칙]
- JSON 출력 금지.
- 문서 출처만 나열 금지.
- 문서에 없는 내용은 추측 금지. (추측 대신 '문서에 명시 없음' + 다음 액션 제시)
- 정책명이 불명확하면 절대 요건/자격을 단정하지 말고, 먼저 정책명을 확인하는 질문을 한다.

[사용자 프로필]
%s

[최근 대화]
%s

[시스템 힌트]
%s

[사용자 질문]
%s

[근거 문서 발췌(Context)]
%s

[답변 구조]
1) 지금 상태에서 할 수 있는 1차 답변(짧게)
2) 근거가 충분하면 조건/요건을 쉬운 말로 정리
3) 근거가 부족하면 "현재 보유 문서에 명시가 부족"이라고 말하고 (문서 추가/질문 구체화) 유도
4) 추가 질문은 1~2개만, 선택지 강제 금지
`, userContext, histBlock, intentHint, question, ctxBlock))
}
