// Package evaluation scores a practice conversation with the critic model.
package evaluation

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"negotiation-tutor/internal/config"
	"negotiation-tutor/internal/jsonblock"
	"negotiation-tutor/internal/platform/logger"
	"negotiation-tutor/internal/scenario"
	"negotiation-tutor/internal/service/agent"
	"negotiation-tutor/internal/service/document"
	"negotiation-tutor/internal/session"
)

// Temperature keeps critic scoring close to deterministic.
const Temperature = 0.2

const (
	CommentaryNotConfigured = "未配置批判評估 API Key。"
	CommentaryUnavailable   = "評估暫時無法提供，請稍後再試。"
)

// Result is one evaluation of a session. Nil pointers serialise as null.
type Result struct {
	Score             *float64 `json:"score"`
	ScoreLabel        *string  `json:"scoreLabel"`
	Commentary        string   `json:"commentary"`
	ActionItems       []string `json:"actionItems"`
	KnowledgePoints   []string `json:"knowledgePoints"`
	BargainingWinRate *float64 `json:"bargainingWinRate"`
}

// Fallback is the result returned when no model judgement is available.
func Fallback(commentary string, s *scenario.Scenario) Result {
	kp := []string{}
	if s != nil && len(s.KnowledgePoints) > 0 {
		kp = append(kp, s.KnowledgePoints...)
	}
	return Result{Commentary: commentary, ActionItems: []string{}, KnowledgePoints: kp}
}

// Decode parses a stored result. Lists are never nil in the output.
func Decode(raw json.RawMessage) (Result, error) {
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return Result{}, err
	}
	if r.ActionItems == nil {
		r.ActionItems = []string{}
	}
	if r.KnowledgePoints == nil {
		r.KnowledgePoints = []string{}
	}
	return r, nil
}

type ChatCompleter interface {
	CompleteChat(ctx context.Context, apiKey string, msgs []agent.Message, opts ...agent.ChatOption) (string, error)
}

// Store is the persistence the evaluator writes to.
type Store interface {
	GetMessages(sessionID string) ([]session.Message, error)
	SaveEvaluation(sessionID string, payload json.RawMessage) error
	MarkAssignmentCompletedBySession(sessionID string) error
}

var tracer = otel.Tracer("negotiation-tutor/evaluation")

type Service struct {
	llm   ChatCompleter
	keys  config.KeySource
	store Store
	log   *logger.Logger
}

func New(llm ChatCompleter, keys config.KeySource, store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{llm: llm, keys: keys, store: store, log: log}
}

// Evaluate never fails. A missing critic key or any upstream, parse or
// storage problem yields a fallback result so the chat turn can complete.
func (s *Service) Evaluate(ctx context.Context, sessionID string, sess session.Session) Result {
	ctx, span := tracer.Start(ctx, "evaluation.Evaluate", trace.WithAttributes(
		attribute.String("section.id", sess.SectionID),
		attribute.Bool("expects_bargaining", sess.ExpectsBargaining),
	))
	defer span.End()
	log := s.log.With("session_id", sessionID, "section_id", sess.SectionID)

	key, err := s.keys.RequireKey(config.CriticKey)
	if err != nil {
		span.AddEvent("critic key missing")
		log.Warn("evaluation skipped", "error", err)
		return Fallback(CommentaryNotConfigured, sess.Scenario)
	}

	unavailable := func(err error) Result {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("evaluation unavailable", "error", err)
		return Fallback(CommentaryUnavailable, sess.Scenario)
	}

	history, err := s.store.GetMessages(sessionID)
	if err != nil {
		return unavailable(err)
	}
	msgs := []agent.Message{
		{Role: agent.RoleSystem, Content: sess.EvaluationPrompt},
		{Role: agent.RoleUser, Content: document.BuildTranscript(history, sess.Scenario)},
	}
	raw, err := s.llm.CompleteChat(ctx, key, msgs, agent.WithTemperature(Temperature))
	if err != nil {
		return unavailable(err)
	}
	data, err := jsonblock.ExtractLenient(raw, resultKeys...)
	if err != nil {
		log.Debug("unparseable critic reply", "raw_response", raw)
		return unavailable(err)
	}

	res := fromModel(data, sess)
	payload, err := json.Marshal(res)
	if err == nil {
		err = s.store.SaveEvaluation(sessionID, payload)
	}
	if err != nil {
		log.Error("save evaluation", "error", err)
		return res
	}
	if sess.AssignmentID != "" {
		if err := s.store.MarkAssignmentCompletedBySession(sessionID); err != nil {
			log.Error("mark assignment completed", "assignment_id", sess.AssignmentID, "error", err)
		}
	}
	log.Info("session evaluated", "score", res.Score)
	return res
}

// resultKeys are the fields the critic is asked to return.
var resultKeys = []string{"score", "score_label", "commentary", "action_items", "knowledge_points", "bargaining_win_rate"}

func fromModel(data map[string]any, sess session.Session) Result {
	res := Result{
		Commentary:      scenario.NormalizeText(data["commentary"]),
		ActionItems:     asList(data["action_items"]),
		KnowledgePoints: asList(data["knowledge_points"]),
	}
	if len(res.KnowledgePoints) == 0 && sess.Scenario != nil && len(sess.Scenario.KnowledgePoints) > 0 {
		res.KnowledgePoints = append(res.KnowledgePoints, sess.Scenario.KnowledgePoints...)
	}
	if v, ok := number(data["score"]); ok {
		res.Score = &v
	}
	if label := scenario.NormalizeText(data["score_label"]); label != "" {
		res.ScoreLabel = &label
	}
	if sess.ExpectsBargaining {
		if v, ok := number(data["bargaining_win_rate"]); ok {
			res.BargainingWinRate = &v
		}
	}
	return res
}

// asList wraps a bare scalar into a one-element list.
func asList(v any) []string {
	switch v.(type) {
	case []any, []string:
		return scenario.NormalizeList(v)
	}
	if s := scenario.NormalizeText(v); s != "" {
		return []string{s}
	}
	return []string{}
}

func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return scenario.ExtractNumber(v)
}
