// Package generator asks the generator model for a fresh scenario and turns
// its reply into a normalized, difficulty-adjusted Scenario.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"negotiation-tutor/internal/config"
	"negotiation-tutor/internal/curriculum"
	"negotiation-tutor/internal/difficulty"
	"negotiation-tutor/internal/jsonblock"
	"negotiation-tutor/internal/platform/logger"
	"negotiation-tutor/internal/scenario"
	"negotiation-tutor/internal/service/agent"
	"negotiation-tutor/internal/service/prompt"
)

// Temperature is kept high so repeated runs of a section produce different
// industries and products.
const Temperature = 0.8

// ErrIncompleteSection is returned when a section lacks the generation
// prompt or user message.
var ErrIncompleteSection = errors.New("section is missing prompt templates")

// ChatCompleter is the single blocking model call the generator needs.
type ChatCompleter interface {
	CompleteChat(ctx context.Context, apiKey string, msgs []agent.Message, opts ...agent.ChatOption) (string, error)
}

// State names a step of one generation request. They appear in logs and
// span events only.
type State string

const (
	StateRequested         State = "requested"
	StateGenerating        State = "generating"
	StateParsing           State = "parsing"
	StateNormalizing       State = "normalizing"
	StateDifficultyApplied State = "difficulty_applied"
	StateReady             State = "ready"
	StateFailed            State = "failed"
)

var tracer = otel.Tracer("negotiation-tutor/generator")

type Service struct {
	llm  ChatCompleter
	keys config.KeySource
	log  *logger.Logger
}

func New(llm ChatCompleter, keys config.KeySource, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{llm: llm, keys: keys, log: log}
}

// Messages builds the generation request for sec: the environment prompt,
// the user message, then the policy reminders as separate system turns.
func Messages(sec curriculum.Section) []agent.Message {
	return []agent.Message{
		{Role: agent.RoleSystem, Content: sec.EnvironmentPromptTemplate},
		{Role: agent.RoleUser, Content: sec.EnvironmentUserMessage},
		{Role: agent.RoleSystem, Content: prompt.ScenarioDiversityHint},
		{Role: agent.RoleSystem, Content: prompt.RoleEnforcementHint},
		{Role: agent.RoleSystem, Content: prompt.JSONOutputHint},
	}
}

// GenerateForSection runs one generation request. Missing keys, upstream
// failures and unparseable replies are returned as errors and not retried.
// The returned scenario belongs to the caller.
func (s *Service) GenerateForSection(ctx context.Context, sec curriculum.Section, difficultyKey string) (*scenario.Scenario, difficulty.Profile, error) {
	ctx, span := tracer.Start(ctx, "generator.GenerateForSection", trace.WithAttributes(
		attribute.String("section.id", sec.ID),
		attribute.String("chapter.id", sec.ChapterID),
		attribute.String("difficulty", difficulty.Normalize(difficultyKey)),
	))
	defer span.End()
	log := s.log.With("section_id", sec.ID, "difficulty", difficulty.Normalize(difficultyKey))

	step := func(st State) {
		span.AddEvent(string(st))
		log.Debug("scenario generation", "state", st)
	}
	fail := func(err error) (*scenario.Scenario, difficulty.Profile, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("scenario generation failed", "state", StateFailed, "error", err)
		return nil, difficulty.Profile{}, fmt.Errorf("generate scenario for %s: %w", sec.ID, err)
	}

	step(StateRequested)
	key, err := s.keys.RequireKey(config.GeneratorKey)
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(sec.EnvironmentPromptTemplate) == "" || strings.TrimSpace(sec.EnvironmentUserMessage) == "" {
		return fail(ErrIncompleteSection)
	}

	step(StateGenerating)
	raw, err := s.llm.CompleteChat(ctx, key, Messages(sec), agent.WithTemperature(Temperature))
	if err != nil {
		return fail(err)
	}

	step(StateParsing)
	m, err := jsonblock.Extract(raw)
	if err != nil {
		log.Debug("unparseable generator reply", "raw_response", raw)
		return fail(err)
	}

	step(StateNormalizing)
	sc := scenario.FromMap(m)
	sc.EnsureChineseRole(sec.TradeRole())

	out, profile := difficulty.Apply(sc, difficultyKey)
	step(StateDifficultyApplied)

	step(StateReady)
	log.Info("scenario generated", "title", out.Title)
	return out, profile, nil
}

// FromBlueprint assembles a scenario from a instructor-authored blueprint and
// applies difficulty. No model call is made.
func (s *Service) FromBlueprint(blueprint map[string]any, difficultyKey string) (*scenario.Scenario, difficulty.Profile) {
	return difficulty.Apply(scenario.FromBlueprint(blueprint), difficultyKey)
}

// ForAssignment re-applies difficulty to a stored scenario, for example one
// saved with an assignment.
func (s *Service) ForAssignment(stored map[string]any, difficultyKey string) (*scenario.Scenario, difficulty.Profile) {
	return difficulty.Apply(scenario.FromMap(stored), difficultyKey)
}
