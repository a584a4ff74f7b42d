// Package practice runs student practice sessions: starting a level,
// exchanging chat turns with the collaborator model, and resetting.
package practice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"negotiation-tutor/internal/config"
	"negotiation-tutor/internal/curriculum"
	"negotiation-tutor/internal/difficulty"
	"negotiation-tutor/internal/platform/logger"
	"negotiation-tutor/internal/scenario"
	"negotiation-tutor/internal/service/agent"
	"negotiation-tutor/internal/service/document"
	"negotiation-tutor/internal/service/evaluation"
	"negotiation-tutor/internal/service/render"
	"negotiation-tutor/internal/session"
)

// Temperature for collaborator replies.
const Temperature = 0.7

// NoReply replaces an empty streamed reply.
const NoReply = "(no valid reply received)"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrGeneration   = errors.New("failed to generate scenario")
	ErrReply        = errors.New("failed to fetch assistant reply")
)

type SectionSource interface {
	Section(chapterID, sectionID string) (curriculum.Section, error)
}

// ScenarioSource produces scenarios from a section, a blueprint or a stored
// scenario.
type ScenarioSource interface {
	GenerateForSection(ctx context.Context, sec curriculum.Section, difficultyKey string) (*scenario.Scenario, difficulty.Profile, error)
	FromBlueprint(blueprint map[string]any, difficultyKey string) (*scenario.Scenario, difficulty.Profile)
	ForAssignment(stored map[string]any, difficultyKey string) (*scenario.Scenario, difficulty.Profile)
}

// Collaborator is the model playing the counterpart.
type Collaborator interface {
	CompleteChat(ctx context.Context, apiKey string, msgs []agent.Message, opts ...agent.ChatOption) (string, error)
	StreamChat(ctx context.Context, apiKey string, msgs []agent.Message, handler agent.StreamHandler, opts ...agent.ChatOption) (string, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, sessionID string, sess session.Session) evaluation.Result
}

type Store interface {
	Create(s session.Session) (session.Session, error)
	Get(id string) (session.Session, error)
	AddMessage(id, role, content string) error
	GetMessages(id string) ([]session.Message, error)
	RemoveLastMessage(id string) error
	Reset(id string) error
	LatestEvaluation(id string) (json.RawMessage, error)
}

type Service struct {
	sections  SectionSource
	scenarios ScenarioSource
	collab    Collaborator
	evaluator Evaluator
	store     Store
	keys      config.KeySource
	log       *logger.Logger
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Sections  SectionSource
	Scenarios ScenarioSource
	Collab    Collaborator
	Evaluator Evaluator
	Store     Store
	Keys      config.KeySource
	Log       *logger.Logger
}

func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return &Service{
		sections:  d.Sections,
		scenarios: d.Scenarios,
		collab:    d.Collab,
		evaluator: d.Evaluator,
		store:     d.Store,
		keys:      d.Keys,
		log:       d.Log,
	}
}

// Start is the response of every session start or reset.
type Start struct {
	SessionID             string         `json:"sessionId"`
	Scenario              render.Payload `json:"scenario"`
	OpeningMessage        string         `json:"openingMessage"`
	KnowledgePoints       []string       `json:"knowledgePoints"`
	ChapterID             string         `json:"chapterId"`
	SectionID             string         `json:"sectionId"`
	Difficulty            string         `json:"difficulty"`
	DifficultyLabel       string         `json:"difficultyLabel"`
	DifficultyDescription string         `json:"difficultyDescription"`
}

// Generated is a scenario produced for a section without opening a session.
type Generated struct {
	Scenario              *scenario.Scenario `json:"scenario"`
	Difficulty            string             `json:"difficulty"`
	DifficultyLabel       string             `json:"difficultyLabel"`
	DifficultyDescription string             `json:"difficultyDescription"`
	ChapterID             string             `json:"chapterId"`
	SectionID             string             `json:"sectionId"`

	section curriculum.Section
	profile difficulty.Profile
}

// Generate asks the generator model for a scenario for one section.
func (s *Service) Generate(ctx context.Context, chapterID, sectionID, difficultyKey string) (Generated, error) {
	if strings.TrimSpace(chapterID) == "" || strings.TrimSpace(sectionID) == "" {
		return Generated{}, fmt.Errorf("%w: chapterId and sectionId are required", ErrInvalidInput)
	}
	key := difficulty.Normalize(difficultyKey)
	sec, err := s.sections.Section(chapterID, sectionID)
	if err != nil {
		return Generated{}, err
	}
	sc, profile, err := s.scenarios.GenerateForSection(ctx, sec, key)
	if err != nil {
		return Generated{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return Generated{
		Scenario:              sc,
		Difficulty:            profile.Key,
		DifficultyLabel:       profile.Label,
		DifficultyDescription: profile.Description,
		ChapterID:             chapterID,
		SectionID:             sectionID,
		section:               sec,
		profile:               profile,
	}, nil
}

// StartLevel generates a fresh scenario for a curriculum section and opens a
// session on it.
func (s *Service) StartLevel(ctx context.Context, userID, chapterID, sectionID, difficultyKey string) (Start, error) {
	g, err := s.Generate(ctx, chapterID, sectionID, difficultyKey)
	if err != nil {
		return Start{}, err
	}
	prompts := render.FromSection(g.section, g.Scenario, g.profile)

	sess, err := s.store.Create(session.Session{
		UserID:            userID,
		ChapterID:         chapterID,
		SectionID:         sectionID,
		Scenario:          g.Scenario,
		SystemPrompt:      prompts.Conversation,
		EvaluationPrompt:  prompts.Evaluation,
		ExpectsBargaining: g.section.ExpectsBargaining,
		Difficulty:        g.Difficulty,
	})
	if err != nil {
		return Start{}, err
	}
	s.log.Info("session started", "session_id", sess.ID, "section_id", sectionID, "difficulty", g.Difficulty)
	return s.open(sess)
}

// Assignment describes an instructor-prepared scenario. Scenario is used when it
// carries a scenario_title; otherwise Blueprint is assembled. With a chapter
// and section the section's templates render the prompts.
type Assignment struct {
	// AssignmentID, when set, is marked completed once a turn is evaluated.
	AssignmentID string         `json:"assignmentId"`
	ChapterID    string         `json:"chapterId"`
	SectionID    string         `json:"sectionId"`
	Difficulty   string         `json:"difficulty"`
	Scenario     map[string]any `json:"scenario"`
	Blueprint    map[string]any `json:"blueprint"`
}

// Prepared is an assignment resolved into a scenario and prompts.
type Prepared struct {
	Scenario          *scenario.Scenario
	Profile           difficulty.Profile
	Prompts           render.PromptPair
	ExpectsBargaining bool
}

// Prepare resolves an assignment without creating a session.
func (s *Service) Prepare(a Assignment) (Prepared, error) {
	key := a.Difficulty
	if key == "" {
		key = scenario.FirstNonEmpty(a.Scenario, "difficulty")
	}
	if key == "" {
		key = scenario.FirstNonEmpty(a.Blueprint, "difficulty")
	}

	_, titled := a.Scenario["scenario_title"]
	var p Prepared
	switch {
	case titled:
		p.Scenario, p.Profile = s.scenarios.ForAssignment(a.Scenario, key)
	case a.Blueprint != nil:
		p.Scenario, p.Profile = s.scenarios.FromBlueprint(a.Blueprint, key)
	default:
		return Prepared{}, fmt.Errorf("%w: scenario or blueprint data is required", ErrInvalidInput)
	}

	if a.ChapterID != "" && a.SectionID != "" {
		sec, err := s.sections.Section(a.ChapterID, a.SectionID)
		if err != nil {
			return Prepared{}, err
		}
		p.Prompts = render.FromSection(sec, p.Scenario, p.Profile)
		p.ExpectsBargaining = sec.ExpectsBargaining
		return p, nil
	}
	p.Prompts = render.ForCustomAssignment(p.Scenario, p.Profile)
	if pe := p.Scenario.Product.PriceExpectation; pe != nil {
		p.ExpectsBargaining = pe.StudentTarget != "" || pe.AIBottomLine != ""
	}
	return p, nil
}

// StartFromBlueprint opens a session on a instructor-prepared scenario. No
// model call is made.
func (s *Service) StartFromBlueprint(ctx context.Context, userID string, a Assignment) (Start, error) {
	p, err := s.Prepare(a)
	if err != nil {
		return Start{}, err
	}
	sess, err := s.store.Create(session.Session{
		UserID:            userID,
		ChapterID:         a.ChapterID,
		SectionID:         a.SectionID,
		Scenario:          p.Scenario,
		SystemPrompt:      p.Prompts.Conversation,
		EvaluationPrompt:  p.Prompts.Evaluation,
		ExpectsBargaining: p.ExpectsBargaining,
		Difficulty:        p.Profile.Key,
		AssignmentID:      a.AssignmentID,
	})
	if err != nil {
		return Start{}, err
	}
	s.log.Info("blueprint session started", "session_id", sess.ID, "assignment_id", a.AssignmentID, "difficulty", p.Profile.Key)
	return s.open(sess)
}

// Reset clears a session's history and re-sends the opening message.
func (s *Service) Reset(ctx context.Context, sessionID string) (Start, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return Start{}, err
	}
	if err := s.store.Reset(sessionID); err != nil {
		return Start{}, err
	}
	return s.open(sess)
}

// open stores the opening message and builds the start response.
func (s *Service) open(sess session.Session) (Start, error) {
	opening := document.OpeningMessage(sess.SectionID, sess.Scenario)
	if opening != "" {
		if err := s.store.AddMessage(sess.ID, agent.RoleAssistant, opening); err != nil {
			return Start{}, err
		}
	}
	key := sess.Difficulty
	if key == "" {
		key = difficulty.Default
	}
	profile := difficulty.Lookup(key)
	kp := []string{}
	if sess.Scenario != nil {
		kp = append(kp, sess.Scenario.KnowledgePoints...)
	}
	return Start{
		SessionID:             sess.ID,
		Scenario:              render.BuildPayload(sess.Scenario),
		OpeningMessage:        opening,
		KnowledgePoints:       kp,
		ChapterID:             sess.ChapterID,
		SectionID:             sess.SectionID,
		Difficulty:            key,
		DifficultyLabel:       profile.Label,
		DifficultyDescription: profile.Description,
	}, nil
}

// Turn is the outcome of one chat exchange.
type Turn struct {
	Reply      string            `json:"reply"`
	Evaluation evaluation.Result `json:"evaluation"`
}

// Reply sends the student's message to the collaborator and evaluates the
// conversation. If the collaborator fails, the student's message is removed
// again so the history stays consistent.
func (s *Service) Reply(ctx context.Context, sessionID, text string) (Turn, error) {
	return s.turn(ctx, sessionID, text, func(ctx context.Context, key string, msgs []agent.Message) (string, error) {
		return s.collab.CompleteChat(ctx, key, msgs, agent.WithTemperature(Temperature))
	})
}

// ReplyStream is Reply with incremental delivery: onChunk receives each
// delta as it arrives and may return false to stop the stream.
func (s *Service) ReplyStream(ctx context.Context, sessionID, text string, onChunk agent.StreamHandler) (Turn, error) {
	if onChunk == nil {
		onChunk = func(string) bool { return true }
	}
	return s.turn(ctx, sessionID, text, func(ctx context.Context, key string, msgs []agent.Message) (string, error) {
		return s.collab.StreamChat(ctx, key, msgs, onChunk, agent.WithTemperature(Temperature))
	})
}

type replyFunc func(ctx context.Context, key string, msgs []agent.Message) (string, error)

// CheckTurn runs the checks of a chat turn without sending anything: the
// collaborator key, the input, then the session.
func (s *Service) CheckTurn(sessionID, text string) error {
	_, _, err := s.prepareTurn(sessionID, text)
	return err
}

func (s *Service) prepareTurn(sessionID, text string) (string, session.Session, error) {
	key, err := s.keys.RequireKey(config.CollaboratorKey)
	if err != nil {
		return "", session.Session{}, err
	}
	if sessionID == "" || strings.TrimSpace(text) == "" {
		return "", session.Session{}, fmt.Errorf("%w: sessionId and message are required", ErrInvalidInput)
	}
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return "", session.Session{}, err
	}
	return key, sess, nil
}

func (s *Service) turn(ctx context.Context, sessionID, text string, call replyFunc) (Turn, error) {
	key, sess, err := s.prepareTurn(sessionID, text)
	if err != nil {
		return Turn{}, err
	}
	text = strings.TrimSpace(text)
	log := s.log.With("session_id", sessionID)

	if err := s.store.AddMessage(sessionID, agent.RoleUser, text); err != nil {
		return Turn{}, err
	}
	history, err := s.store.GetMessages(sessionID)
	if err != nil {
		return Turn{}, err
	}
	msgs := make([]agent.Message, 0, len(history)+1)
	msgs = append(msgs, agent.Message{Role: agent.RoleSystem, Content: sess.SystemPrompt})
	for _, m := range history {
		msgs = append(msgs, agent.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := call(ctx, key, msgs)
	if err != nil {
		if rerr := s.store.RemoveLastMessage(sessionID); rerr != nil {
			log.Error("remove student message", "error", rerr)
		}
		if errors.Is(err, agent.ErrStreamStopped) {
			log.Info("reply stream stopped before completion", "partial_len", len(reply))
		} else {
			log.Warn("collaborator reply failed", "error", err)
		}
		return Turn{}, fmt.Errorf("%w: %w", ErrReply, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = NoReply
	}
	if err := s.store.AddMessage(sessionID, agent.RoleAssistant, reply); err != nil {
		return Turn{}, err
	}

	result := s.evaluator.Evaluate(ctx, sessionID, sess)
	if raw, err := s.store.LatestEvaluation(sessionID); err == nil && raw != nil {
		if stored, err := evaluation.Decode(raw); err == nil {
			result = stored
		}
	}
	return Turn{Reply: reply, Evaluation: result}, nil
}

// SessionView is the client view of a session.
type SessionView struct {
	ID                    string         `json:"id"`
	ChapterID             string         `json:"chapterId"`
	SectionID             string         `json:"sectionId"`
	Scenario              render.Payload `json:"scenario"`
	ExpectsBargaining     bool           `json:"expectsBargaining"`
	Difficulty            string         `json:"difficulty"`
	DifficultyLabel       string         `json:"difficultyLabel"`
	DifficultyDescription string         `json:"difficultyDescription"`
}

// Detail is a session with its history and latest evaluation.
type Detail struct {
	Session    SessionView        `json:"session"`
	Messages   []session.Message  `json:"messages"`
	Evaluation *evaluation.Result `json:"evaluation"`
}

func (s *Service) Detail(sessionID string) (Detail, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return Detail{}, err
	}
	history, err := s.store.GetMessages(sessionID)
	if err != nil {
		return Detail{}, err
	}
	profile := difficulty.Lookup(sess.Difficulty)
	d := Detail{
		Session: SessionView{
			ID:                    sess.ID,
			ChapterID:             sess.ChapterID,
			SectionID:             sess.SectionID,
			Scenario:              render.BuildPayload(sess.Scenario),
			ExpectsBargaining:     sess.ExpectsBargaining,
			Difficulty:            profile.Key,
			DifficultyLabel:       profile.Label,
			DifficultyDescription: profile.Description,
		},
		Messages: append([]session.Message{}, history...),
	}
	if raw, err := s.store.LatestEvaluation(sessionID); err == nil && raw != nil {
		if r, err := evaluation.Decode(raw); err == nil {
			d.Evaluation = &r
		}
	}
	return d, nil
}
