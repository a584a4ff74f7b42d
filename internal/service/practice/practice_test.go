package practice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"negotiation-tutor/internal/config"
	"negotiation-tutor/internal/curriculum"
	"negotiation-tutor/internal/difficulty"
	"negotiation-tutor/internal/service/agent"
	"negotiation-tutor/internal/service/evaluation"
	"negotiation-tutor/internal/service/generator"
	"negotiation-tutor/internal/session"
)

type fakeModel struct {
	reply string
	err   error
	msgs  []agent.Message
	calls int
}

func (f *fakeModel) CompleteChat(_ context.Context, _ string, msgs []agent.Message, _ ...agent.ChatOption) (string, error) {
	f.calls++
	f.msgs = msgs
	return f.reply, f.err
}

type fakeCollab struct {
	fakeModel
	chunks []string
	failAt int
}

func (f *fakeCollab) StreamChat(_ context.Context, _ string, msgs []agent.Message, h agent.StreamHandler, _ ...agent.ChatOption) (string, error) {
	f.msgs = msgs
	out := ""
	for i, c := range f.chunks {
		if f.err != nil && i == f.failAt {
			return out, f.err
		}
		out += c
		if !h(c) {
			return out, agent.ErrStreamStopped
		}
	}
	return out, nil
}

const generated = `{"scenario_title": "Valve export", "student_role": "Procurement Lead",
 "ai_company": {"name": "Delta Valves"}, "knowledge_points": ["Anchoring"],
 "product": {"name": "Ball valve", "price_expectation": {"student_target": "USD 8", "ai_bottom_line": "USD 9"}},
 "opening_message": "Hello, thanks for meeting with Delta Valves today."}`

type harness struct {
	svc    *Service
	store  *session.MemoryStore
	gen    *fakeModel
	collab *fakeCollab
	critic *fakeModel
}

func allKeys() config.StaticKeys {
	return config.StaticKeys{
		config.GeneratorKey:    "g",
		config.CriticKey:       "c",
		config.CollaboratorKey: "k",
	}
}

func newHarness(t *testing.T, keys config.StaticKeys) *harness {
	t.Helper()
	sections, err := curriculum.Default()
	require.NoError(t, err)
	h := &harness{
		store:  session.NewMemoryStore(),
		gen:    &fakeModel{reply: generated},
		collab: &fakeCollab{fakeModel: fakeModel{reply: "We can offer USD 9.40."}},
		critic: &fakeModel{reply: `{"score": 74, "commentary": "Good start", "bargaining_win_rate": 40}`},
	}
	h.svc = New(Deps{
		Sections:  sections,
		Scenarios: generator.New(h.gen, keys, nil),
		Collab:    h.collab,
		Evaluator: evaluation.New(h.critic, keys, h.store, nil),
		Store:     h.store,
		Keys:      keys,
	})
	return h
}

func (h *harness) start(t *testing.T) Start {
	t.Helper()
	st, err := h.svc.StartLevel(context.Background(), "u1", "chapter-2", "chapter-2-section-1", "TOUGH")
	require.NoError(t, err)
	return st
}

func TestStartLevel(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)

	assert.Len(t, st.SessionID, 32)
	assert.Equal(t, "tough", st.Difficulty)
	assert.Equal(t, difficulty.Lookup("tough").Label, st.DifficultyLabel)
	assert.Equal(t, "Valve export", st.Scenario.Title)
	assert.Equal(t, "Hello, thanks for meeting with Delta Valves today.", st.OpeningMessage)
	assert.Equal(t, []string{"Anchoring"}, st.KnowledgePoints)
	assert.Equal(t, "chapter-2-section-1", st.SectionID)

	sess, err := h.store.Get(st.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.ExpectsBargaining)
	assert.Contains(t, sess.SystemPrompt, difficulty.Lookup("tough").PromptSuffix)
	assert.Contains(t, sess.Scenario.StudentRole, "中国")

	msgs, _ := h.store.GetMessages(st.SessionID)
	require.Len(t, msgs, 1)
	assert.Equal(t, agent.RoleAssistant, msgs[0].Role)
}

func TestStartLevel_Errors(t *testing.T) {
	h := newHarness(t, allKeys())
	ctx := context.Background()

	_, err := h.svc.StartLevel(ctx, "u1", "", "chapter-2-section-1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.svc.StartLevel(ctx, "u1", "chapter-9", "chapter-9-section-1", "")
	assert.ErrorIs(t, err, curriculum.ErrSectionNotFound)

	h.gen.reply = "no json here"
	_, err = h.svc.StartLevel(ctx, "u1", "chapter-2", "chapter-2-section-1", "")
	assert.ErrorIs(t, err, ErrGeneration)

	noGen := newHarness(t, config.StaticKeys{})
	_, err = noGen.svc.StartLevel(ctx, "u1", "chapter-2", "chapter-2-section-1", "")
	var missing *config.MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, config.GeneratorKey, missing.Name)
}

func TestReply(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)

	turn, err := h.svc.Reply(context.Background(), st.SessionID, "  Could you do USD 8.50?  ")
	require.NoError(t, err)
	assert.Equal(t, "We can offer USD 9.40.", turn.Reply)
	require.NotNil(t, turn.Evaluation.Score)
	assert.Equal(t, 74.0, *turn.Evaluation.Score)
	require.NotNil(t, turn.Evaluation.BargainingWinRate)

	require.Len(t, h.collab.msgs, 3)
	assert.Equal(t, agent.RoleSystem, h.collab.msgs[0].Role)
	assert.Equal(t, agent.Message{Role: agent.RoleUser, Content: "Could you do USD 8.50?"}, h.collab.msgs[2])

	msgs, _ := h.store.GetMessages(st.SessionID)
	require.Len(t, msgs, 3)
	assert.Equal(t, "We can offer USD 9.40.", msgs[2].Content)
}

func TestReply_CollaboratorFailureRollsBack(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)
	boom := errors.New("upstream 503")
	h.collab.err = boom

	_, err := h.svc.Reply(context.Background(), st.SessionID, "Hello?")
	assert.ErrorIs(t, err, ErrReply)
	assert.ErrorIs(t, err, boom)

	msgs, _ := h.store.GetMessages(st.SessionID)
	assert.Len(t, msgs, 1, "only the opening message remains")
	saved, _ := h.store.LatestEvaluation(st.SessionID)
	assert.Nil(t, saved)
}

func TestReply_KeyCheckedBeforeInput(t *testing.T) {
	h := newHarness(t, config.StaticKeys{config.GeneratorKey: "g"})
	_, err := h.svc.Reply(context.Background(), "", "")
	var missing *config.MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, config.CollaboratorKey, missing.Name)

	h = newHarness(t, allKeys())
	_, err = h.svc.Reply(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.Reply(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestReply_WithoutCriticKeyStillCompletes(t *testing.T) {
	keys := allKeys()
	delete(keys, config.CriticKey)
	h := newHarness(t, keys)
	st := h.start(t)

	turn, err := h.svc.Reply(context.Background(), st.SessionID, "Hi")
	require.NoError(t, err)
	assert.Equal(t, evaluation.CommentaryNotConfigured, turn.Evaluation.Commentary)
	assert.Equal(t, []string{"Anchoring"}, turn.Evaluation.KnowledgePoints)
}

func TestReplyStream(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)
	h.collab.chunks = []string{"We can ", "meet at ", "USD 9.20."}

	var got []string
	turn, err := h.svc.ReplyStream(context.Background(), st.SessionID, "Price?", func(d string) bool {
		got = append(got, d)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"We can ", "meet at ", "USD 9.20."}, got)
	assert.Equal(t, "We can meet at USD 9.20.", turn.Reply)
}

func TestReplyStream_EmptyAndFailure(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)

	h.collab.chunks = []string{"   "}
	turn, err := h.svc.ReplyStream(context.Background(), st.SessionID, "Price?", nil)
	require.NoError(t, err)
	assert.Equal(t, NoReply, turn.Reply)

	h.collab.chunks = []string{"partial", "never"}
	h.collab.err = errors.New("stream reset")
	h.collab.failAt = 1
	_, err = h.svc.ReplyStream(context.Background(), st.SessionID, "Again?", nil)
	assert.ErrorIs(t, err, ErrReply)

	msgs, _ := h.store.GetMessages(st.SessionID)
	require.Len(t, msgs, 3)
	assert.Equal(t, NoReply, msgs[2].Content)
}

func TestReplyStream_HandlerStopDiscardsTurn(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)

	h.collab.chunks = []string{"We can", " offer", " USD 9"}
	var seen []string
	_, err := h.svc.ReplyStream(context.Background(), st.SessionID, "Price?", func(d string) bool {
		seen = append(seen, d)
		return false
	})
	assert.ErrorIs(t, err, ErrReply)
	assert.ErrorIs(t, err, agent.ErrStreamStopped)
	assert.Equal(t, []string{"We can"}, seen)

	msgs, _ := h.store.GetMessages(st.SessionID)
	require.Len(t, msgs, 1, "student message rolled back and partial reply dropped")
	assert.Equal(t, agent.RoleAssistant, msgs[0].Role)
	assert.Zero(t, h.critic.calls, "truncated turn is not evaluated")
	raw, err := h.store.LatestEvaluation(st.SessionID)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestReset(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)
	_, err := h.svc.Reply(context.Background(), st.SessionID, "Hi")
	require.NoError(t, err)

	again, err := h.svc.Reset(context.Background(), st.SessionID)
	require.NoError(t, err)
	assert.Equal(t, st, again)

	msgs, _ := h.store.GetMessages(st.SessionID)
	assert.Len(t, msgs, 1)
	d, err := h.svc.Detail(st.SessionID)
	require.NoError(t, err)
	assert.Nil(t, d.Evaluation)

	_, err = h.svc.Reset(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDetail(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)
	_, err := h.svc.Reply(context.Background(), st.SessionID, "Hi")
	require.NoError(t, err)

	d, err := h.svc.Detail(st.SessionID)
	require.NoError(t, err)
	assert.Equal(t, st.SessionID, d.Session.ID)
	assert.Equal(t, "chapter-2", d.Session.ChapterID)
	assert.True(t, d.Session.ExpectsBargaining)
	assert.Equal(t, "tough", d.Session.Difficulty)
	assert.Len(t, d.Messages, 3)
	require.NotNil(t, d.Evaluation)
	assert.Equal(t, "Good start", d.Evaluation.Commentary)
}

func TestStartFromBlueprint(t *testing.T) {
	h := newHarness(t, allKeys())
	st, err := h.svc.StartFromBlueprint(context.Background(), "u1", Assignment{
		Difficulty: "friendly",
		Blueprint: map[string]any{
			"scenarioTitle": "Tile order",
			"aiRole":        "Export Manager",
			"product":       map[string]any{"name": "Ceramic tile", "price_expectation": map[string]any{"student_target": "USD 3"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "friendly", st.Difficulty)
	assert.Equal(t, "Tile order", st.Scenario.Title)
	assert.Contains(t, st.OpeningMessage, "Export Manager")
	assert.Nil(t, h.gen.msgs, "no model call for blueprints")

	sess, err := h.store.Get(st.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.ExpectsBargaining)
	assert.Contains(t, sess.SystemPrompt, "Product focus: Ceramic tile")
	assert.Empty(t, sess.AssignmentID)
}

func TestStartFromBlueprint_CompletesAssignment(t *testing.T) {
	h := newHarness(t, allKeys())
	st, err := h.svc.StartFromBlueprint(context.Background(), "u1", Assignment{
		AssignmentID: "a-1",
		Difficulty:   "friendly",
		Blueprint:    map[string]any{"scenarioTitle": "Tile order", "aiRole": "Export Manager"},
	})
	require.NoError(t, err)

	sess, err := h.store.Get(st.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "a-1", sess.AssignmentID)
	assert.False(t, h.store.AssignmentCompleted(st.SessionID))

	_, err = h.svc.Reply(context.Background(), st.SessionID, "Hello")
	require.NoError(t, err)
	assert.True(t, h.store.AssignmentCompleted(st.SessionID))
}

func TestPrepare(t *testing.T) {
	h := newHarness(t, allKeys())

	_, err := h.svc.Prepare(Assignment{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := h.svc.Prepare(Assignment{
		ChapterID: "chapter-1",
		SectionID: "chapter-1-section-1",
		Scenario:  map[string]any{"scenario_title": "Inquiry", "difficulty": "shrewd"},
	})
	require.NoError(t, err)
	assert.Equal(t, "shrewd", p.Profile.Key)
	assert.False(t, p.ExpectsBargaining)
	assert.NotEmpty(t, p.Prompts.Conversation)
	assert.NotEmpty(t, p.Prompts.Evaluation)

	_, err = h.svc.Prepare(Assignment{ChapterID: "chapter-1", SectionID: "nope", Blueprint: map[string]any{}})
	assert.ErrorIs(t, err, curriculum.ErrSectionNotFound)
}

func TestGenerate(t *testing.T) {
	h := newHarness(t, allKeys())
	g, err := h.svc.Generate(context.Background(), "chapter-2", "chapter-2-section-1", "bogus")
	require.NoError(t, err)
	assert.Equal(t, "balanced", g.Difficulty)
	assert.Equal(t, "Valve export", g.Scenario.Title)
	assert.Equal(t, "balanced", g.Scenario.DifficultyKey)
}

func TestCheckTurn(t *testing.T) {
	h := newHarness(t, allKeys())
	st := h.start(t)
	assert.NoError(t, h.svc.CheckTurn(st.SessionID, "hello"))
	assert.ErrorIs(t, h.svc.CheckTurn(st.SessionID, "   "), ErrInvalidInput)
	assert.ErrorIs(t, h.svc.CheckTurn("missing", "hello"), session.ErrNotFound)

	msgs, _ := h.store.GetMessages(st.SessionID)
	assert.Len(t, msgs, 1)
}
