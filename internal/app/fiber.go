package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"negotiation-tutor/internal/config"
	"negotiation-tutor/internal/curriculum"
	"negotiation-tutor/internal/difficulty"
	"negotiation-tutor/internal/platform/apierr"
	"negotiation-tutor/internal/platform/logger"
	"negotiation-tutor/internal/server"
	"negotiation-tutor/internal/service/agent"
	"negotiation-tutor/internal/service/practice"
	"negotiation-tutor/internal/service/render"
	"negotiation-tutor/internal/session"
)

// Catalog lists the curriculum for the level picker.
type Catalog interface {
	Chapters() []curriculum.Chapter
}

// NewServer builds the HTTP API on top of the base server.
func NewServer(appName string, catalog Catalog, svc *practice.Service, log *logger.Logger) *fiber.App {
	if log == nil {
		log = logger.Nop()
	}
	app := server.NewServer(appName, log)
	h := &handler{catalog: catalog, svc: svc, log: log}

	api := app.Group("/api")
	api.Get("/levels", h.levels)
	api.Get("/difficulties", h.difficulties)
	api.Post("/generator/scenario", h.generateScenario)
	api.Post("/scenario/preview", h.previewScenario)
	api.Post("/start_level", h.startLevel)
	api.Post("/blueprints/start", h.startBlueprint)
	api.Post("/chat", h.chat)
	api.Get("/sessions/:id", h.sessionDetail)
	api.Post("/sessions/:id/reset", h.resetSession)

	return app
}

type handler struct {
	catalog Catalog
	svc     *practice.Service
	log     *logger.Logger
}

type levelRequest struct {
	UserID     string `json:"userId"`
	ChapterID  string `json:"chapterId"`
	SectionID  string `json:"sectionId"`
	Difficulty string `json:"difficulty"`
}

type blueprintRequest struct {
	practice.Assignment
	UserID string `json:"userId"`
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type sectionView struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	ExpectsBargaining bool   `json:"expectsBargaining"`
}

type chapterView struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Sections []sectionView `json:"sections"`
}

// GET /api/levels
func (h *handler) levels(c *fiber.Ctx) error {
	chapters := h.catalog.Chapters()
	out := make([]chapterView, 0, len(chapters))
	for _, ch := range chapters {
		cv := chapterView{ID: ch.ID, Title: ch.Title, Sections: make([]sectionView, 0, len(ch.Sections))}
		for _, sec := range ch.Sections {
			cv.Sections = append(cv.Sections, sectionView{
				ID:                sec.ID,
				Title:             sec.Title,
				Description:       sec.Description,
				ExpectsBargaining: sec.ExpectsBargaining,
			})
		}
		out = append(out, cv)
	}
	return c.JSON(fiber.Map{"chapters": out})
}

// GET /api/difficulties
func (h *handler) difficulties(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"default": difficulty.Default, "difficulties": difficulty.All()})
}

// POST /api/generator/scenario
func (h *handler) generateScenario(c *fiber.Ctx) error {
	var req levelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	g, err := h.svc.Generate(c.UserContext(), req.ChapterID, req.SectionID, req.Difficulty)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(g)
}

// POST /api/scenario/preview renders the prompts of an assignment without
// opening a session.
func (h *handler) previewScenario(c *fiber.Ctx) error {
	var req practice.Assignment
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Prepare(req)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(fiber.Map{
		"scenario":              render.BuildPayload(p.Scenario),
		"conversationPrompt":    p.Prompts.Conversation,
		"evaluationPrompt":      p.Prompts.Evaluation,
		"expectsBargaining":     p.ExpectsBargaining,
		"difficulty":            p.Profile.Key,
		"difficultyLabel":       p.Profile.Label,
		"difficultyDescription": p.Profile.Description,
	})
}

// POST /api/start_level
func (h *handler) startLevel(c *fiber.Ctx) error {
	var req levelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	st, err := h.svc.StartLevel(c.UserContext(), req.UserID, req.ChapterID, req.SectionID, req.Difficulty)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(st)
}

// POST /api/blueprints/start
func (h *handler) startBlueprint(c *fiber.Ctx) error {
	var req blueprintRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	st, err := h.svc.StartFromBlueprint(c.UserContext(), req.UserID, req.Assignment)
	if err != nil {
		return toAPIError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(st)
}

// POST /api/chat, with ?stream=1 for server-sent events.
func (h *handler) chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if streamRequested(c.Query("stream")) {
		return h.chatStream(c, req)
	}
	turn, err := h.svc.Reply(c.UserContext(), req.SessionID, req.Message)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(turn)
}

// chatStream emits chunk events while the reply arrives, then summary,
// evaluation and done. A failure after the stream has started is reported
// as an error event.
func (h *handler) chatStream(c *fiber.Ctx, req chatRequest) error {
	if err := h.svc.CheckTurn(req.SessionID, req.Message); err != nil {
		return toAPIError(err)
	}
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	log := h.log.With("session_id", req.SessionID)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		sse := eventWriter{w: w}
		turn, err := h.svc.ReplyStream(context.Background(), req.SessionID, req.Message, func(delta string) bool {
			return sse.send("chunk", fiber.Map{"content": delta}) == nil
		})
		if errors.Is(err, agent.ErrStreamStopped) {
			log.Info("chat stream client gone")
			return
		}
		if err != nil {
			log.Warn("chat stream failed", "error", err)
			_ = sse.send("error", fiber.Map{"error": err.Error()})
			return
		}
		_ = sse.send("summary", fiber.Map{"reply": turn.Reply})
		_ = sse.send("evaluation", fiber.Map{"evaluation": turn.Evaluation})
		_ = sse.send("done", fiber.Map{})
	})
	return nil
}

// GET /api/sessions/:id
func (h *handler) sessionDetail(c *fiber.Ctx) error {
	d, err := h.svc.Detail(c.Params("id"))
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(d)
}

// POST /api/sessions/:id/reset
func (h *handler) resetSession(c *fiber.Ctx) error {
	st, err := h.svc.Reset(c.UserContext(), c.Params("id"))
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(st)
}

type eventWriter struct {
	w *bufio.Writer
}

func (e eventWriter) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return e.w.Flush()
}

func bind(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

func streamRequested(v string) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
		return b
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true
	}
	return false
}

// toAPIError maps service errors onto HTTP statuses.
func toAPIError(err error) error {
	var missing *config.MissingKeyError
	switch {
	case errors.As(err, &missing):
		return apierr.Internal("missing_api_key", missing)
	case errors.Is(err, practice.ErrInvalidInput):
		return apierr.BadRequest("invalid_input", err)
	case errors.Is(err, curriculum.ErrSectionNotFound):
		return apierr.NotFound("section_not_found", errors.New("invalid chapterId or sectionId"))
	case errors.Is(err, session.ErrNotFound):
		return apierr.NotFound("session_not_found", err)
	case errors.Is(err, practice.ErrGeneration):
		return apierr.Internal("generation_failed", err)
	case errors.Is(err, practice.ErrReply):
		return apierr.Internal("reply_failed", err)
	}
	return apierr.Internal("internal", err)
}
