// Package curriculum loads the chapters and sections students practice, along
// with the prompt templates each section uses.
package curriculum

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"negotiation-tutor/internal/scenario"
	"negotiation-tutor/internal/service/prompt"
)

//go:embed curriculum.yaml
var defaultCurriculum []byte

// ErrSectionNotFound is returned by Store.Section for unknown ids.
var ErrSectionNotFound = errors.New("section not found")

// Section is one practice unit and the four prompt templates it owns.
type Section struct {
	ID                         string
	ChapterID                  string
	ChapterTitle               string
	Title                      string
	Description                string
	EnvironmentPromptTemplate  string
	EnvironmentUserMessage     string
	ConversationPromptTemplate string
	EvaluationPromptTemplate   string
	ExpectsBargaining          bool
	ExtraFields                []string
}

// TradeRole guesses the student's side from the section text.
func (s Section) TradeRole() scenario.TradeRole {
	return scenario.InferTradeRole(s.Description, s.EnvironmentUserMessage, s.Title)
}

// Chapter groups sections in display order.
type Chapter struct {
	ID       string
	Title    string
	Sections []Section
}

type yamlCurriculum struct {
	Version   int `yaml:"version"`
	Templates struct {
		Conversation map[string]string `yaml:"conversation"`
		Evaluation   map[string]string `yaml:"evaluation"`
	} `yaml:"templates"`
	Chapters []yamlChapter `yaml:"chapters"`
}

type yamlChapter struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Sections []yamlSection `yaml:"sections"`
}

type yamlSection struct {
	ID                string   `yaml:"id"`
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	UserMessage       string   `yaml:"user_message"`
	Conversation      string   `yaml:"conversation"`
	Evaluation        string   `yaml:"evaluation"`
	ExpectsBargaining bool     `yaml:"expects_bargaining"`
	ExtraFields       []string `yaml:"extra_fields"`
}

// Store is an immutable, validated curriculum.
type Store struct {
	chapters []Chapter
	// index maps "chapter/section" to positions in chapters.
	index map[string][2]int
}

// Default loads the embedded curriculum.
func Default() (*Store, error) {
	return Load(defaultCurriculum)
}

// Load parses and validates a curriculum document. Every problem found is
// reported, not just the first.
func Load(data []byte) (*Store, error) {
	var doc yamlCurriculum
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("curriculum: parse: %w", err)
	}

	var errs *multierror.Error
	if len(doc.Chapters) == 0 {
		errs = multierror.Append(errs, errors.New("no chapters defined"))
	}

	st := &Store{index: make(map[string][2]int)}
	seenChapters := make(map[string]struct{}, len(doc.Chapters))
	seenSections := make(map[string]struct{})
	for _, yc := range doc.Chapters {
		if yc.ID == "" {
			errs = multierror.Append(errs, fmt.Errorf("chapter %q: missing id", yc.Title))
			continue
		}
		if _, dup := seenChapters[yc.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("chapter %s: duplicate id", yc.ID))
			continue
		}
		seenChapters[yc.ID] = struct{}{}
		ch := Chapter{ID: yc.ID, Title: strings.TrimSpace(yc.Title)}

		for _, ys := range yc.Sections {
			where := fmt.Sprintf("section %s/%s", yc.ID, ys.ID)
			if ys.ID == "" {
				errs = multierror.Append(errs, fmt.Errorf("%s: missing id", where))
				continue
			}
			if _, dup := seenSections[ys.ID]; dup {
				errs = multierror.Append(errs, fmt.Errorf("%s: duplicate id", where))
				continue
			}
			seenSections[ys.ID] = struct{}{}

			sec := Section{
				ID:                     ys.ID,
				ChapterID:              yc.ID,
				ChapterTitle:           ch.Title,
				Title:                  strings.TrimSpace(ys.Title),
				Description:            strings.TrimSpace(ys.Description),
				EnvironmentUserMessage: strings.TrimSpace(ys.UserMessage),
				ExpectsBargaining:      ys.ExpectsBargaining,
				ExtraFields:            ys.ExtraFields,
			}
			var ok bool
			if sec.ConversationPromptTemplate, ok = doc.Templates.Conversation[ys.Conversation]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("%s: unknown conversation template %q", where, ys.Conversation))
			}
			if sec.EvaluationPromptTemplate, ok = doc.Templates.Evaluation[ys.Evaluation]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("%s: unknown evaluation template %q", where, ys.Evaluation))
			}
			sec.ConversationPromptTemplate = strings.TrimSpace(sec.ConversationPromptTemplate)
			sec.EvaluationPromptTemplate = strings.TrimSpace(sec.EvaluationPromptTemplate)
			if sec.EnvironmentUserMessage == "" {
				errs = multierror.Append(errs, fmt.Errorf("%s: empty user_message", where))
			}
			env, err := prompt.BuildEnvironmentPrompt(ch.Title, sec.Title, ys.ExtraFields)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", where, err))
			}
			sec.EnvironmentPromptTemplate = env

			st.index[yc.ID+"/"+sec.ID] = [2]int{len(st.chapters), len(ch.Sections)}
			ch.Sections = append(ch.Sections, sec)
		}
		st.chapters = append(st.chapters, ch)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("curriculum: %w", err)
	}
	return st, nil
}

// Chapters returns all chapters in display order. Callers must not modify
// the returned sections.
func (s *Store) Chapters() []Chapter {
	return s.chapters
}

// Section looks up one section within a chapter.
func (s *Store) Section(chapterID, sectionID string) (Section, error) {
	pos, ok := s.index[chapterID+"/"+sectionID]
	if !ok {
		return Section{}, fmt.Errorf("%w: %s/%s", ErrSectionNotFound, chapterID, sectionID)
	}
	return s.chapters[pos[0]].Sections[pos[1]], nil
}
