// Package session keeps practice sessions, their message history and
// evaluation results.
package session

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"negotiation-tutor/internal/scenario"
)

var ErrNotFound = errors.New("session not found")

// Session is one practice round bound to a generated or assigned scenario.
type Session struct {
	ID                string
	UserID            string
	ChapterID         string
	SectionID         string
	Scenario          *scenario.Scenario
	SystemPrompt      string
	EvaluationPrompt  string
	ExpectsBargaining bool
	Difficulty        string
	AssignmentID      string
	CreatedAt         time.Time
}

// Message is one stored chat turn. System prompts are not stored as messages.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type record struct {
	sess        Session
	messages    []Message
	evaluations []json.RawMessage
	completed   bool
}

// MemoryStore is a mutex-guarded in-process store. The zero value is not
// usable; call NewMemoryStore.
type MemoryStore struct {
	mu   sync.RWMutex
	now  func() time.Time
	data map[string]*record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, data: make(map[string]*record)}
}

// NewID returns a 32-character hex session id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create stores s and returns the stored copy. A blank ID is replaced by a
// fresh one.
func (m *MemoryStore) Create(s Session) (Session, error) {
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	s.Scenario = s.Scenario.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[s.ID]; ok {
		return Session{}, errors.New("session already exists: " + s.ID)
	}
	m.data[s.ID] = &record{sess: s}
	return copySession(s), nil
}

func (m *MemoryStore) Get(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return copySession(r.sess), nil
}

func (m *MemoryStore) AddMessage(id, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok {
		return ErrNotFound
	}
	r.messages = append(r.messages, Message{Role: role, Content: content, CreatedAt: m.now()})
	return nil
}

// GetMessages returns the history in insertion order.
func (m *MemoryStore) GetMessages(id string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Message(nil), r.messages...), nil
}

// RemoveLastMessage drops the newest message, if any.
func (m *MemoryStore) RemoveLastMessage(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok {
		return ErrNotFound
	}
	if n := len(r.messages); n > 0 {
		r.messages = r.messages[:n-1]
	}
	return nil
}

// Reset clears messages and evaluations but keeps the session and its
// scenario.
func (m *MemoryStore) Reset(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok {
		return ErrNotFound
	}
	r.messages = nil
	r.evaluations = nil
	return nil
}

// SaveEvaluation appends a serialized evaluation result.
func (m *MemoryStore) SaveEvaluation(id string, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok {
		return ErrNotFound
	}
	r.evaluations = append(r.evaluations, append(json.RawMessage(nil), payload...))
	return nil
}

// LatestEvaluation returns the newest saved evaluation, or nil when there is
// none.
func (m *MemoryStore) LatestEvaluation(id string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	if len(r.evaluations) == 0 {
		return nil, nil
	}
	return append(json.RawMessage(nil), r.evaluations[len(r.evaluations)-1]...), nil
}

func (m *MemoryStore) MarkAssignmentCompletedBySession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok {
		return ErrNotFound
	}
	if r.sess.AssignmentID != "" {
		r.completed = true
	}
	return nil
}

// AssignmentCompleted reports whether the assignment behind session id has
// been marked done.
func (m *MemoryStore) AssignmentCompleted(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[id]
	return ok && r.completed
}

func copySession(s Session) Session {
	s.Scenario = s.Scenario.Clone()
	return s
}
