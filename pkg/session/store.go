// Package session persists chat sessions and their messages, in memory
// or in a SQL database.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-ai/atelier/pkg/config"
)

// Session is one conversation with an agent.
type Session struct {
	ID        string    `json:"id"`
	Agent     string    `json:"agent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one stored turn. Seq preserves insertion order.
type Message struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions and messages.
type Store interface {
	CreateSession(ctx context.Context, agent string) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, sessionID, role, content string) error
	Messages(ctx context.Context, sessionID string) ([]Message, error)

	Close() error
}

// New builds a store from config.
func New(cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case config.SessionBackendMemory:
		return NewMemoryStore(), nil
	case config.SessionBackendSQL:
		return NewSQLStore(cfg.SQL)
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	messages map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		messages: make(map[string][]Message),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, agent string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Agent:     agent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	copied := *session
	return &copied, nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := *session
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	delete(s.sessions, id)
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	s.messages[sessionID] = append(s.messages[sessionID], Message{
		Seq:       len(s.messages[sessionID]) + 1,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	session.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Messages(_ context.Context, sessionID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	out := make([]Message, len(s.messages[sessionID]))
	copy(out, s.messages[sessionID])
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
