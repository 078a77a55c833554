// Package chat keeps the assistant conversation and forwards prompts to the
// remote assistant. Replies are reduced to plain text before they are kept.
package chat

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/clipdesk/clipdesk-agent/internal/metrics"
	"github.com/clipdesk/clipdesk-agent/internal/remote"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

const (
	NoResponse   = "No response."
	ContactError = "Error contacting assistant."
)

var ErrEmptyMessage = errors.New("message is empty")

type Entry struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Log is an append-only conversation. Entries are never edited or removed.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

func NewLog() *Log {
	return &Log{now: time.Now}
}

func (l *Log) Append(role Role, text string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{Role: role, Text: text, At: l.now().UTC()}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the conversation in order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

type Service struct {
	assistant remote.Assistant
	log       *Log
	policy    *bluemonday.Policy
	logger    *slog.Logger
}

func NewService(assistant remote.Assistant, logger *slog.Logger) *Service {
	return &Service{
		assistant: assistant,
		log:       NewLog(),
		policy:    bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

func (s *Service) Log() *Log { return s.log }

// Send records message, asks the assistant and records the answer. A
// failed call is recorded as an error entry and also returned.
func (s *Service) Send(ctx context.Context, message string) (Entry, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Entry{}, ErrEmptyMessage
	}
	s.log.Append(RoleUser, message)

	resp, err := s.assistant.Chat(ctx, message)
	if err != nil {
		metrics.IncAssistantRequest("chat", metrics.OutcomeFailure)
		s.logger.Warn("assistant chat failed", "error", err)
		return s.log.Append(RoleError, ContactError), fmt.Errorf("chat: %w", err)
	}
	metrics.IncAssistantRequest("chat", metrics.OutcomeSuccess)

	reply := s.plain(resp.Reply)
	if reply == "" {
		reply = NoResponse
	}
	return s.log.Append(RoleAssistant, reply), nil
}

// Story turns transcript text into a story. Nothing is logged to the
// conversation.
func (s *Service) Story(ctx context.Context, text, format string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	resp, err := s.assistant.GenerateStory(ctx, remote.StoryRequest{Text: text, Format: format})
	if err != nil {
		metrics.IncAssistantRequest("story", metrics.OutcomeFailure)
		s.logger.Warn("story generation failed", "error", err)
		return "", fmt.Errorf("story: %w", err)
	}
	metrics.IncAssistantRequest("story", metrics.OutcomeSuccess)
	return s.plain(resp.Story), nil
}

// plain strips markup from remote text and undoes the entity escaping the
// sanitizer applies, leaving text suitable for a text-only display.
func (s *Service) plain(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}
