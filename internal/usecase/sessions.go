package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"medbridge/internal/domain"
	"medbridge/internal/ports"
)

var (
	ErrDeleteNotConfirmed   = errors.New("deletion not confirmed")
	ErrConversationNotFound = errors.New("conversation not listed")
	ErrEmptyTitle           = errors.New("title is empty")
)

const (
	deleteConfirmTitle   = "Delete consultation"
	deleteConfirmMessage = "Delete this clinical session?"
)

// SessionStore owns the conversation list and the active selection.
// Selection changes reset and reload the thread.
type SessionStore struct {
	backend   ports.Backend
	confirmer ports.Confirmer
	thread    *Thread
	events    ports.EventSink
	logger    zerolog.Logger

	mu            sync.Mutex
	conversations []domain.Conversation
	activeID      *int64
}

func NewSessionStore(
	backend ports.Backend,
	confirmer ports.Confirmer,
	thread *Thread,
	events ports.EventSink,
	logger zerolog.Logger,
) *SessionStore {
	return &SessionStore{
		backend:   backend,
		confirmer: confirmer,
		thread:    thread,
		events:    events,
		logger:    logger,
	}
}

// List refreshes the conversation list. When nothing is active the first
// listed conversation is selected and its history loaded.
func (s *SessionStore) List(ctx context.Context) error {
	conversations, err := s.backend.ListConversations(ctx)
	if err != nil {
		s.fail("failed to fetch sessions", err)
		return err
	}

	s.mu.Lock()
	s.conversations = conversations
	var selected *int64
	if s.activeID == nil && len(conversations) > 0 {
		id := conversations[0].ID
		s.activeID = &id
		selected = &id
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.events.SessionsChanged(snapshot)
	if selected != nil {
		return s.show(ctx, *selected)
	}
	return nil
}

// Create opens a new conversation and makes it active with an empty thread.
func (s *SessionStore) Create(ctx context.Context) (domain.Conversation, error) {
	conversation, err := s.backend.CreateConversation(ctx)
	if err != nil {
		s.fail("failed to create session", err)
		return domain.Conversation{}, err
	}

	s.mu.Lock()
	s.conversations = append([]domain.Conversation{conversation}, s.conversations...)
	id := conversation.ID
	s.activeID = &id
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.thread.Reset(id)
	s.events.SessionsChanged(snapshot)
	return conversation, nil
}

// Delete removes a conversation after the user confirms. Deleting the active
// conversation selects the first remaining one, or nothing.
func (s *SessionStore) Delete(ctx context.Context, id int64) error {
	confirmed, err := s.confirmer.Confirm(ctx, deleteConfirmTitle, deleteConfirmMessage)
	if err != nil {
		return fmt.Errorf("confirm deletion: %w", err)
	}
	if !confirmed {
		return ErrDeleteNotConfirmed
	}

	if err := s.backend.DeleteConversation(ctx, id); err != nil {
		s.logger.Error().Err(err).Int64("conversation_id", id).Msg("delete failed")
		s.events.Notice(domain.ErrorCodeSessions, fmt.Sprintf("delete failed: %v", err))
		return err
	}

	s.mu.Lock()
	s.conversations = lo.Filter(s.conversations, func(c domain.Conversation, _ int) bool {
		return c.ID != id
	})
	wasActive := s.activeID != nil && *s.activeID == id
	var next *int64
	if wasActive {
		s.activeID = nil
		if len(s.conversations) > 0 {
			first := s.conversations[0].ID
			s.activeID = &first
			next = &first
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.events.SessionsChanged(snapshot)
	if !wasActive {
		return nil
	}
	if next == nil {
		s.thread.Reset(0)
		return nil
	}
	return s.show(ctx, *next)
}

// Purge empties the local list only. Nothing is deleted remotely and the
// shown thread stays as it is.
func (s *SessionStore) Purge() {
	s.mu.Lock()
	s.conversations = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.events.SessionsChanged(snapshot)
}

// Select makes a listed conversation active and reloads its history.
func (s *SessionStore) Select(ctx context.Context, id int64) error {
	s.mu.Lock()
	if !lo.ContainsBy(s.conversations, func(c domain.Conversation) bool { return c.ID == id }) {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	s.activeID = &id
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.events.SessionsChanged(snapshot)
	return s.show(ctx, id)
}

// Rename retitles a conversation and replaces the listed entry.
func (s *SessionStore) Rename(ctx context.Context, id int64, title string) (domain.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Conversation{}, ErrEmptyTitle
	}

	renamed, err := s.backend.RenameConversation(ctx, id, title)
	if err != nil {
		s.logger.Error().Err(err).Int64("conversation_id", id).Msg("rename failed")
		s.events.Notice(domain.ErrorCodeSessions, fmt.Sprintf("rename failed: %v", err))
		return domain.Conversation{}, err
	}

	s.mu.Lock()
	if _, idx, ok := lo.FindIndexOf(s.conversations, func(c domain.Conversation) bool { return c.ID == id }); ok {
		s.conversations[idx] = renamed
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.events.SessionsChanged(snapshot)
	return renamed, nil
}

// Snapshot returns the list and active selection.
func (s *SessionStore) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ActiveID returns the selected conversation, if any.
func (s *SessionStore) ActiveID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == nil {
		return 0, false
	}
	return *s.activeID, true
}

func (s *SessionStore) show(ctx context.Context, id int64) error {
	s.thread.Reset(id)
	return s.thread.Load(ctx, id)
}

func (s *SessionStore) fail(msg string, err error) {
	s.logger.Error().Err(err).Msg(msg)
	s.events.Notice(domain.ErrorCodeSessions, fmt.Sprintf("%s: %v", msg, err))
}

func (s *SessionStore) snapshotLocked() domain.SessionSnapshot {
	conversations := make([]domain.Conversation, len(s.conversations))
	copy(conversations, s.conversations)
	var active *int64
	if s.activeID != nil {
		id := *s.activeID
		active = &id
	}
	return domain.SessionSnapshot{Conversations: conversations, ActiveID: active}
}
