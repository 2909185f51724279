package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"medbridge/internal/domain"
	"medbridge/internal/ports"
)

// Thread holds the message list and summary of the active conversation.
// Results are applied only while their conversation is still the one shown;
// anything else is discarded. Conversation id 0 means nothing is shown.
type Thread struct {
	backend ports.Backend
	events  ports.EventSink
	logger  zerolog.Logger

	mu             sync.Mutex
	conversationID int64
	messages       []domain.Message
	summary        *string
}

func NewThread(backend ports.Backend, events ports.EventSink, logger zerolog.Logger) *Thread {
	return &Thread{backend: backend, events: events, logger: logger}
}

// Reset switches the thread to conversationID with no messages and no summary.
func (t *Thread) Reset(conversationID int64) {
	t.mu.Lock()
	t.conversationID = conversationID
	t.messages = nil
	hadSummary := t.summary != nil
	t.summary = nil
	t.mu.Unlock()

	t.events.ThreadChanged(conversationID)
	if hadSummary {
		t.events.SummaryChanged(conversationID, false)
	}
}

// Load replaces the thread with the conversation's full history.
func (t *Thread) Load(ctx context.Context, conversationID int64) error {
	history, err := t.backend.History(ctx, conversationID)
	if err != nil {
		t.logger.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to load history")
		t.events.Notice(domain.ErrorCodeHistory, fmt.Sprintf("failed to load history: %v", err))
		return err
	}

	t.mu.Lock()
	if t.conversationID != conversationID {
		t.mu.Unlock()
		t.logger.Debug().Int64("conversation_id", conversationID).Msg("discarding history for inactive conversation")
		return nil
	}
	t.messages = history
	hadSummary := t.summary != nil
	t.summary = nil
	t.mu.Unlock()

	t.events.ThreadChanged(conversationID)
	if hadSummary {
		t.events.SummaryChanged(conversationID, false)
	}
	return nil
}

// Append adds msg at the tail when conversationID is still shown.
func (t *Thread) Append(conversationID int64, msg domain.Message) bool {
	t.mu.Lock()
	if t.conversationID != conversationID {
		t.mu.Unlock()
		return false
	}
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	t.events.ThreadChanged(conversationID)
	return true
}

// Replace swaps the message with msg.ID in place.
func (t *Thread) Replace(conversationID int64, msg domain.Message) bool {
	t.mu.Lock()
	if t.conversationID != conversationID {
		t.mu.Unlock()
		return false
	}
	_, idx, ok := lo.FindIndexOf(t.messages, func(m domain.Message) bool { return m.ID == msg.ID })
	if !ok {
		t.mu.Unlock()
		return false
	}
	t.messages[idx] = msg
	t.mu.Unlock()

	t.events.ThreadChanged(conversationID)
	return true
}

// Find returns the shown message with id and the conversation it belongs to.
func (t *Thread) Find(id int64) (domain.Message, int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg, ok := lo.Find(t.messages, func(m domain.Message) bool { return m.ID == id })
	return msg, t.conversationID, ok
}

// Messages returns a copy of the thread in display order.
func (t *Thread) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Thread) ConversationID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversationID
}

// SetSummary stores raw as the summary of conversationID if it is still shown.
func (t *Thread) SetSummary(conversationID int64, raw string) bool {
	t.mu.Lock()
	if t.conversationID != conversationID {
		t.mu.Unlock()
		return false
	}
	t.summary = &raw
	t.mu.Unlock()

	t.events.SummaryChanged(conversationID, true)
	return true
}

func (t *Thread) ClearSummary() {
	t.mu.Lock()
	conversationID := t.conversationID
	hadSummary := t.summary != nil
	t.summary = nil
	t.mu.Unlock()

	if hadSummary {
		t.events.SummaryChanged(conversationID, false)
	}
}

// Summary returns the raw summary text, if any.
func (t *Thread) Summary() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.summary == nil {
		return "", false
	}
	return *t.summary, true
}
