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
	"medbridge/internal/observability"
	"medbridge/internal/ports"
	"medbridge/internal/view"
)

var (
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrDispatchInFlight     = errors.New("a message is already being sent")
	ErrOwnMessage           = errors.New("cannot regenerate an own message")
	ErrMessageNotFound      = errors.New("message not in thread")
	ErrUnsupportedLanguage  = errors.New("unsupported language")
	ErrInvalidRole          = errors.New("invalid role")
	ErrNoSummary            = errors.New("no summary available")
	ErrEmptyQuery           = errors.New("search query is empty")
)

// PortalConfig holds the initial view settings.
type PortalConfig struct {
	ViewRole     domain.Role
	Languages    domain.LanguagePair
	AudioBaseURL string
}

// ThreadView is the rendered state of the active conversation for the
// current viewer.
type ThreadView struct {
	ConversationID int64                  `json:"conversationId"`
	ViewRole       domain.Role            `json:"viewRole"`
	Languages      domain.LanguagePair    `json:"languages"`
	Messages       []view.RenderedMessage `json:"messages"`
	Search         view.SearchResult      `json:"search"`
	Summary        *view.Summary          `json:"summary"`
	Draft          string                 `json:"draft"`
	Dispatching    bool                   `json:"dispatching"`
	Recording      domain.RecordingStatus `json:"recording"`
}

// Portal is the consultation workspace: view settings, the input draft and
// every action that sends to or reads from the active conversation.
type Portal struct {
	backend   ports.Backend
	sessions  *SessionStore
	thread    *Thread
	recorder  *Recorder
	clipboard ports.Clipboard
	events    ports.EventSink
	metrics   *observability.Metrics
	logger    zerolog.Logger
	audioBase string

	mu          sync.Mutex
	viewRole    domain.Role
	languages   domain.LanguagePair
	draft       string
	searchQuery string
	dispatching bool
}

func NewPortal(
	backend ports.Backend,
	sessions *SessionStore,
	thread *Thread,
	recorder *Recorder,
	clipboard ports.Clipboard,
	events ports.EventSink,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	cfg PortalConfig,
) *Portal {
	if !cfg.ViewRole.Valid() {
		cfg.ViewRole = domain.RoleDoctor
	}
	if cfg.Languages.Doctor == "" {
		cfg.Languages.Doctor = "English"
	}
	if cfg.Languages.Patient == "" {
		cfg.Languages.Patient = "Spanish"
	}
	return &Portal{
		backend:   backend,
		sessions:  sessions,
		thread:    thread,
		recorder:  recorder,
		clipboard: clipboard,
		events:    events,
		metrics:   metrics,
		logger:    logger,
		audioBase: cfg.AudioBaseURL,
		viewRole:  cfg.ViewRole,
		languages: cfg.Languages,
	}
}

func (p *Portal) Sessions() *SessionStore { return p.sessions }

// Refresh loads the conversation list.
func (p *Portal) Refresh(ctx context.Context) error {
	return p.sessions.List(ctx)
}

func (p *Portal) ViewRole() domain.Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewRole
}

// SetViewRole switches perspective. Stored messages are untouched.
func (p *Portal) SetViewRole(role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	p.mu.Lock()
	p.viewRole = role
	p.mu.Unlock()

	p.events.ThreadChanged(p.thread.ConversationID())
	return nil
}

func (p *Portal) Languages() domain.LanguagePair {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.languages
}

// SetLanguage selects the language a role speaks and reads.
func (p *Portal) SetLanguage(role domain.Role, language string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	canonical, ok := domain.NormalizeLanguage(language)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	p.mu.Lock()
	if role == domain.RoleDoctor {
		p.languages.Doctor = canonical
	} else {
		p.languages.Patient = canonical
	}
	p.mu.Unlock()
	return nil
}

func (p *Portal) SetDraft(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = text
}

func (p *Portal) Draft() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// SetSearchQuery updates the live search overlay.
func (p *Portal) SetSearchQuery(query string) {
	p.mu.Lock()
	p.searchQuery = query
	p.mu.Unlock()

	p.events.ThreadChanged(p.thread.ConversationID())
}

// SendText sends the current draft as the viewer, translated into the
// counterpart's language. The draft is cleared only on success and only if
// it was not edited while the request was in flight.
func (p *Portal) SendText(ctx context.Context) (domain.Message, error) {
	p.mu.Lock()
	draft := p.draft
	text := strings.TrimSpace(draft)
	if text == "" {
		p.mu.Unlock()
		return domain.Message{}, ErrEmptyMessage
	}
	out, err := p.beginDispatchLocked()
	p.mu.Unlock()
	if err != nil {
		return domain.Message{}, err
	}

	msg, err := p.backend.SendText(ctx, ports.TextMessage{
		ConversationID: out.conversationID,
		Role:           out.role,
		Text:           text,
		TargetLanguage: out.target,
	})
	p.metrics.RecordDispatch("text", err)

	p.mu.Lock()
	p.dispatching = false
	if err == nil && p.draft == draft {
		p.draft = ""
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error().Err(err).Int64("conversation_id", out.conversationID).Msg("send failed")
		p.events.Notice(domain.ErrorCodeSend, fmt.Sprintf("send failed: %v", err))
		return domain.Message{}, err
	}
	p.append(out.conversationID, msg)
	return msg, nil
}

// StartRecording opens the microphone.
func (p *Portal) StartRecording(ctx context.Context) error {
	return p.recorder.Start(ctx)
}

// StopRecording finalizes the capture and sends it as an audio message.
// On failure the capture is dropped.
func (p *Portal) StopRecording(ctx context.Context) (domain.Message, error) {
	artifact, err := p.recorder.Stop(ctx)
	if err != nil {
		return domain.Message{}, err
	}
	return p.sendAudio(ctx, artifact)
}

// AbortRecording discards the capture without sending.
func (p *Portal) AbortRecording() error {
	return p.recorder.Abort()
}

func (p *Portal) RecordingStatus() domain.RecordingStatus {
	return p.recorder.Status()
}

func (p *Portal) sendAudio(ctx context.Context, artifact domain.AudioArtifact) (domain.Message, error) {
	p.mu.Lock()
	out, err := p.beginDispatchLocked()
	p.mu.Unlock()
	if err != nil {
		p.logger.Warn().Err(err).Int("bytes", len(artifact.Data)).Msg("dropping recorded audio")
		return domain.Message{}, err
	}

	msg, err := p.backend.SendAudio(ctx, ports.AudioMessage{
		ConversationID: out.conversationID,
		Role:           out.role,
		TargetLanguage: out.target,
		Audio:          artifact,
	})
	p.metrics.RecordDispatch("audio", err)

	p.mu.Lock()
	p.dispatching = false
	p.mu.Unlock()

	if err != nil {
		p.logger.Error().Err(err).Int64("conversation_id", out.conversationID).Msg("audio send failed")
		p.events.Notice(domain.ErrorCodeSend, fmt.Sprintf("audio send failed: %v", err))
		return domain.Message{}, err
	}
	p.append(out.conversationID, msg)
	return msg, nil
}

type dispatch struct {
	conversationID int64
	role           domain.Role
	target         string
}

func (p *Portal) beginDispatchLocked() (dispatch, error) {
	conversationID, ok := p.sessions.ActiveID()
	if !ok {
		return dispatch{}, ErrNoActiveConversation
	}
	if p.dispatching {
		return dispatch{}, ErrDispatchInFlight
	}
	p.dispatching = true
	return dispatch{
		conversationID: conversationID,
		role:           p.viewRole,
		target:         p.languages.TargetFor(p.viewRole),
	}, nil
}

func (p *Portal) append(conversationID int64, msg domain.Message) {
	if !p.thread.Append(conversationID, msg) {
		p.logger.Info().Int64("conversation_id", conversationID).Int64("message_id", msg.ID).
			Msg("discarding reply for inactive conversation")
	}
}

// Regenerate redraws the translation of a counterpart's message into
// language, keeping its identity, role, original text and timestamp.
func (p *Portal) Regenerate(ctx context.Context, messageID int64, language string) (domain.Message, error) {
	canonical, ok := domain.NormalizeLanguage(language)
	if !ok || !lo.Contains(domain.RegenerationLanguages, canonical) {
		return domain.Message{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	current, conversationID, ok := p.thread.Find(messageID)
	if !ok {
		return domain.Message{}, ErrMessageNotFound
	}
	if current.Role == p.ViewRole() {
		return domain.Message{}, ErrOwnMessage
	}

	updated, err := p.backend.Regenerate(ctx, messageID, canonical)
	if err == nil && updated.ID != messageID {
		err = fmt.Errorf("regenerate returned message %d for %d", updated.ID, messageID)
	}
	if err != nil {
		p.logger.Error().Err(err).Int64("message_id", messageID).Msg("regeneration failed")
		p.events.Notice(domain.ErrorCodeRegenerate, fmt.Sprintf("regeneration failed: %v", err))
		return domain.Message{}, err
	}

	merged := current.WithRendition(updated)
	if !p.thread.Replace(conversationID, merged) {
		p.logger.Info().Int64("message_id", messageID).Msg("discarding regeneration for inactive conversation")
	}
	return merged, nil
}

// Summarize requests a clinical summary of the active conversation.
func (p *Portal) Summarize(ctx context.Context) (view.Summary, error) {
	conversationID, ok := p.sessions.ActiveID()
	if !ok {
		return view.Summary{}, ErrNoActiveConversation
	}

	raw, err := p.backend.Summarize(ctx, conversationID)
	if err != nil {
		p.logger.Error().Err(err).Int64("conversation_id", conversationID).Msg("summary failed")
		p.events.Notice(domain.ErrorCodeSummary, fmt.Sprintf("summary failed: %v", err))
		return view.Summary{}, err
	}
	if !p.thread.SetSummary(conversationID, raw) {
		p.logger.Info().Int64("conversation_id", conversationID).Msg("discarding summary for inactive conversation")
	}
	return view.ParseSummary(raw), nil
}

func (p *Portal) DismissSummary() {
	p.thread.ClearSummary()
}

// CopySummary places the raw summary on the clipboard.
func (p *Portal) CopySummary(ctx context.Context) error {
	raw, ok := p.thread.Summary()
	if !ok {
		return ErrNoSummary
	}
	if err := p.clipboard.SetText(ctx, raw); err != nil {
		p.logger.Warn().Err(err).Msg("clipboard write failed")
		p.events.Notice(domain.ErrorCodeClipboard, fmt.Sprintf("failed to copy summary: %v", err))
		return err
	}
	return nil
}

// SearchArchive searches every stored conversation on the backend and
// renders the hits for the current viewer with the query highlighted.
func (p *Portal) SearchArchive(ctx context.Context, query string) ([]view.RenderedMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	hits, err := p.backend.Search(ctx, query)
	if err != nil {
		p.logger.Error().Err(err).Str("query", query).Msg("archive search failed")
		p.events.Notice(domain.ErrorCodeSearch, fmt.Sprintf("search failed: %v", err))
		return nil, err
	}
	rendered := view.RenderAll(hits, p.ViewRole(), p.audioBase)
	return view.Apply(rendered, view.Search(hits, query)), nil
}

// ThreadView renders the active conversation for the current viewer.
func (p *Portal) ThreadView() ThreadView {
	p.mu.Lock()
	role := p.viewRole
	languages := p.languages
	draft := p.draft
	query := p.searchQuery
	dispatching := p.dispatching
	p.mu.Unlock()

	messages := p.thread.Messages()
	search := view.Search(messages, query)
	out := ThreadView{
		ConversationID: p.thread.ConversationID(),
		ViewRole:       role,
		Languages:      languages,
		Messages:       view.Apply(view.RenderAll(messages, role, p.audioBase), search),
		Search:         search,
		Draft:          draft,
		Dispatching:    dispatching,
		Recording:      p.recorder.Status(),
	}
	if raw, ok := p.thread.Summary(); ok {
		summary := view.ParseSummary(raw)
		out.Summary = &summary
	}
	return out
}
