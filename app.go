package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"medbridge/internal/bootstrap"
	"medbridge/internal/config"
	"medbridge/internal/domain"
	"medbridge/internal/usecase"
	"medbridge/internal/view"
)

const (
	eventSessions  = "medbridge:sessions"
	eventThread    = "medbridge:thread"
	eventSummary   = "medbridge:summary"
	eventRecording = "medbridge:recording"
	eventElapsed   = "medbridge:elapsed"
	eventNotice    = "medbridge:notice"
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	portal  *usecase.Portal
	cfg     config.Config
	bootErr error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{}, &wailsConfirmer{})
	if err != nil {
		a.bootErr = err
		a.Notice(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.portal = services.Portal

	bgCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	if addr := services.Config.Metrics.Addr; addr != "" {
		go func() {
			if err := services.Metrics.Serve(bgCtx, addr); err != nil {
				services.Logger.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
			}
		}()
	}

	go func() {
		if err := services.Backend.Health(bgCtx); err != nil {
			services.Logger.Warn().Err(err).Msg("consultation service health check failed")
			a.Notice(domain.ErrorCodeStartup, fmt.Sprintf("consultation service unreachable: %v", err))
		}
		_ = a.portal.Refresh(bgCtx)
	}()

	a.RecordingStateChanged(domain.RecordingStateIdle, domain.RecordingReasonReady)
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
}

// ListConversations reloads the conversation list.
func (a *App) ListConversations() (domain.SessionSnapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if err := a.portal.Sessions().List(a.ctx); err != nil {
		return domain.SessionSnapshot{}, err
	}
	return a.portal.Sessions().Snapshot(), nil
}

// GetSessions returns the current list without a network call.
func (a *App) GetSessions() domain.SessionSnapshot {
	if a.portal == nil {
		return domain.SessionSnapshot{}
	}
	return a.portal.Sessions().Snapshot()
}

func (a *App) CreateConversation() (domain.Conversation, error) {
	if err := a.requireReady(); err != nil {
		return domain.Conversation{}, err
	}
	return a.portal.Sessions().Create(a.ctx)
}

// DeleteConversation asks for confirmation, then deletes.
func (a *App) DeleteConversation(id int64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return ignoreGuard(a.portal.Sessions().Delete(a.ctx, id))
}

// PurgeHistory clears the local list only.
func (a *App) PurgeHistory() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.portal.Sessions().Purge()
	return nil
}

func (a *App) SelectConversation(id int64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.portal.Sessions().Select(a.ctx, id)
}

func (a *App) RenameConversation(id int64, title string) (domain.Conversation, error) {
	if err := a.requireReady(); err != nil {
		return domain.Conversation{}, err
	}
	conv, err := a.portal.Sessions().Rename(a.ctx, id, title)
	return conv, ignoreGuard(err)
}

// GetThread returns the active conversation rendered for the current viewer.
func (a *App) GetThread() (usecase.ThreadView, error) {
	if err := a.requireReady(); err != nil {
		return usecase.ThreadView{}, err
	}
	return a.portal.ThreadView(), nil
}

func (a *App) SetViewRole(role string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.portal.SetViewRole(domain.Role(strings.ToLower(role)))
}

func (a *App) SetLanguage(role string, language string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.portal.SetLanguage(domain.Role(strings.ToLower(role)), language)
}

func (a *App) SetDraft(text string) {
	if a.portal != nil {
		a.portal.SetDraft(text)
	}
}

func (a *App) SetSearchQuery(query string) {
	if a.portal != nil {
		a.portal.SetSearchQuery(query)
	}
}

// SendText sends the current draft.
func (a *App) SendText() (domain.Message, error) {
	if err := a.requireReady(); err != nil {
		return domain.Message{}, err
	}
	msg, err := a.portal.SendText(a.ctx)
	return msg, ignoreGuard(err)
}

// StartRecording opens the microphone.
func (a *App) StartRecording() (domain.RecordingStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.RecordingStatus{}, err
	}
	if err := ignoreGuard(a.portal.StartRecording(a.ctx)); err != nil {
		return domain.RecordingStatus{}, err
	}
	return a.portal.RecordingStatus(), nil
}

// StopRecording finalizes the capture and sends it.
func (a *App) StopRecording() (domain.Message, error) {
	if err := a.requireReady(); err != nil {
		return domain.Message{}, err
	}
	msg, err := a.portal.StopRecording(a.ctx)
	return msg, ignoreGuard(err)
}

// AbortRecording discards an in-progress recording.
func (a *App) AbortRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return ignoreGuard(a.portal.AbortRecording())
}

func (a *App) GetRecordingStatus() domain.RecordingStatus {
	if a.portal == nil {
		return domain.RecordingStatus{State: domain.RecordingStateIdle}
	}
	return a.portal.RecordingStatus()
}

func (a *App) Regenerate(messageID int64, language string) (domain.Message, error) {
	if err := a.requireReady(); err != nil {
		return domain.Message{}, err
	}
	msg, err := a.portal.Regenerate(a.ctx, messageID, language)
	return msg, ignoreGuard(err)
}

func (a *App) Summarize() (view.Summary, error) {
	if err := a.requireReady(); err != nil {
		return view.Summary{}, err
	}
	summary, err := a.portal.Summarize(a.ctx)
	return summary, ignoreGuard(err)
}

func (a *App) DismissSummary() {
	if a.portal != nil {
		a.portal.DismissSummary()
	}
}

func (a *App) CopySummary() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return ignoreGuard(a.portal.CopySummary(a.ctx))
}

// SearchArchive searches all stored consultations.
func (a *App) SearchArchive(query string) ([]view.RenderedMessage, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	hits, err := a.portal.SearchArchive(a.ctx, query)
	return hits, ignoreGuard(err)
}

// GetLanguages lists the selectable languages.
func (a *App) GetLanguages() map[string][]string {
	return map[string][]string{
		"languages":    domain.Languages,
		"regeneration": domain.RegenerationLanguages,
	}
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"apiUrl":           a.cfg.Backend.APIURL,
		"audioBaseUrl":     a.cfg.Backend.AudioBaseURL,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.portal == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ignoreGuard turns refused actions into no-ops for the UI.
func ignoreGuard(err error) error {
	for _, guard := range []error{
		usecase.ErrEmptyMessage,
		usecase.ErrNoActiveConversation,
		usecase.ErrDispatchInFlight,
		usecase.ErrDeleteNotConfirmed,
		usecase.ErrRecordingActive,
		usecase.ErrNoActiveRecording,
		usecase.ErrOwnMessage,
		usecase.ErrEmptyQuery,
		usecase.ErrEmptyTitle,
		usecase.ErrNoSummary,
	} {
		if errors.Is(err, guard) {
			log.Debug().Err(err).Msg("action refused")
			return nil
		}
	}
	return err
}

// SessionsChanged emits the conversation list.
func (a *App) SessionsChanged(snapshot domain.SessionSnapshot) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSessions, snapshot)
}

// ThreadChanged tells the UI to re-read the thread.
func (a *App) ThreadChanged(conversationID int64) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventThread, map[string]int64{"conversationId": conversationID})
}

func (a *App) SummaryChanged(conversationID int64, present bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSummary, map[string]any{
		"conversationId": conversationID,
		"present":        present,
	})
}

// RecordingStateChanged emits capture lifecycle updates.
func (a *App) RecordingStateChanged(state domain.RecordingState, reason domain.RecordingReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventRecording, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": recordingReasonMessage(reason),
	})
}

func (a *App) RecordingElapsed(seconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventElapsed, map[string]int{"seconds": seconds})
}

// Notice emits user-facing failures.
func (a *App) Notice(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventNotice, map[string]string{
		"code":    string(code),
		"message": noticeMessage(code, detail),
		"detail":  detail,
	})
}

func recordingReasonMessage(reason domain.RecordingReason) string {
	switch reason {
	case domain.RecordingReasonReady:
		return "Ready"
	case domain.RecordingReasonAcquiring:
		return "Requesting microphone..."
	case domain.RecordingReasonStarted:
		return "Live capture active"
	case domain.RecordingReasonFinalizing:
		return "Finalizing recording..."
	case domain.RecordingReasonCaptured:
		return "Recording captured"
	case domain.RecordingReasonMicrophoneDenied:
		return "Microphone access denied"
	case domain.RecordingReasonDiscarded:
		return "Recording discarded"
	case domain.RecordingReasonFinalizeIncomplete:
		return "Recording captured (finalize incomplete)"
	default:
		return ""
	}
}

func noticeMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeMicrophone:
		return "Microphone access denied"
	case domain.ErrorCodeAudioCapture:
		return "Audio capture issue"
	case domain.ErrorCodeSessions:
		return "Session update failed"
	case domain.ErrorCodeHistory:
		return "Failed to load history"
	case domain.ErrorCodeSend:
		return "Message not sent"
	case domain.ErrorCodeRegenerate:
		return "Regeneration failed"
	case domain.ErrorCodeSummary:
		return "Summary failed"
	case domain.ErrorCodeSearch:
		return "Search failed"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}

type wailsConfirmer struct{}

func (c *wailsConfirmer) Confirm(ctx context.Context, title string, message string) (bool, error) {
	answer, err := runtime.MessageDialog(ctx, runtime.MessageDialogOptions{
		Type:    runtime.QuestionDialog,
		Title:   title,
		Message: message,
	})
	if err != nil {
		return false, err
	}
	return isAffirmative(answer), nil
}

func isAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "ok":
		return true
	default:
		return false
	}
}
