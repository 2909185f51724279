package usecase

import (
	"context"
	"errors"
	"io"
	"sync"

	"medbridge/internal/domain"
	"medbridge/internal/ports"
)

type fakeBackend struct {
	mu sync.Mutex

	conversations []domain.Conversation
	created       domain.Conversation
	history       map[int64][]domain.Message
	reply         domain.Message
	regenerated   domain.Message
	summary       string
	hits          []domain.Message
	errs          map[string]error

	textCalls     []ports.TextMessage
	audioCalls    []ports.AudioMessage
	deleteCalls   []int64
	historyCalls  []int64
	regenCalls    []regenCall
	renameCalls   []string
	summarizeCall int

	// hooks run while a request is in flight
	onHistory func(id int64)
	onSend    func()
	onSummary func()
}

type regenCall struct {
	id   int64
	lang string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{history: map[int64][]domain.Message{}, errs: map[string]error{}}
}

func (f *fakeBackend) err(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

func (f *fakeBackend) ListConversations(_ context.Context) ([]domain.Conversation, error) {
	if err := f.err("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Conversation, len(f.conversations))
	copy(out, f.conversations)
	return out, nil
}

func (f *fakeBackend) CreateConversation(_ context.Context) (domain.Conversation, error) {
	if err := f.err("create"); err != nil {
		return domain.Conversation{}, err
	}
	return f.created, nil
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id int64) error {
	f.mu.Lock()
	f.deleteCalls = append(f.deleteCalls, id)
	f.mu.Unlock()
	return f.err("delete")
}

func (f *fakeBackend) RenameConversation(_ context.Context, id int64, title string) (domain.Conversation, error) {
	f.mu.Lock()
	f.renameCalls = append(f.renameCalls, title)
	f.mu.Unlock()
	if err := f.err("rename"); err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{ID: id, Title: title}, nil
}

func (f *fakeBackend) History(_ context.Context, id int64) ([]domain.Message, error) {
	f.mu.Lock()
	f.historyCalls = append(f.historyCalls, id)
	hook := f.onHistory
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if err := f.err("history"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, len(f.history[id]))
	copy(out, f.history[id])
	return out, nil
}

func (f *fakeBackend) SendText(_ context.Context, msg ports.TextMessage) (domain.Message, error) {
	f.mu.Lock()
	f.textCalls = append(f.textCalls, msg)
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := f.err("send"); err != nil {
		return domain.Message{}, err
	}
	return f.reply, nil
}

func (f *fakeBackend) SendAudio(_ context.Context, msg ports.AudioMessage) (domain.Message, error) {
	f.mu.Lock()
	f.audioCalls = append(f.audioCalls, msg)
	f.mu.Unlock()
	if err := f.err("audio"); err != nil {
		return domain.Message{}, err
	}
	return f.reply, nil
}

func (f *fakeBackend) Regenerate(_ context.Context, id int64, lang string) (domain.Message, error) {
	f.mu.Lock()
	f.regenCalls = append(f.regenCalls, regenCall{id: id, lang: lang})
	f.mu.Unlock()
	if err := f.err("regenerate"); err != nil {
		return domain.Message{}, err
	}
	return f.regenerated, nil
}

func (f *fakeBackend) Summarize(_ context.Context, _ int64) (string, error) {
	f.mu.Lock()
	f.summarizeCall++
	hook := f.onSummary
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := f.err("summarize"); err != nil {
		return "", err
	}
	return f.summary, nil
}

func (f *fakeBackend) Search(_ context.Context, _ string) ([]domain.Message, error) {
	if err := f.err("search"); err != nil {
		return nil, err
	}
	return f.hits, nil
}

type fakeConfirmer struct {
	answer bool
	err    error
	calls  int
}

func (f *fakeConfirmer) Confirm(_ context.Context, _ string, _ string) (bool, error) {
	f.calls++
	return f.answer, f.err
}

type fakeClipboard struct {
	lastText string
	err      error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.lastText = text
	return f.err
}

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []ports.AudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.sessions) == 0 {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[0]
	f.sessions = f.sessions[1:]
	return session, nil
}

func (f *fakeAudioCapture) startCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	stopCalls int
	stopErr   error
	mimeType  string
	// hold keeps Read blocked after the chunks run out until Stop.
	hold    bool
	stopped chan struct{}
}

func newFakeAudioSession(hold bool, chunks ...string) *fakeAudioSession {
	s := &fakeAudioSession{hold: hold, stopped: make(chan struct{}), mimeType: "audio/webm"}
	for _, c := range chunks {
		s.chunks = append(s.chunks, []byte(c))
	}
	return s
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.index < len(f.chunks) {
		n := copy(p, f.chunks[f.index])
		f.index++
		f.mu.Unlock()
		return n, nil
	}
	hold := f.hold
	f.mu.Unlock()
	if hold {
		<-f.stopped
	}
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error { return nil }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.stopCalls == 1 {
		close(f.stopped)
	}
	return f.stopErr
}

func (f *fakeAudioSession) MimeType() string { return f.mimeType }

type fakeEventSink struct {
	mu sync.Mutex

	sessions  []domain.SessionSnapshot
	threads   []int64
	summaries []bool
	states    []stateEvent
	elapsed   []int
	notices   []noticeEvent
}

type stateEvent struct {
	state  domain.RecordingState
	reason domain.RecordingReason
}

type noticeEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionsChanged(snapshot domain.SessionSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, snapshot)
}

func (f *fakeEventSink) ThreadChanged(conversationID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append(f.threads, conversationID)
}

func (f *fakeEventSink) SummaryChanged(_ int64, present bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, present)
}

func (f *fakeEventSink) RecordingStateChanged(state domain.RecordingState, reason domain.RecordingReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) RecordingElapsed(seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elapsed = append(f.elapsed, seconds)
}

func (f *fakeEventSink) Notice(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, noticeEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotNotices() []noticeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]noticeEvent, len(f.notices))
	copy(out, f.notices)
	return out
}

func (f *fakeEventSink) lastSessions() domain.SessionSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return domain.SessionSnapshot{}
	}
	return f.sessions[len(f.sessions)-1]
}

func (f *fakeEventSink) snapshotElapsed() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.elapsed))
	copy(out, f.elapsed)
	return out
}
