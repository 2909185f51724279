package ports

import (
	"context"
	"io"

	"medbridge/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session. Read yields encoded audio until
// the session is finalized by Stop.
type AudioSession interface {
	io.ReadCloser
	Stop() error
	MimeType() string
}

// AudioCapture acquires the microphone and opens capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// TextMessage is an outbound text submission.
type TextMessage struct {
	ConversationID int64
	Role           domain.Role
	Text           string
	TargetLanguage string
}

// AudioMessage is an outbound audio submission.
type AudioMessage struct {
	ConversationID int64
	Role           domain.Role
	TargetLanguage string
	Audio          domain.AudioArtifact
}

// Backend performs speech-to-text, translation, synthesis and
// summarization, and persists conversations.
type Backend interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	CreateConversation(ctx context.Context) (domain.Conversation, error)
	DeleteConversation(ctx context.Context, id int64) error
	RenameConversation(ctx context.Context, id int64, title string) (domain.Conversation, error)
	History(ctx context.Context, conversationID int64) ([]domain.Message, error)
	SendText(ctx context.Context, msg TextMessage) (domain.Message, error)
	SendAudio(ctx context.Context, msg AudioMessage) (domain.Message, error)
	Regenerate(ctx context.Context, messageID int64, targetLanguage string) (domain.Message, error)
	Summarize(ctx context.Context, conversationID int64) (string, error)
	Search(ctx context.Context, query string) ([]domain.Message, error)
}

// Confirmer asks the user to approve an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, title string, message string) (bool, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionsChanged(snapshot domain.SessionSnapshot)
	ThreadChanged(conversationID int64)
	SummaryChanged(conversationID int64, present bool)
	RecordingStateChanged(state domain.RecordingState, reason domain.RecordingReason)
	RecordingElapsed(seconds int)
	Notice(code domain.ErrorCode, detail string)
}
