package domain

// Role identifies which side of a consultation authored or views a message.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the two consultation roles.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// Counterpart returns the other side of the conversation.
func (r Role) Counterpart() Role {
	if r == RoleDoctor {
		return RolePatient
	}
	return RoleDoctor
}

// Conversation is one clinical consultation session.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"created_at"`
	Summary   *string   `json:"summary"`
}

// Message is one utterance. OriginalText is always in the speaker's
// language and TranslatedText in the counterpart's, whoever is viewing.
type Message struct {
	ID             int64     `json:"id"`
	Role           Role      `json:"role"`
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	Language       string    `json:"language"`
	AudioURL       *string   `json:"audio_url"`
	Timestamp      Timestamp `json:"timestamp"`
}

// WithRendition returns a copy of m carrying the regenerated fields of r.
// Identity, role, original text and timestamp are kept from m.
func (m Message) WithRendition(r Message) Message {
	m.TranslatedText = r.TranslatedText
	m.Language = r.Language
	m.AudioURL = r.AudioURL
	return m
}

// RecordingState models the audio capture lifecycle.
type RecordingState string

const (
	RecordingStateIdle      RecordingState = "idle"
	RecordingStateAcquiring RecordingState = "acquiring"
	RecordingStateRecording RecordingState = "recording"
	RecordingStateStopping  RecordingState = "stopping"
)

// RecordingReason provides a structured reason for state transitions.
type RecordingReason string

const (
	RecordingReasonReady              RecordingReason = "ready"
	RecordingReasonAcquiring          RecordingReason = "acquiring"
	RecordingReasonStarted            RecordingReason = "recording_started"
	RecordingReasonFinalizing         RecordingReason = "finalizing"
	RecordingReasonCaptured           RecordingReason = "captured"
	RecordingReasonMicrophoneDenied   RecordingReason = "microphone_denied"
	RecordingReasonDiscarded          RecordingReason = "recording_discarded"
	RecordingReasonFinalizeIncomplete RecordingReason = "finalize_incomplete"
)

// ErrorCode identifies user-facing notices.
type ErrorCode string

const (
	ErrorCodeStartup      ErrorCode = "startup"
	ErrorCodeMicrophone   ErrorCode = "microphone"
	ErrorCodeAudioCapture ErrorCode = "audio_capture"
	ErrorCodeSessions     ErrorCode = "sessions"
	ErrorCodeHistory      ErrorCode = "history"
	ErrorCodeSend         ErrorCode = "send"
	ErrorCodeRegenerate   ErrorCode = "regenerate"
	ErrorCodeSummary      ErrorCode = "summary"
	ErrorCodeSearch       ErrorCode = "search"
	ErrorCodeClipboard    ErrorCode = "clipboard"
)

// AudioArtifact is the finalized encoded audio of one recording session.
type AudioArtifact struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mimeType"`
	Seconds  int    `json:"seconds"`
}

// Empty reports whether nothing was captured.
func (a AudioArtifact) Empty() bool {
	return len(a.Data) == 0
}

// RecordingStatus summarizes the capture state for the UI.
type RecordingStatus struct {
	State   RecordingState `json:"state"`
	Active  bool           `json:"active"`
	Elapsed int            `json:"elapsed"`
}

// SessionSnapshot is the conversation list plus the active selection.
type SessionSnapshot struct {
	Conversations []Conversation `json:"conversations"`
	ActiveID      *int64         `json:"activeId"`
}

// LanguagePair holds each role's current language selection.
type LanguagePair struct {
	Doctor  string `json:"doctor"`
	Patient string `json:"patient"`
}

// For returns the language selected for role.
func (p LanguagePair) For(role Role) string {
	if role == RoleDoctor {
		return p.Doctor
	}
	return p.Patient
}

// TargetFor returns the language a message authored by role is translated into.
func (p LanguagePair) TargetFor(role Role) string {
	return p.For(role.Counterpart())
}
