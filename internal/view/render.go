// Package view derives what the frontend displays from the thread state.
// Every function here is pure: the viewing role and query are parameters,
// never fields stored on messages.
package view

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"medbridge/internal/domain"
)

// SourceLabel marks a message the viewer authored, in place of a language name.
const SourceLabel = "Input Source"

// RenderedMessage is one message as seen by a given role.
type RenderedMessage struct {
	ID            int64            `json:"id"`
	Role          domain.Role      `json:"role"`
	RoleName      string           `json:"roleName"`
	Own           bool             `json:"own"`
	Text          string           `json:"text"`
	LanguageLabel string           `json:"languageLabel"`
	AudioSrc      string           `json:"audioSrc,omitempty"`
	CanRegenerate bool             `json:"canRegenerate"`
	Timestamp     domain.Timestamp `json:"timestamp"`
	Match         bool             `json:"match"`
	Segments      []Segment        `json:"segments"`
}

// Render applies the role-relative rule: the author reads the original, the
// counterpart reads the translation under its language name.
func Render(msg domain.Message, viewer domain.Role, audioBase string) RenderedMessage {
	out := RenderedMessage{
		ID:        msg.ID,
		Role:      msg.Role,
		RoleName:  RoleName(msg.Role),
		Own:       msg.Role == viewer,
		Timestamp: msg.Timestamp,
	}
	if out.Own {
		out.Text = msg.OriginalText
		out.LanguageLabel = SourceLabel
	} else {
		out.Text = msg.TranslatedText
		out.LanguageLabel = msg.Language
		out.CanRegenerate = true
	}
	if msg.AudioURL != nil {
		out.AudioSrc = ResolveAudioURL(*msg.AudioURL, audioBase)
	}
	out.Segments = []Segment{{Text: out.Text}}
	return out
}

// RenderAll renders messages in thread order.
func RenderAll(messages []domain.Message, viewer domain.Role, audioBase string) []RenderedMessage {
	out := make([]RenderedMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, Render(msg, viewer, audioBase))
	}
	return out
}

// RoleName is the display name of a role, e.g. "Doctor".
func RoleName(role domain.Role) string {
	return cases.Title(language.English).String(string(role))
}

// ResolveAudioURL returns inline data references and absolute URLs
// unchanged and joins relative paths onto base.
func ResolveAudioURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data") {
		return ref
	}
	if parsed, err := url.Parse(ref); err == nil && parsed.IsAbs() {
		return ref
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}
