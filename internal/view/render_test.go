package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbridge/internal/domain"
)

func sampleMessage(role domain.Role) domain.Message {
	audio := "/static/audio/7.mp3"
	return domain.Message{
		ID:             7,
		Role:           role,
		OriginalText:   "I have a headache",
		TranslatedText: "Tengo dolor de cabeza",
		Language:       "Spanish",
		AudioURL:       &audio,
	}
}

func TestRenderOwnAndOtherForEachRole(t *testing.T) {
	t.Parallel()

	for _, author := range []domain.Role{domain.RoleDoctor, domain.RolePatient} {
		msg := sampleMessage(author)

		own := Render(msg, author, "http://localhost:8000")
		assert.True(t, own.Own)
		assert.Equal(t, msg.OriginalText, own.Text)
		assert.Equal(t, SourceLabel, own.LanguageLabel)
		assert.False(t, own.CanRegenerate)

		other := Render(msg, author.Counterpart(), "http://localhost:8000")
		assert.False(t, other.Own)
		assert.Equal(t, msg.TranslatedText, other.Text)
		assert.Equal(t, "Spanish", other.LanguageLabel)
		assert.True(t, other.CanRegenerate)
	}
}

func TestRenderFollowsViewerWithoutMutatingMessage(t *testing.T) {
	t.Parallel()

	messages := []domain.Message{sampleMessage(domain.RoleDoctor), sampleMessage(domain.RolePatient)}
	before := append([]domain.Message(nil), messages...)

	asDoctor := RenderAll(messages, domain.RoleDoctor, "")
	asPatient := RenderAll(messages, domain.RolePatient, "")

	require.Len(t, asDoctor, 2)
	assert.Equal(t, "I have a headache", asDoctor[0].Text)
	assert.Equal(t, "Tengo dolor de cabeza", asPatient[0].Text)
	assert.Equal(t, "Tengo dolor de cabeza", asDoctor[1].Text)
	assert.Equal(t, before, messages)
}

func TestRenderRoleNameAndAudio(t *testing.T) {
	t.Parallel()

	rendered := Render(sampleMessage(domain.RolePatient), domain.RoleDoctor, "http://localhost:8000/")
	assert.Equal(t, "Patient", rendered.RoleName)
	assert.Equal(t, "http://localhost:8000/static/audio/7.mp3", rendered.AudioSrc)
	assert.Equal(t, []Segment{{Text: rendered.Text}}, rendered.Segments)

	noAudio := sampleMessage(domain.RoleDoctor)
	noAudio.AudioURL = nil
	assert.Empty(t, Render(noAudio, domain.RoleDoctor, "http://x").AudioSrc)
	assert.Equal(t, "Doctor", RoleName(domain.RoleDoctor))
}

func TestResolveAudioURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ref  string
		want string
	}{
		{name: "inline data", ref: "data:audio/mp3;base64,AAAA", want: "data:audio/mp3;base64,AAAA"},
		{name: "absolute", ref: "https://cdn.example.com/a.mp3", want: "https://cdn.example.com/a.mp3"},
		{name: "rooted path", ref: "/static/a.mp3", want: "http://localhost:8000/static/a.mp3"},
		{name: "bare path", ref: "static/a.mp3", want: "http://localhost:8000/static/a.mp3"},
		{name: "empty", ref: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveAudioURL(tc.ref, "http://localhost:8000"))
		})
	}
}
