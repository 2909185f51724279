package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbridge/internal/domain"
	"medbridge/internal/observability"
	"medbridge/internal/ports"
)

const messageJSON = `{"id":11,"role":"doctor","original_text":"Hello","translated_text":"Hola","language":"Spanish","audio_url":"/static/audio/a.mp3","timestamp":"2025-01-02T03:04:05.000001"}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *observability.Metrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	metrics := observability.NewMetrics()
	return NewClient(Config{APIURL: server.URL + "/api/", Timeout: 5 * time.Second}, zerolog.Nop(), metrics), metrics
}

func TestListConversations(t *testing.T) {
	t.Parallel()

	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/conversations", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `[{"id":2,"title":"New Consultation","created_at":"2025-01-02T03:04:05","summary":null},{"id":1,"title":"Follow-up","created_at":"2025-01-01T03:04:05","summary":"- Plan:\nRest"}]`)
	})

	convs, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, int64(2), convs[0].ID)
	assert.Nil(t, convs[0].Summary)
	require.NotNil(t, convs[1].Summary)
	assert.Equal(t, 2025, convs[0].CreatedAt.Year())
	assertSingleBackendRequest(t, metrics, "list_conversations", "success")
}

func TestSendTextUsesQueryParameters(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/conversations/5/messages", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "doctor", q.Get("role"))
		assert.Equal(t, "Hello there", q.Get("text"))
		assert.Equal(t, "Spanish", q.Get("target_lang"))
		_, _ = io.WriteString(w, messageJSON)
	})

	msg, err := client.SendText(context.Background(), ports.TextMessage{
		ConversationID: 5,
		Role:           domain.RoleDoctor,
		Text:           "Hello there",
		TargetLanguage: "Spanish",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), msg.ID)
	assert.Equal(t, "Hola", msg.TranslatedText)
	require.NotNil(t, msg.AudioURL)
	assert.Equal(t, "/static/audio/a.mp3", *msg.AudioURL)
}

func TestSendAudioUploadsMultipart(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "patient", r.URL.Query().Get("role"))
		assert.Equal(t, "English", r.URL.Query().Get("target_lang"))
		assert.Empty(t, r.URL.Query().Get("text"))

		file, header, err := r.FormFile("audio")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "webm-bytes", string(data))
		assert.Equal(t, "recording.webm", header.Filename)
		assert.Equal(t, "audio/webm", header.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, messageJSON)
	})

	_, err := client.SendAudio(context.Background(), ports.AudioMessage{
		ConversationID: 9,
		Role:           domain.RolePatient,
		TargetLanguage: "English",
		Audio:          domain.AudioArtifact{Data: []byte("webm-bytes"), MimeType: "audio/webm"},
	})
	require.NoError(t, err)
}

func TestRegenerateAndSummarize(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/messages/11/regenerate":
			assert.Equal(t, "French", r.URL.Query().Get("target_lang"))
			_, _ = io.WriteString(w, messageJSON)
		case "/api/conversations/3/summarize":
			_, _ = io.WriteString(w, `{"summary":"Intro.\n- Plan:\nRest"}`)
		default:
			http.NotFound(w, r)
		}
	})

	msg, err := client.Regenerate(context.Background(), 11, "French")
	require.NoError(t, err)
	assert.Equal(t, int64(11), msg.ID)

	summary, err := client.Summarize(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Intro.\n- Plan:\nRest", summary)
}

func TestDeleteNotFoundCarriesDetail(t *testing.T) {
	t.Parallel()

	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Conversation not found"}`)
	})

	err := client.DeleteConversation(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "Conversation not found", statusErr.Detail)
	assertSingleBackendRequest(t, metrics, "delete_conversation", "error")
}

func TestRenameAndSearch(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/api/conversations/4":
			assert.Equal(t, "Cardiology intake", r.URL.Query().Get("title"))
			_, _ = io.WriteString(w, `{"id":4,"title":"Cardiology intake","created_at":"2025-01-01T00:00:00","summary":null}`)
		case r.URL.Path == "/api/search":
			assert.Equal(t, "fever", r.URL.Query().Get("q"))
			_, _ = io.WriteString(w, "["+messageJSON+"]")
		default:
			http.NotFound(w, r)
		}
	})

	conv, err := client.RenameConversation(context.Background(), 4, "Cardiology intake")
	require.NoError(t, err)
	assert.Equal(t, "Cardiology intake", conv.Title)

	hits, err := client.Search(context.Background(), "fever")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestMalformedJSONIsAnError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":`)
	})

	_, err := client.CreateConversation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestHealthUsesServiceRoot(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"status":"healthy"}`)
	})

	require.NoError(t, client.Health(context.Background()))
}

func TestErrorDetailFallsBackToBody(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gateway exploded", errorDetail([]byte("gateway exploded\n")))
	assert.Equal(t, `[{"loc":["query","role"]}]`, errorDetail([]byte(`{"detail":[{"loc":["query","role"]}]}`)))
}

func assertSingleBackendRequest(t *testing.T, m *observability.Metrics, operation, status string) {
	t.Helper()
	expected := fmt.Sprintf(`# HELP medbridge_backend_requests_total Backend calls by operation and outcome
# TYPE medbridge_backend_requests_total counter
medbridge_backend_requests_total{operation=%q,status=%q} 1
`, operation, status)
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "medbridge_backend_requests_total"))
}
