// Package backend talks to the consultation service that performs speech
// recognition, translation, synthesis and summarization.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medbridge/internal/domain"
	"medbridge/internal/observability"
	"medbridge/internal/ports"
)

// MaxResponseSize caps response bodies; inline synthesized audio can be large.
const MaxResponseSize = 32 << 20

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Operation string
	Status    int
	Detail    string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Operation, e.Status, e.Detail)
}

func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrBadRequest
	default:
		return nil
	}
}

// Config controls the HTTP client.
type Config struct {
	APIURL  string
	Timeout time.Duration
}

// Client implements ports.Backend over the service's REST API.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

var _ ports.Backend = (*Client)(nil)

func NewClient(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := c.do(ctx, "list_conversations", http.MethodGet, "/conversations", nil, nil, &out)
	return out, err
}

func (c *Client) CreateConversation(ctx context.Context) (domain.Conversation, error) {
	var out domain.Conversation
	err := c.do(ctx, "create_conversation", http.MethodPost, "/conversations", nil, nil, &out)
	return out, err
}

func (c *Client) DeleteConversation(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_conversation", http.MethodDelete, conversationPath(id, ""), nil, nil, nil)
}

func (c *Client) RenameConversation(ctx context.Context, id int64, title string) (domain.Conversation, error) {
	var out domain.Conversation
	query := url.Values{"title": {title}}
	err := c.do(ctx, "rename_conversation", http.MethodPatch, conversationPath(id, ""), query, nil, &out)
	return out, err
}

func (c *Client) History(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	var out []domain.Message
	err := c.do(ctx, "history", http.MethodGet, conversationPath(conversationID, "/history"), nil, nil, &out)
	return out, err
}

func (c *Client) SendText(ctx context.Context, msg ports.TextMessage) (domain.Message, error) {
	query := url.Values{
		"role":        {string(msg.Role)},
		"text":        {msg.Text},
		"target_lang": {msg.TargetLanguage},
	}
	var out domain.Message
	err := c.do(ctx, "send_text", http.MethodPost, conversationPath(msg.ConversationID, "/messages"), query, nil, &out)
	return out, err
}

func (c *Client) SendAudio(ctx context.Context, msg ports.AudioMessage) (domain.Message, error) {
	payload, err := newAudioPayload(msg.Audio)
	if err != nil {
		return domain.Message{}, fmt.Errorf("send_audio: %w", err)
	}
	query := url.Values{
		"role":        {string(msg.Role)},
		"target_lang": {msg.TargetLanguage},
	}
	var out domain.Message
	err = c.do(ctx, "send_audio", http.MethodPost, conversationPath(msg.ConversationID, "/messages"), query, payload, &out)
	return out, err
}

func (c *Client) Regenerate(ctx context.Context, messageID int64, targetLanguage string) (domain.Message, error) {
	query := url.Values{"target_lang": {targetLanguage}}
	path := "/messages/" + strconv.FormatInt(messageID, 10) + "/regenerate"
	var out domain.Message
	err := c.do(ctx, "regenerate", http.MethodPost, path, query, nil, &out)
	return out, err
}

func (c *Client) Summarize(ctx context.Context, conversationID int64) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.do(ctx, "summarize", http.MethodPost, conversationPath(conversationID, "/summarize"), nil, nil, &out)
	return out.Summary, err
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.Message, error) {
	var out []domain.Message
	err := c.do(ctx, "search", http.MethodGet, "/search", url.Values{"q": {query}}, nil, &out)
	return out, err
}

// Health checks the service root health endpoint, which lives beside the
// API prefix rather than under it.
func (c *Client) Health(ctx context.Context) error {
	root := strings.TrimSuffix(c.apiURL, "/api")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root+"/health", nil)
	if err != nil {
		return fmt.Errorf("health: failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health: request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Operation: "health", Status: resp.StatusCode}
	}
	return nil
}

type requestBody struct {
	contentType string
	body        []byte
}

func newAudioPayload(artifact domain.AudioArtifact) (*requestBody, error) {
	mimeType := artifact.MimeType
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="audio"; filename="recording`+extensionFor(mimeType)+`"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio part: %w", err)
	}
	if _, err := part.Write(artifact.Data); err != nil {
		return nil, fmt.Errorf("failed to write audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &requestBody{contentType: writer.FormDataContentType(), body: buf.Bytes()}, nil
}

func extensionFor(mimeType string) string {
	switch strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]) {
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".webm"
	}
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, payload *requestBody, out any) (err error) {
	started := time.Now()
	correlationID := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(c.logger, correlationID).With().Str("operation", operation).Logger()
	defer func() {
		c.metrics.RecordBackendCall(operation, started, err)
		if err != nil {
			logger.Warn().Err(err).Dur("latency", time.Since(started)).Msg("backend call failed")
			return
		}
		logger.Debug().Dur("latency", time.Since(started)).Msg("backend call completed")
	}()

	target := c.apiURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", correlationID)
	if payload != nil {
		req.Header.Set("Content-Type", payload.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Operation: operation, Status: resp.StatusCode, Detail: errorDetail(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", operation, err)
	}
	return nil
}

func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return data, nil
}

// errorDetail extracts FastAPI's {"detail": ...} payload when present.
func errorDetail(data []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return text
		}
		return string(payload.Detail)
	}
	detail := strings.TrimSpace(string(data))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return detail
}

func conversationPath(id int64, suffix string) string {
	return "/conversations/" + strconv.FormatInt(id, 10) + suffix
}
