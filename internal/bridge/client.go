// Package bridge is the outbound adapter to the persistence service that owns
// conversations and messages.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/ageniuscoder/mmchat/gateway/internal/metrics"
	"github.com/ageniuscoder/mmchat/gateway/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 4 << 10

type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	metrics *metrics.Collectors
	log     logger.ILogger
}

func New(baseURL string, timeout time.Duration, m *metrics.Collectors, log logger.ILogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("github.com/ageniuscoder/mmchat/gateway/internal/bridge"),
		metrics: m,
		log:     log,
	}
}

func (c *Client) FindOrCreateConversation(ctx context.Context, userID1, userID2 int64) (models.Conversation, error) {
	var conv models.Conversation
	err := c.do(ctx, "find_or_create_conversation", http.MethodPost, "/chat/conversation/find-or-create",
		models.FindOrCreateConversation{UserID1: userID1, UserID2: userID2}, &conv)
	return conv, err
}

func (c *Client) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	var out models.Message
	err := c.do(ctx, "create_message", http.MethodPost, "/chat/new-message", msg, &out)
	return out, err
}

func (c *Client) ConversationMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	var out []models.Message
	err := c.do(ctx, "conversation_messages", http.MethodGet,
		fmt.Sprintf("/chat/conversation/%d/messages", conversationID), nil, &out)
	return out, err
}

func (c *Client) UserConversations(ctx context.Context, userID int64) ([]models.Conversation, error) {
	var out []models.Conversation
	err := c.do(ctx, "user_conversations", http.MethodGet,
		fmt.Sprintf("/chat/user/%d/conversations", userID), nil, &out)
	return out, err
}

func (c *Client) UpdateMessage(ctx context.Context, upd models.MessageUpdate) (models.Message, error) {
	var out models.Message
	err := c.do(ctx, "update_message", http.MethodPut, "/chat/message", upd, &out)
	return out, err
}

func (c *Client) DeleteMessage(ctx context.Context, del models.MessageDelete) error {
	return c.do(ctx, "delete_message", http.MethodPost, "/chat/message/delete", del, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "bridge."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("http.route", path)))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if c.metrics != nil {
			c.metrics.BridgeDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := &Error{Op: op, Status: resp.StatusCode, Message: errorMessage(raw), Kind: kindForStatus(resp.StatusCode)}
		c.log.Debug("Bridge", "persistence call rejected", map[string]interface{}{
			"op": op, "status": resp.StatusCode, "message": e.Message,
		})
		return e
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: "malformed response: " + err.Error(), Kind: ErrUpstreamUnavailable}
	}
	return nil
}

// errorMessage pulls the human readable part out of an error body.
func errorMessage(raw []byte) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if s, ok := body.Error.(string); ok && s != "" {
			return s
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
