package chatstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/ageniuscoder/mmchat/gateway/internal/models"
	"github.com/ageniuscoder/mmchat/gateway/internal/storage/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return NewEngine(db.Db, logger.NewNopLogger())
}

func call(t *testing.T, e *gin.Engine, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func openConversation(t *testing.T, e *gin.Engine, a, b int64) models.Conversation {
	t.Helper()
	var conv models.Conversation
	code := call(t, e, http.MethodPost, "/chat/conversation/find-or-create", models.FindOrCreateConversation{UserID1: a, UserID2: b}, &conv)
	require.Equal(t, http.StatusOK, code)
	return conv
}

func send(t *testing.T, e *gin.Engine, convID, sender int64, content string) models.Message {
	t.Helper()
	var msg models.Message
	code := call(t, e, http.MethodPost, "/chat/new-message", models.NewMessage{
		ConversationID: convID, SenderID: sender, Content: content, Type: models.MessageText,
	}, &msg)
	require.Equal(t, http.StatusOK, code)
	return msg
}

func TestFindOrCreateIsOrderInsensitive(t *testing.T) {
	e := newTestEngine(t)

	first := openConversation(t, e, 1, 2)
	second := openConversation(t, e, 2, 1)
	third := openConversation(t, e, 1, 2)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, int64(1), first.User1ID)
	assert.Equal(t, int64(2), first.User2ID)

	other := openConversation(t, e, 1, 3)
	assert.NotEqual(t, first.ID, other.ID)

	var convs []models.Conversation
	require.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/chat/user/1/conversations", nil, &convs))
	assert.Len(t, convs, 2)
}

func TestFindOrCreateRejectsSelf(t *testing.T) {
	e := newTestEngine(t)
	code := call(t, e, http.MethodPost, "/chat/conversation/find-or-create", models.FindOrCreateConversation{UserID1: 4, UserID2: 4}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = call(t, e, http.MethodPost, "/chat/conversation/find-or-create", map[string]int{"userId1": 4}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateMessageRules(t *testing.T) {
	e := newTestEngine(t)
	conv := openConversation(t, e, 1, 2)

	msg := send(t, e, conv.ID, 1, "hi")
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, models.MessageText, msg.Type)
	assert.Equal(t, []int64{}, msg.DeletedFor)

	tests := []struct {
		name string
		req  models.NewMessage
		want int
	}{
		{"outsider", models.NewMessage{ConversationID: conv.ID, SenderID: 3, Content: "x", Type: models.MessageText}, http.StatusForbidden},
		{"unknown conversation", models.NewMessage{ConversationID: 999, SenderID: 1, Content: "x", Type: models.MessageText}, http.StatusNotFound},
		{"bad type", models.NewMessage{ConversationID: conv.ID, SenderID: 1, Content: "x", Type: "GIF"}, http.StatusBadRequest},
		{"empty", models.NewMessage{ConversationID: conv.ID, SenderID: 1, Type: models.MessageText}, http.StatusBadRequest},
		{"file only", models.NewMessage{ConversationID: conv.ID, SenderID: 2, Type: models.MessageImage, FileURL: "https://cdn/x.png"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, e, http.MethodPost, "/chat/new-message", tt.req, nil))
		})
	}

	var list []models.Message
	require.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/chat/conversation/1/messages", nil, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "https://cdn/x.png", list[1].FileURL)

	assert.Equal(t, http.StatusNotFound, call(t, e, http.MethodGet, "/chat/conversation/42/messages", nil, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, e, http.MethodGet, "/chat/conversation/abc/messages", nil, nil))
}

func TestUpdateMessageIsSenderOnly(t *testing.T) {
	e := newTestEngine(t)
	conv := openConversation(t, e, 1, 2)
	msg := send(t, e, conv.ID, 1, "helo")

	code := call(t, e, http.MethodPut, "/chat/message", models.MessageUpdate{MessageID: msg.ID, UserID: 2, Content: "hacked"}, nil)
	assert.Equal(t, http.StatusForbidden, code)

	var updated models.Message
	code = call(t, e, http.MethodPut, "/chat/message", models.MessageUpdate{MessageID: msg.ID, UserID: 1, Content: "hello"}, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", updated.Content)
	assert.Equal(t, models.MessageText, updated.Type)

	code = call(t, e, http.MethodPut, "/chat/message", models.MessageUpdate{MessageID: 777, UserID: 1, Content: "x"}, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteMessageScopes(t *testing.T) {
	e := newTestEngine(t)
	conv := openConversation(t, e, 1, 2)
	keep := send(t, e, conv.ID, 1, "keep")
	drop := send(t, e, conv.ID, 1, "drop")

	// FOR_ALL is sender-only
	code := call(t, e, http.MethodPost, "/chat/message/delete", models.MessageDelete{MessageID: drop.ID, UserID: 2, DeleteType: models.DeleteForAll}, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// outsiders cannot hide either
	code = call(t, e, http.MethodPost, "/chat/message/delete", models.MessageDelete{MessageID: keep.ID, UserID: 3, DeleteType: models.DeleteForMe}, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code = call(t, e, http.MethodPost, "/chat/message/delete", models.MessageDelete{MessageID: keep.ID, UserID: 2, DeleteType: models.DeleteForMe}, nil)
	assert.Equal(t, http.StatusOK, code)
	// hiding twice is harmless
	code = call(t, e, http.MethodPost, "/chat/message/delete", models.MessageDelete{MessageID: keep.ID, UserID: 2, DeleteType: models.DeleteForMe}, nil)
	assert.Equal(t, http.StatusOK, code)

	code = call(t, e, http.MethodPost, "/chat/message/delete", models.MessageDelete{MessageID: drop.ID, UserID: 1, DeleteType: models.DeleteForAll}, nil)
	assert.Equal(t, http.StatusOK, code)

	code = call(t, e, http.MethodPost, "/chat/message/delete", models.MessageDelete{MessageID: keep.ID, UserID: 1, DeleteType: "FOR_YOU"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var list []models.Message
	require.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/chat/conversation/1/messages", nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
	assert.Equal(t, []int64{2}, list[0].DeletedFor)
	assert.True(t, list[0].HiddenFor(2))
	assert.False(t, list[0].HiddenFor(1))
}

func TestMessageMustBelongToNamedConversation(t *testing.T) {
	e := newTestEngine(t)
	a := openConversation(t, e, 1, 2)
	b := openConversation(t, e, 1, 3)
	msg := send(t, e, a.ID, 1, "in a")

	code := call(t, e, http.MethodPut, "/chat/message",
		models.MessageUpdate{MessageID: msg.ID, ConversationID: b.ID, UserID: 1, Content: "moved"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = call(t, e, http.MethodPost, "/chat/message/delete",
		models.MessageDelete{MessageID: msg.ID, ConversationID: b.ID, UserID: 1, DeleteType: models.DeleteForAll}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var list []models.Message
	require.Equal(t, http.StatusOK, call(t, e, http.MethodGet, fmt.Sprintf("/chat/conversation/%d/messages", a.ID), nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "in a", list[0].Content)

	code = call(t, e, http.MethodPost, "/chat/message/delete",
		models.MessageDelete{MessageID: msg.ID, ConversationID: a.ID, UserID: 1, DeleteType: models.DeleteForAll}, nil)
	assert.Equal(t, http.StatusOK, code)
}
