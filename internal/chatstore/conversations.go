package chatstore

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/ageniuscoder/mmchat/gateway/internal/httpx"
	"github.com/ageniuscoder/mmchat/gateway/internal/models"
	"github.com/gin-gonic/gin"
)

const conversationColumns = `id, user1_id, user2_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt)
	return conv, err
}

func (s Service) findOrCreateConversation(c *gin.Context) {
	var req models.FindOrCreateConversation
	if !bind(c, &req) {
		return
	}
	if req.UserID1 == req.UserID2 {
		httpx.Err(c, http.StatusBadRequest, "cannot start a conversation with yourself")
		return
	}
	lo, hi := models.OrderedPair(req.UserID1, req.UserID2)

	// the pair is unique, so concurrent callers converge on one row
	if _, err := s.DB.ExecContext(c, `INSERT INTO conversations (user1_id, user2_id) VALUES (?, ?)
		ON CONFLICT (user1_id, user2_id) DO NOTHING`, lo, hi); err != nil {
		s.dbError(c, "insert conversation", err)
		return
	}

	conv, err := scanConversation(s.DB.QueryRowContext(c,
		`SELECT `+conversationColumns+` FROM conversations WHERE user1_id=? AND user2_id=?`, lo, hi))
	if err != nil {
		s.dbError(c, "select conversation", err)
		return
	}
	httpx.OK(c, conv)
}

func (s Service) listConversations(c *gin.Context) {
	uid, ok := paramID(c)
	if !ok {
		return
	}

	rows, err := s.DB.QueryContext(c, `SELECT `+conversationColumns+` FROM conversations
		WHERE user1_id=? OR user2_id=?
		ORDER BY created_at DESC, id DESC`, uid, uid)
	if err != nil {
		s.dbError(c, "list conversations", err)
		return
	}
	defer rows.Close()

	list := []models.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			s.dbError(c, "scan conversation", err)
			return
		}
		list = append(list, conv)
	}
	if err := rows.Err(); err != nil {
		s.dbError(c, "iterate conversations", err)
		return
	}
	httpx.OK(c, list)
}

// loadConversation answers 404 itself when the conversation does not exist.
func (s Service) loadConversation(c *gin.Context, id int64) (models.Conversation, bool) {
	conv, err := scanConversation(s.DB.QueryRowContext(c,
		`SELECT `+conversationColumns+` FROM conversations WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		httpx.Err(c, http.StatusNotFound, "conversation not found")
		return conv, false
	}
	if err != nil {
		s.dbError(c, "load conversation", err)
		return conv, false
	}
	return conv, true
}
