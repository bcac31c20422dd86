package chatstore

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/ageniuscoder/mmchat/gateway/internal/httpx"
	"github.com/ageniuscoder/mmchat/gateway/internal/models"
	"github.com/gin-gonic/gin"
)

const messageColumns = `id, conversation_id, sender_id, content, type, file_url, created_at, updated_at`

func scanMessage(row rowScanner) (models.Message, error) {
	var (
		m       models.Message
		fileURL sql.NullString
	)
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Type, &fileURL, &m.CreatedAt, &m.UpdatedAt)
	m.FileURL = fileURL.String
	m.DeletedFor = []int64{}
	return m, err
}

const errNotInConversation = "message not in conversation"

func (s Service) createMessage(c *gin.Context) {
	var req models.NewMessage
	if !bind(c, &req) {
		return
	}
	if !req.Type.Valid() {
		httpx.Err(c, http.StatusBadRequest, "unknown message type")
		return
	}
	if req.Content == "" && req.FileURL == "" {
		httpx.Err(c, http.StatusBadRequest, "message needs content or a file")
		return
	}

	conv, ok := s.loadConversation(c, req.ConversationID)
	if !ok {
		return
	}
	if !conv.HasMember(req.SenderID) {
		httpx.Err(c, http.StatusForbidden, "not a participant")
		return
	}

	var fileURL sql.NullString
	if req.FileURL != "" {
		fileURL = sql.NullString{String: req.FileURL, Valid: true}
	}
	res, err := s.DB.ExecContext(c, `INSERT INTO messages (conversation_id, sender_id, content, type, file_url) VALUES (?, ?, ?, ?, ?)`,
		req.ConversationID, req.SenderID, req.Content, req.Type, fileURL)
	if err != nil {
		s.dbError(c, "insert message", err)
		return
	}
	mid, _ := res.LastInsertId()

	msg, ok := s.loadMessage(c, mid)
	if !ok {
		return
	}
	httpx.OK(c, msg)
}

func (s Service) listMessages(c *gin.Context) {
	cid, ok := paramID(c)
	if !ok {
		return
	}
	if _, ok := s.loadConversation(c, cid); !ok {
		return
	}

	rows, err := s.DB.QueryContext(c, `SELECT `+messageColumns+` FROM messages
		WHERE conversation_id=? ORDER BY id ASC`, cid)
	if err != nil {
		s.dbError(c, "list messages", err)
		return
	}
	defer rows.Close()

	list := []models.Message{}
	index := map[int64]int{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			s.dbError(c, "scan message", err)
			return
		}
		index[m.ID] = len(list)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		s.dbError(c, "iterate messages", err)
		return
	}

	hidden, err := s.DB.QueryContext(c, `SELECT h.message_id, h.user_id FROM message_hidden h
		JOIN messages m ON m.id = h.message_id
		WHERE m.conversation_id=? ORDER BY h.user_id`, cid)
	if err != nil {
		s.dbError(c, "list hidden", err)
		return
	}
	defer hidden.Close()
	for hidden.Next() {
		var mid, uid int64
		if err := hidden.Scan(&mid, &uid); err != nil {
			s.dbError(c, "scan hidden", err)
			return
		}
		if i, ok := index[mid]; ok {
			list[i].DeletedFor = append(list[i].DeletedFor, uid)
		}
	}
	if err := hidden.Err(); err != nil {
		s.dbError(c, "iterate hidden", err)
		return
	}

	httpx.OK(c, list)
}

func (s Service) updateMessage(c *gin.Context) {
	var req models.MessageUpdate
	if !bind(c, &req) {
		return
	}
	if req.Type != "" && !req.Type.Valid() {
		httpx.Err(c, http.StatusBadRequest, "unknown message type")
		return
	}

	msg, ok := s.loadMessage(c, req.MessageID)
	if !ok {
		return
	}
	if !msg.InConversation(req.ConversationID) {
		httpx.Err(c, http.StatusBadRequest, errNotInConversation)
		return
	}
	if msg.SenderID != req.UserID {
		httpx.Err(c, http.StatusForbidden, "only the sender can edit a message")
		return
	}

	typ := msg.Type
	if req.Type != "" {
		typ = req.Type
	}
	if _, err := s.DB.ExecContext(c, `UPDATE messages SET content=?, type=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		req.Content, typ, req.MessageID); err != nil {
		s.dbError(c, "update message", err)
		return
	}

	msg, ok = s.loadMessage(c, req.MessageID)
	if !ok {
		return
	}
	httpx.OK(c, msg)
}

func (s Service) deleteMessage(c *gin.Context) {
	var req models.MessageDelete
	if !bind(c, &req) {
		return
	}
	if !req.DeleteType.Valid() {
		httpx.Err(c, http.StatusBadRequest, "unknown delete type")
		return
	}

	msg, ok := s.loadMessage(c, req.MessageID)
	if !ok {
		return
	}
	if !msg.InConversation(req.ConversationID) {
		httpx.Err(c, http.StatusBadRequest, errNotInConversation)
		return
	}
	conv, ok := s.loadConversation(c, msg.ConversationID)
	if !ok {
		return
	}
	if !conv.HasMember(req.UserID) {
		httpx.Err(c, http.StatusForbidden, "not a participant")
		return
	}

	switch req.DeleteType {
	case models.DeleteForAll:
		if msg.SenderID != req.UserID {
			httpx.Err(c, http.StatusForbidden, "only the sender can delete a message for everyone")
			return
		}
		if _, err := s.DB.ExecContext(c, `DELETE FROM messages WHERE id=?`, req.MessageID); err != nil {
			s.dbError(c, "delete message", err)
			return
		}
	case models.DeleteForMe:
		if _, err := s.DB.ExecContext(c, `INSERT OR IGNORE INTO message_hidden (message_id, user_id) VALUES (?, ?)`,
			req.MessageID, req.UserID); err != nil {
			s.dbError(c, "hide message", err)
			return
		}
	}
	httpx.OK(c, gin.H{"ok": true})
}

func (s Service) loadMessage(c *gin.Context, id int64) (models.Message, bool) {
	msg, err := scanMessage(s.DB.QueryRowContext(c, `SELECT `+messageColumns+` FROM messages WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		httpx.Err(c, http.StatusNotFound, "message not found")
		return msg, false
	}
	if err != nil {
		s.dbError(c, "load message", err)
		return msg, false
	}
	return msg, true
}
