// Package chatstore is a reference implementation of the persistence service's
// REST surface, backed by SQLite.
package chatstore

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/ageniuscoder/mmchat/gateway/internal/httpx"
	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Service struct {
	DB  *sql.DB
	Log logger.ILogger
}

func Register(rg *gin.RouterGroup, db *sql.DB, log logger.ILogger) {
	s := Service{
		DB:  db,
		Log: log,
	}
	chat := rg.Group("/chat")
	chat.POST("/conversation/find-or-create", s.findOrCreateConversation)
	chat.GET("/conversation/:id/messages", s.listMessages)
	chat.GET("/user/:id/conversations", s.listConversations)
	chat.POST("/new-message", s.createMessage)
	chat.PUT("/message", s.updateMessage)
	chat.POST("/message/delete", s.deleteMessage)
}

// bind decodes and validates the JSON body, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			httpx.Invalid(c, validationErrors)
			return false
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Err(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s Service) dbError(c *gin.Context, op string, err error) {
	s.Log.Error("ChatStore", "database error", map[string]interface{}{"op": op, "error": err})
	httpx.Err(c, http.StatusInternalServerError, "database error")
}

// NewEngine builds the gin engine serving the persistence REST surface.
func NewEngine(db *sql.DB, log logger.ILogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c); err != nil {
			httpx.Err(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		httpx.OK(c, gin.H{"status": "ok"})
	})
	Register(&r.RouterGroup, db, log)
	return r
}
