package api

import (
	"fmt"
	"net/http"

	"realtime-hub/auth"
	"realtime-hub/domain"
	"realtime-hub/errors"
	"realtime-hub/session"

	"github.com/gin-gonic/gin"
)

type SendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required"`
}

type SendMessageResponse struct {
	Message   domain.StoredMessage `json:"message"`
	Delivered bool                 `json:"delivered"`
}

type PresenceResponse struct {
	Online map[domain.UserID]bool `json:"online"`
}

type HistoryResponse struct {
	Messages []domain.StoredMessage `json:"messages"`
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.authenticator.Validate(auth.TokenFromRequest(c.Request))
		if err != nil {
			s.abort(c, err)
			return
		}
		c.Set(userIDKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.UserID {
	return c.MustGet(userIDKey).(domain.UserID)
}

func (s *Server) abort(c *gin.Context, err error) {
	status := errors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "online": len(s.registry.Snapshot())})
}

// serveWebsocket hands the upgraded connection to an actor and blocks until it is closed.
func (s *Server) serveWebsocket(c *gin.Context) {
	user := currentUser(c)
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already answered the client.
		s.log.Debug("Websocket upgrade failed", "user_id", user, "error", err)
		return
	}
	actor := session.NewActor(s.log, s.sessionConfig, user, conn, s.registry, s.router)
	if err := actor.Run(c.Request.Context()); err != nil {
		s.log.Info("Connection lost", "user_id", user, "error", err)
	}
}

func (s *Server) presence(c *gin.Context) {
	c.JSON(http.StatusOK, PresenceResponse{Online: s.chat.Presence()})
}

func (s *Server) sendMessage(c *gin.Context) {
	var request SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.abort(c, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err))
		return
	}
	if err := s.validate.Struct(request); err != nil {
		s.abort(c, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err))
		return
	}

	message, delivered, err := s.chat.SendMessage(c.Request.Context(), currentUser(c), domain.UserID(request.ReceiverID), request.Content)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, SendMessageResponse{Message: message, Delivered: delivered})
}

func (s *Server) history(c *gin.Context) {
	peer, err := domain.ParseUserID(c.Param("peer"))
	if err != nil || peer <= 0 {
		s.abort(c, fmt.Errorf("%w: peer %q", errors.ErrInvalidRequest, c.Param("peer")))
		return
	}
	messages, err := s.chat.History(c.Request.Context(), currentUser(c), peer)
	if err != nil {
		s.abort(c, err)
		return
	}
	if messages == nil {
		messages = []domain.StoredMessage{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Messages: messages})
}

func (s *Server) markAsRead(c *gin.Context) {
	if err := s.chat.MarkAsRead(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
