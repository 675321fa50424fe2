package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"realtime-hub/contract"
	"realtime-hub/domain"
	"realtime-hub/errors"
)

type ChatService struct {
	log              *slog.Logger
	repository       contract.IMessageRepository
	router           contract.IRouter
	directory        contract.IDirectory
	maxContentLength int
}

func NewChatService(log *slog.Logger,
	repository contract.IMessageRepository,
	router contract.IRouter,
	directory contract.IDirectory,
	maxContentLength int) *ChatService {
	return &ChatService{
		log:              log,
		repository:       repository,
		router:           router,
		directory:        directory,
		maxContentLength: maxContentLength,
	}
}

// SendMessage persists first, then tries a real-time delivery.
// An offline receiver is not an error: the message waits in history and delivered is false.
func (s *ChatService) SendMessage(ctx context.Context, sender, receiver domain.UserID, content string) (domain.StoredMessage, bool, error) {
	if receiver <= 0 || receiver == sender {
		return domain.StoredMessage{}, false, fmt.Errorf("%w: invalid receiver %s", errors.ErrInvalidRequest, receiver)
	}
	if strings.TrimSpace(content) == "" {
		return domain.StoredMessage{}, false, fmt.Errorf("%w: empty content", errors.ErrInvalidRequest)
	}
	if s.maxContentLength > 0 && len(content) > s.maxContentLength {
		return domain.StoredMessage{}, false, fmt.Errorf("%w: content longer than %d bytes", errors.ErrInvalidRequest, s.maxContentLength)
	}

	message, err := s.repository.Save(ctx, domain.NewStoredMessage(sender, receiver, content, time.Now()))
	if err != nil {
		return domain.StoredMessage{}, false, fmt.Errorf("save message: %w", err)
	}

	err = s.router.RouteChat(ctx, sender, receiver, content)
	switch {
	case err == nil:
		return message, true, nil
	case stderrors.Is(err, errors.ErrUnreachable):
		s.log.Debug("Message stored for an offline receiver", "message_id", message.ID, "receiver", receiver)
		return message, false, nil
	default:
		return message, false, err
	}
}

func (s *ChatService) History(ctx context.Context, user, peer domain.UserID) ([]domain.StoredMessage, error) {
	return s.repository.Conversation(ctx, user, peer)
}

func (s *ChatService) MarkAsRead(ctx context.Context, id string, reader domain.UserID) error {
	return s.repository.MarkAsRead(ctx, id, reader)
}

func (s *ChatService) Presence() map[domain.UserID]bool {
	return s.directory.Snapshot()
}
