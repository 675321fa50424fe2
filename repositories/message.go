package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"

	"realtime-hub/domain"
	"realtime-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type BadgerMessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) BadgerMessageRepository {
	return BadgerMessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// conversationPrefix is the same for both directions of a conversation.
func conversationPrefix(a, b domain.UserID) string {
	low, high := min(a, b), max(a, b)
	return fmt.Sprintf("msg:%d:%d:", low, high)
}

// messageKey is formatted as "msg:{low}:{high}:{timestamp_padded}:{uuid}".
// The 19-digit zero padding keeps lexicographical order chronological and the
// uuid separates messages created at the same nanosecond.
func messageKey(message domain.StoredMessage) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		conversationPrefix(message.SenderID, message.ReceiverID),
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

func indexKey(id string) []byte {
	return []byte("idx:msg:" + id)
}

// Save persists a message and its id index in the same transaction.
func (m BadgerMessageRepository) Save(_ context.Context, message domain.StoredMessage) (domain.StoredMessage, error) {
	bytes, err := json.Marshal(message)
	if err != nil {
		return domain.StoredMessage{}, err
	}
	key := messageKey(message)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID.String()), key)
	})
	if err != nil {
		return domain.StoredMessage{}, err
	}
	return message, nil
}

// Conversation returns the messages exchanged between a and b, oldest first.
// The scan runs backwards from the newest key so that limitMessages keeps the most recent ones.
func (m BadgerMessageRepository) Conversation(_ context.Context, a, b domain.UserID) ([]domain.StoredMessage, error) {
	var messages []domain.StoredMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(a, b))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(slices.Clone(prefix), []byte("9999999999999999999")...)); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			var message domain.StoredMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

// MarkAsRead flags a message as read. Only its receiver may do so.
func (m BadgerMessageRepository) MarkAsRead(_ context.Context, id string, reader domain.UserID) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		index, err := txn.Get(indexKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
		}
		if err != nil {
			return err
		}
		key, err := index.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
		}
		if err != nil {
			return err
		}

		var message domain.StoredMessage
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &message)
		}); err != nil {
			return err
		}
		if message.ReceiverID != reader {
			return fmt.Errorf("%w: user %s is not the receiver of %s", errors.ErrForbidden, reader, id)
		}
		if message.IsRead {
			return nil
		}
		message.IsRead = true
		bytes, err := json.Marshal(message)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}
