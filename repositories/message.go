//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain/chat"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(conv chat.ConversationID, cursor *string) ([]DiskMessage, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type DiskMessage struct {
	ID         uuid.UUID           `cbor:"1,keyasint"`
	Chat       chat.ConversationID `cbor:"2,keyasint"`
	Sender     chat.Principal      `cbor:"3,keyasint"`
	SenderName string              `cbor:"4,keyasint"`
	Body       string              `cbor:"5,keyasint"`
	Lang       string              `cbor:"6,keyasint,omitempty"`
	At         time.Time           `cbor:"7,keyasint"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.Chat,
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := cbor.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages retrieves messages for a conversation using a reverse
// prefix scan, newest first. The padded timestamp in the key keeps them
// naturally sorted; the returned cursor resumes the scan on the next
// page and is nil once the history is exhausted, so callers never need
// a probe read to detect the end. Collection stops once the configured
// limitMessages is reached.
func (m MessageRepository) GetMessages(conv chat.ConversationID, cursor *string) ([]DiskMessage, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	var exhausted bool
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", conv)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		// After a limit break the iterator still points at unread keys;
		// a natural loop exit means the prefix ran out.
		exhausted = !it.ValidForPrefix(prefix)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	diskMessages := make([]DiskMessage, 0, len(byteMessages))
	for _, b := range byteMessages {
		var message DiskMessage
		if err = cbor.Unmarshal(b, &message); err != nil {
			return nil, nil, err
		}
		diskMessages = append(diskMessages, message)
	}
	if exhausted {
		return diskMessages, nil, nil
	}
	return diskMessages, &lastKey, nil
}

func ToDiskMessage(m chat.Message) DiskMessage {
	return DiskMessage{
		ID:         m.ID,
		Chat:       m.Conversation,
		Sender:     m.Sender,
		SenderName: m.SenderName,
		Body:       m.Body,
		Lang:       m.Lang,
		At:         m.CreatedAt,
	}
}

func FromDiskMessage(d DiskMessage) chat.Message {
	return chat.Message{
		ID:           d.ID,
		Conversation: d.Chat,
		Sender:       d.Sender,
		SenderName:   d.SenderName,
		Body:         d.Body,
		Lang:         d.Lang,
		CreatedAt:    d.At,
	}
}
