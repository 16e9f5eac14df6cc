//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"chat-relay/domain/chat"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IConversationRepository interface {
	StoreConversation(c chat.Conversation) error
	GetConversation(id chat.ConversationID) (chat.Conversation, error)
	FindForMember(p chat.Principal) ([]chat.Conversation, error)
	FindOneToOne(a, b chat.Principal) (chat.Conversation, bool, error)
	IsMember(id chat.ConversationID, p chat.Principal) (bool, error)
	UpdateLatestMessage(id chat.ConversationID, m chat.Message) error
	Rename(id chat.ConversationID, name string) error
	AddMember(id chat.ConversationID, p chat.Principal) error
	RemoveMember(id chat.ConversationID, p chat.Principal) error
}

// ConversationRepository stores conversation records under "chat:{id}",
// a per-member index under "member:{principal}:{id}" and a pair index
// "pair:{lo}:{hi}" so a one-to-one conversation can be found by its
// member set.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

type diskLatest struct {
	ID         uuid.UUID      `cbor:"1,keyasint"`
	Sender     chat.Principal `cbor:"2,keyasint"`
	SenderName string         `cbor:"3,keyasint"`
	Body       string         `cbor:"4,keyasint"`
	At         time.Time      `cbor:"5,keyasint"`
}

type diskConversation struct {
	ID      chat.ConversationID `cbor:"1,keyasint"`
	IsGroup bool                `cbor:"2,keyasint"`
	Name    string              `cbor:"3,keyasint,omitempty"`
	Admin   chat.Principal      `cbor:"4,keyasint,omitempty"`
	Members []chat.Principal    `cbor:"5,keyasint"`
	Latest  *diskLatest         `cbor:"6,keyasint,omitempty"`
}

func conversationKey(id chat.ConversationID) []byte {
	return []byte(fmt.Sprintf("chat:%s", id))
}

func memberKey(p chat.Principal, id chat.ConversationID) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", p, id))
}

func pairKey(a, b chat.Principal) []byte {
	first, second := string(a), string(b)
	if second < first {
		first, second = second, first
	}
	return []byte(fmt.Sprintf("pair:%s:%s", first, second))
}

func (r ConversationRepository) StoreConversation(c chat.Conversation) error {
	bytes, err := cbor.Marshal(toDiskConversation(c))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(conversationKey(c.ID), bytes); err != nil {
			return err
		}
		for _, m := range c.Members {
			if err := txn.Set(memberKey(m, c.ID), nil); err != nil {
				return err
			}
		}
		if !c.IsGroup && len(c.Members) == 2 {
			if err := txn.Set(pairKey(c.Members[0], c.Members[1]), []byte(c.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r ConversationRepository) GetConversation(id chat.ConversationID) (chat.Conversation, error) {
	var out chat.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		d, err := readConversation(txn, id)
		if err != nil {
			return err
		}
		out = fromDiskConversation(d)
		return nil
	})
	return out, err
}

// FindForMember scans the member index and loads each conversation,
// sorted by latest activity for summary display.
func (r ConversationRepository) FindForMember(p chat.Principal) ([]chat.Conversation, error) {
	var ids []chat.ConversationID
	prefixStr := fmt.Sprintf("member:%s:", p)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(prefixStr)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, chat.ConversationID(it.Item().Key()[len(prefixStr):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	conversations := make([]chat.Conversation, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetConversation(id)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return latestAt(conversations[i]).After(latestAt(conversations[j]))
	})
	return conversations, nil
}

func latestAt(c chat.Conversation) time.Time {
	if c.LatestMessage == nil {
		return time.Time{}
	}
	return c.LatestMessage.CreatedAt
}

// FindOneToOne returns the existing non-group conversation for a member
// pair, if any.
func (r ConversationRepository) FindOneToOne(a, b chat.Principal) (chat.Conversation, bool, error) {
	var id chat.ConversationID
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(a, b))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			id = chat.ConversationID(value)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return chat.Conversation{}, false, nil
	}
	if err != nil {
		return chat.Conversation{}, false, err
	}
	c, err := r.GetConversation(id)
	if err != nil {
		return chat.Conversation{}, false, err
	}
	return c, true, nil
}

func (r ConversationRepository) IsMember(id chat.ConversationID, p chat.Principal) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(p, id))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateLatestMessage overwrites the denormalized summary pointer.
// Last-write-wins: the pointer is a display hint, not the message log.
func (r ConversationRepository) UpdateLatestMessage(id chat.ConversationID, m chat.Message) error {
	return r.mutate(id, func(d *diskConversation) error {
		d.Latest = &diskLatest{
			ID:         m.ID,
			Sender:     m.Sender,
			SenderName: m.SenderName,
			Body:       m.Body,
			At:         m.CreatedAt,
		}
		return nil
	})
}

func (r ConversationRepository) Rename(id chat.ConversationID, name string) error {
	return r.mutate(id, func(d *diskConversation) error {
		d.Name = name
		return nil
	})
}

func (r ConversationRepository) AddMember(id chat.ConversationID, p chat.Principal) error {
	err := r.mutate(id, func(d *diskConversation) error {
		if lo.Contains(d.Members, p) {
			return nil
		}
		d.Members = append(d.Members, p)
		return nil
	})
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(memberKey(p, id), nil)
	})
}

func (r ConversationRepository) RemoveMember(id chat.ConversationID, p chat.Principal) error {
	err := r.mutate(id, func(d *diskConversation) error {
		d.Members = lo.Filter(d.Members, func(m chat.Principal, _ int) bool {
			return m != p
		})
		return nil
	})
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(memberKey(p, id))
	})
}

// mutate performs a read-modify-write of one conversation record inside
// a single transaction.
func (r ConversationRepository) mutate(id chat.ConversationID, fn func(*diskConversation) error) error {
	return r.db.Update(func(txn *badger.Txn) error {
		d, err := readConversation(txn, id)
		if err != nil {
			return err
		}
		if err := fn(&d); err != nil {
			return err
		}
		bytes, err := cbor.Marshal(d)
		if err != nil {
			return err
		}
		return txn.Set(conversationKey(id), bytes)
	})
}

func readConversation(txn *badger.Txn, id chat.ConversationID) (diskConversation, error) {
	item, err := txn.Get(conversationKey(id))
	if err == badger.ErrKeyNotFound {
		return diskConversation{}, errors.ErrConversationNotFound
	}
	if err != nil {
		return diskConversation{}, err
	}
	var d diskConversation
	err = item.Value(func(value []byte) error {
		return cbor.Unmarshal(value, &d)
	})
	return d, err
}

func toDiskConversation(c chat.Conversation) diskConversation {
	d := diskConversation{
		ID:      c.ID,
		IsGroup: c.IsGroup,
		Name:    c.Name,
		Admin:   c.Admin,
		Members: c.Members,
	}
	if c.LatestMessage != nil {
		d.Latest = &diskLatest{
			ID:         c.LatestMessage.ID,
			Sender:     c.LatestMessage.Sender,
			SenderName: c.LatestMessage.SenderName,
			Body:       c.LatestMessage.Body,
			At:         c.LatestMessage.CreatedAt,
		}
	}
	return d
}

func fromDiskConversation(d diskConversation) chat.Conversation {
	c := chat.Conversation{
		ID:      d.ID,
		IsGroup: d.IsGroup,
		Name:    d.Name,
		Admin:   d.Admin,
		Members: d.Members,
	}
	if d.Latest != nil {
		c.LatestMessage = &chat.Message{
			ID:           d.Latest.ID,
			Conversation: d.ID,
			Sender:       d.Latest.Sender,
			SenderName:   d.Latest.SenderName,
			Body:         d.Latest.Body,
			CreatedAt:    d.Latest.At,
		}
	}
	return c
}
