package services

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ChatService owns conversation lifecycle: creation, group administration
// and the membership hooks that keep live room state in line with
// storage. When a member is removed, every connection of that principal
// leaves the room before the change is announced, so a removed member
// never receives the announcement or anything after it.
type ChatService struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	registry      contract.IRegistry
	broker        contract.IBroker
}

func NewChatService(log *slog.Logger, conversations repositories.IConversationRepository,
	registry contract.IRegistry, broker contract.IBroker) *ChatService {
	return &ChatService{
		log:           log,
		conversations: conversations,
		registry:      registry,
		broker:        broker,
	}
}

// CreateOneToOne returns the existing conversation for the pair when one
// exists, else creates it. One-to-one conversations are unique per pair.
func (s *ChatService) CreateOneToOne(by, other chat.Principal) (chat.Conversation, error) {
	if by == other {
		return chat.Conversation{}, errors.ErrInvalidRequest
	}
	existing, found, err := s.conversations.FindOneToOne(by, other)
	if err != nil {
		return chat.Conversation{}, err
	}
	if found {
		return existing, nil
	}

	conversation := chat.Conversation{
		ID:      chat.ConversationID(uuid.New().String()),
		IsGroup: false,
		Members: []chat.Principal{by, other},
	}
	if err := s.conversations.StoreConversation(conversation); err != nil {
		return chat.Conversation{}, err
	}
	s.log.Info("one-to-one conversation created", "conversation_id", string(conversation.ID))
	return conversation, nil
}

// CreateGroup creates a group conversation with the caller as admin.
func (s *ChatService) CreateGroup(by chat.Principal, name string, members []chat.Principal) (chat.Conversation, error) {
	if name == "" || len(members) == 0 {
		return chat.Conversation{}, errors.ErrInvalidRequest
	}
	all := lo.Uniq(append([]chat.Principal{by}, members...))
	conversation := chat.Conversation{
		ID:      chat.ConversationID(uuid.New().String()),
		IsGroup: true,
		Name:    name,
		Admin:   by,
		Members: all,
	}
	if err := s.conversations.StoreConversation(conversation); err != nil {
		return chat.Conversation{}, err
	}
	s.log.Info("group created", "conversation_id", string(conversation.ID), "members", len(all))
	return conversation, nil
}

// ListConversations returns the caller's conversations, most recently
// active first.
func (s *ChatService) ListConversations(by chat.Principal) ([]chat.Conversation, error) {
	return s.conversations.FindForMember(by)
}

// GetConversation loads one conversation the caller belongs to.
func (s *ChatService) GetConversation(id chat.ConversationID, by chat.Principal) (chat.Conversation, error) {
	conversation, err := s.conversations.GetConversation(id)
	if err != nil {
		return chat.Conversation{}, err
	}
	if !conversation.HasMember(by) {
		return chat.Conversation{}, errors.ErrNotMember
	}
	return conversation, nil
}

// Rename changes a group's name. Admin only.
func (s *ChatService) Rename(ctx context.Context, id chat.ConversationID, by chat.Principal, name string) error {
	if name == "" {
		return errors.ErrInvalidRequest
	}
	if err := s.requireAdmin(id, by); err != nil {
		return err
	}
	return s.conversations.Rename(id, name)
}

// AddMember adds a principal to a group and announces the change to the
// room. The new member's live connections don't auto-join; they join on
// their next `join room`.
func (s *ChatService) AddMember(ctx context.Context, id chat.ConversationID, by, member chat.Principal) error {
	if err := s.requireAdmin(id, by); err != nil {
		return err
	}
	if err := s.conversations.AddMember(id, member); err != nil {
		return err
	}
	s.broker.Broadcast(ctx, id, event.MembershipChanged{
		Chat:  id,
		Added: []chat.Principal{member},
	})
	return nil
}

// RemoveMember removes a principal from a group. A member may remove
// themselves; anyone else requires admin. Live connections of the
// removed principal leave the room first, then the change is announced.
func (s *ChatService) RemoveMember(ctx context.Context, id chat.ConversationID, by, member chat.Principal) error {
	if by != member {
		if err := s.requireAdmin(id, by); err != nil {
			return err
		}
	}
	if err := s.conversations.RemoveMember(id, member); err != nil {
		return err
	}
	for _, conn := range s.registry.ConnectionsOf(member) {
		s.broker.Leave(conn, id)
	}
	s.broker.Broadcast(ctx, id, event.MembershipChanged{
		Chat:    id,
		Removed: []chat.Principal{member},
	})
	return nil
}

func (s *ChatService) requireAdmin(id chat.ConversationID, by chat.Principal) error {
	conversation, err := s.conversations.GetConversation(id)
	if err != nil {
		return err
	}
	if !conversation.IsGroup {
		return errors.ErrInvalidRequest
	}
	if conversation.Admin != by {
		return errors.ErrNotAdmin
	}
	return nil
}
