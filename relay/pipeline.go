package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"

	"github.com/abadojack/whatlanggo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Pipeline couples persistence with broadcast for new messages:
// validate, persist, update the conversation's latest-message pointer,
// then fan out. A failed persistence produces zero broadcasts; a failed
// pointer update is logged and the send still succeeds.
//
// No room lock is held across the storage call: the broker takes its
// locks only once the write is acknowledged.
type Pipeline struct {
	log           *slog.Logger
	validate      *validator.Validate
	messages      repositories.IMessageRepository
	conversations repositories.IConversationRepository
	users         repositories.IUserRepository
	search        repositories.ISearchIndex
	broker        contract.IBroker
	moderator     *moderation.Moderator
	monitoring    *observability.MonitoringManager
	now           func() time.Time
}

func NewPipeline(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	conversations repositories.IConversationRepository,
	users repositories.IUserRepository,
	search repositories.ISearchIndex,
	broker contract.IBroker,
	moderator *moderation.Moderator,
	monitoring *observability.MonitoringManager,
) *Pipeline {
	return &Pipeline{
		log:           log,
		validate:      validator.New(),
		messages:      messages,
		conversations: conversations,
		users:         users,
		search:        search,
		broker:        broker,
		moderator:     moderator,
		monitoring:    monitoring,
		now:           time.Now,
	}
}

// Send runs the full delivery pipeline and returns the persisted,
// populated message to the caller. The broadcast is independent of the
// caller's success response: a subscriber failing to receive never
// fails the send.
func (p *Pipeline) Send(ctx context.Context, cmd chat.SendMessageCommand, from chat.ConnectionID) (chat.Message, error) {
	if err := p.validate.Struct(cmd); err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}

	conversation, err := p.conversations.GetConversation(cmd.Chat)
	if err != nil {
		return chat.Message{}, err
	}
	if !conversation.HasMember(cmd.Sender) {
		return chat.Message{}, errors.ErrNotMember
	}

	body := cmd.Body
	if p.moderator != nil {
		censored, words := p.moderator.Censor(body)
		if len(words) > 0 {
			p.log.Info("message censored",
				"conversation_id", string(cmd.Chat),
				"sender", string(cmd.Sender),
				"words", len(words))
		}
		body = censored
	}

	message := chat.Message{
		ID:           uuid.New(),
		Conversation: cmd.Chat,
		Sender:       cmd.Sender,
		SenderName:   p.senderName(cmd.Sender),
		Body:         body,
		Lang:         whatlanggo.Detect(body).Lang.Iso6391(),
		CreatedAt:    p.now().UTC(),
	}

	if err := p.messages.StoreMessage(repositories.ToDiskMessage(message)); err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	p.monitoring.IncrPersisted()

	// Same logical step as creation. A failure here leaves the message
	// persisted and broadcast; the stale pointer only degrades summary
	// display.
	if err := p.conversations.UpdateLatestMessage(cmd.Chat, message); err != nil {
		p.log.Error("latest-message pointer update failed",
			"conversation_id", string(cmd.Chat),
			"message_id", message.ID.String(),
			"error", err)
	}

	if p.search != nil {
		if err := p.search.IndexMessage(message); err != nil {
			p.log.Warn("message indexing failed", "message_id", message.ID.String(), "error", err)
		}
	}

	p.broker.Broadcast(ctx, cmd.Chat, event.MessageReceived{Message: message}, from)
	return message, nil
}

// History returns a page of a conversation's messages, newest first,
// after confirming the caller's membership.
func (p *Pipeline) History(cmd chat.GetMessagesCommand, by chat.Principal) ([]chat.Message, *string, error) {
	if err := p.validate.Struct(cmd); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	member, err := p.conversations.IsMember(cmd.Chat, by)
	if err != nil {
		return nil, nil, err
	}
	if !member {
		return nil, nil, errors.ErrNotMember
	}

	disk, cursor, err := p.messages.GetMessages(cmd.Chat, cmd.Cursor)
	if err != nil {
		return nil, nil, err
	}
	messages := make([]chat.Message, 0, len(disk))
	for _, d := range disk {
		messages = append(messages, repositories.FromDiskMessage(d))
	}
	return messages, cursor, nil
}

func (p *Pipeline) senderName(sender chat.Principal) string {
	if p.users == nil {
		return ""
	}
	u, err := p.users.GetUser(sender)
	if err != nil {
		p.log.Debug("sender display fields unresolved", "principal", string(sender))
		return ""
	}
	return u.Name
}
