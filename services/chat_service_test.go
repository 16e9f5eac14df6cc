package services

import (
	"context"
	"log/slog"
	"testing"

	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type chatFixture struct {
	service       *ChatService
	conversations *mocks.MockIConversationRepository
	registry      *mocks.MockIRegistry
	broker        *mocks.MockIBroker
}

func newChatFixture(t *testing.T) chatFixture {
	ctrl := gomock.NewController(t)
	f := chatFixture{
		conversations: mocks.NewMockIConversationRepository(ctrl),
		registry:      mocks.NewMockIRegistry(ctrl),
		broker:        mocks.NewMockIBroker(ctrl),
	}
	f.service = NewChatService(slog.Default(), f.conversations, f.registry, f.broker)
	return f
}

func TestChatService_CreateOneToOneReusesExistingPair(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	existing := chat.Conversation{ID: "room-1", Members: []chat.Principal{"alice", "bob"}}
	f.conversations.EXPECT().
		FindOneToOne(chat.Principal("alice"), chat.Principal("bob")).
		Return(existing, true, nil)

	conversation, err := f.service.CreateOneToOne("alice", "bob")
	req.NoError(err)
	req.Equal(existing, conversation)
}

func TestChatService_CreateOneToOneStoresNewPair(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	f.conversations.EXPECT().
		FindOneToOne(chat.Principal("alice"), chat.Principal("bob")).
		Return(chat.Conversation{}, false, nil)
	f.conversations.EXPECT().
		StoreConversation(gomock.Any()).
		DoAndReturn(func(c chat.Conversation) error {
			require.False(t, c.IsGroup)
			require.ElementsMatch(t, []chat.Principal{"alice", "bob"}, c.Members)
			return nil
		})

	conversation, err := f.service.CreateOneToOne("alice", "bob")
	req.NoError(err)
	req.NotEqual(chat.ConversationID(""), conversation.ID)
}

func TestChatService_CreateOneToOneWithSelfRejected(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	_, err := f.service.CreateOneToOne("alice", "alice")
	req.ErrorIs(err, errors.ErrInvalidRequest)
}

func TestChatService_CreateGroupIncludesCreatorAsAdmin(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	f.conversations.EXPECT().
		StoreConversation(gomock.Any()).
		DoAndReturn(func(c chat.Conversation) error {
			require.True(t, c.IsGroup)
			require.Equal(t, chat.Principal("alice"), c.Admin)
			require.ElementsMatch(t, []chat.Principal{"alice", "bob", "clara"}, c.Members)
			return nil
		})

	// The creator appears once even when listed among the members.
	_, err := f.service.CreateGroup("alice", "ops", []chat.Principal{"alice", "bob", "clara"})
	req.NoError(err)
}

func TestChatService_RenameRequiresAdmin(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	group := chat.Conversation{
		ID: "room-1", IsGroup: true, Admin: "alice",
		Members: []chat.Principal{"alice", "bob"},
	}
	f.conversations.EXPECT().GetConversation(chat.ConversationID("room-1")).Return(group, nil).Times(2)
	f.conversations.EXPECT().Rename(chat.ConversationID("room-1"), "ops-eu").Return(nil)

	req.NoError(f.service.Rename(context.Background(), "room-1", "alice", "ops-eu"))

	err := f.service.Rename(context.Background(), "room-1", "bob", "sneaky")
	req.ErrorIs(err, errors.ErrNotAdmin)
}

func TestChatService_AddMemberAnnouncesToRoom(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	group := chat.Conversation{
		ID: "room-1", IsGroup: true, Admin: "alice",
		Members: []chat.Principal{"alice"},
	}
	f.conversations.EXPECT().GetConversation(chat.ConversationID("room-1")).Return(group, nil)
	f.conversations.EXPECT().AddMember(chat.ConversationID("room-1"), chat.Principal("bob")).Return(nil)
	f.broker.EXPECT().Broadcast(gomock.Any(), chat.ConversationID("room-1"),
		event.MembershipChanged{Chat: "room-1", Added: []chat.Principal{"bob"}})

	req.NoError(f.service.AddMember(context.Background(), "room-1", "alice", "bob"))
}

func TestChatService_RemoveMemberEvictsLiveConnectionsFirst(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	group := chat.Conversation{
		ID: "room-1", IsGroup: true, Admin: "alice",
		Members: []chat.Principal{"alice", "bob"},
	}
	f.conversations.EXPECT().GetConversation(chat.ConversationID("room-1")).Return(group, nil)
	f.conversations.EXPECT().RemoveMember(chat.ConversationID("room-1"), chat.Principal("bob")).Return(nil)

	// Both of bob's devices leave the room before the announcement, so
	// neither can receive it.
	f.registry.EXPECT().
		ConnectionsOf(chat.Principal("bob")).
		Return([]chat.ConnectionID{"phone", "laptop"})
	evicted := f.broker.EXPECT().Leave(chat.ConnectionID("phone"), chat.ConversationID("room-1"))
	f.broker.EXPECT().Leave(chat.ConnectionID("laptop"), chat.ConversationID("room-1"))
	f.broker.EXPECT().
		Broadcast(gomock.Any(), chat.ConversationID("room-1"),
			event.MembershipChanged{Chat: "room-1", Removed: []chat.Principal{"bob"}}).
		After(evicted)

	req.NoError(f.service.RemoveMember(context.Background(), "room-1", "alice", "bob"))
}

func TestChatService_MemberMayLeaveWithoutAdmin(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	f.conversations.EXPECT().RemoveMember(chat.ConversationID("room-1"), chat.Principal("bob")).Return(nil)
	f.registry.EXPECT().ConnectionsOf(chat.Principal("bob")).Return(nil)
	f.broker.EXPECT().Broadcast(gomock.Any(), chat.ConversationID("room-1"), gomock.Any())

	req.NoError(f.service.RemoveMember(context.Background(), "room-1", "bob", "bob"))
}

func TestChatService_GetConversationChecksMembership(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	group := chat.Conversation{ID: "room-1", Members: []chat.Principal{"alice"}}
	f.conversations.EXPECT().GetConversation(chat.ConversationID("room-1")).Return(group, nil).Times(2)

	_, err := f.service.GetConversation("room-1", "alice")
	req.NoError(err)

	_, err = f.service.GetConversation("room-1", "mallory")
	req.ErrorIs(err, errors.ErrNotMember)
}
