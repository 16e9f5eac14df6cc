package repositories

import (
	"context"
	"log/slog"
	"testing"

	"chat-relay/domain/chat"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *SearchIndex {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewSearchIndex(writer, slog.Default())
}

func Test_Search_Users_By_Name(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.IndexUser(chat.User{ID: "user-1", Name: "Alice Wonder", Email: "alice@example.com"}))
	req.NoError(index.IndexUser(chat.User{ID: "user-2", Name: "Bob Builder", Email: "bob@example.com"}))

	hits, err := index.SearchUsers(context.Background(), "alice", 10)
	req.NoError(err)
	req.Equal([]chat.Principal{"user-1"}, hits)
}

func Test_Search_Messages_By_Body(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	target := chat.Message{
		ID:           uuid.New(),
		Conversation: "room-1",
		Sender:       "alice",
		Body:         "deployment pipeline is green again",
	}
	req.NoError(index.IndexMessage(target))
	req.NoError(index.IndexMessage(chat.Message{
		ID:           uuid.New(),
		Conversation: "room-2",
		Sender:       "bob",
		Body:         "lunch anyone",
	}))

	hits, err := index.SearchMessages(context.Background(), "deployment", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(target.ID, hits[0].ID)
	req.Equal(chat.ConversationID("room-1"), hits[0].Chat)
}

func Test_Search_Does_Not_Mix_Kinds(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.IndexUser(chat.User{ID: "user-1", Name: "pipeline", Email: "p@example.com"}))
	req.NoError(index.IndexMessage(chat.Message{
		ID:           uuid.New(),
		Conversation: "room-1",
		Sender:       "alice",
		Body:         "pipeline",
	}))

	users, err := index.SearchUsers(context.Background(), "pipeline", 10)
	req.NoError(err)
	req.Len(users, 1)

	messages, err := index.SearchMessages(context.Background(), "pipeline", 10)
	req.NoError(err)
	req.Len(messages, 1)
}
