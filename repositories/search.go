//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search_index.go -package=mocks
package repositories

import (
	"context"
	"log/slog"

	"chat-relay/domain/chat"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type MessageHit struct {
	ID   uuid.UUID
	Chat chat.ConversationID
	Body string
}

type ISearchIndex interface {
	IndexUser(u chat.User) error
	IndexMessage(m chat.Message) error
	SearchUsers(ctx context.Context, query string, limit int) ([]chat.Principal, error)
	SearchMessages(ctx context.Context, query string, limit int) ([]MessageHit, error)
}

// SearchIndex maintains a bluge index over users and message bodies for
// the "full-text-ish" search surface. Indexing is best-effort side work:
// the delivery pipeline never fails a send on an indexing error.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

func (s *SearchIndex) IndexUser(u chat.User) error {
	doc := bluge.NewDocument("user:" + string(u.ID)).
		AddField(bluge.NewKeywordField("kind", "user").StoreValue()).
		AddField(bluge.NewKeywordField("principal", string(u.ID)).StoreValue()).
		AddField(bluge.NewTextField("name", u.Name).StoreValue()).
		AddField(bluge.NewTextField("email", u.Email).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

func (s *SearchIndex) IndexMessage(m chat.Message) error {
	doc := bluge.NewDocument("msg:" + m.ID.String()).
		AddField(bluge.NewKeywordField("kind", "message").StoreValue()).
		AddField(bluge.NewKeywordField("message_id", m.ID.String()).StoreValue()).
		AddField(bluge.NewKeywordField("chat", string(m.Conversation)).StoreValue()).
		AddField(bluge.NewTextField("body", m.Body).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

func (s *SearchIndex) SearchUsers(ctx context.Context, query string, limit int) ([]chat.Principal, error) {
	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery("user").SetField("kind")).
		AddMust(bluge.NewBooleanQuery().
			AddShould(bluge.NewMatchQuery(query).SetField("name")).
			AddShould(bluge.NewMatchQuery(query).SetField("email")).
			AddShould(bluge.NewPrefixQuery(query).SetField("name")))

	var out []chat.Principal
	err := s.search(ctx, q, limit, func(fields map[string]string) {
		if p, ok := fields["principal"]; ok {
			out = append(out, chat.Principal(p))
		}
	})
	return out, err
}

func (s *SearchIndex) SearchMessages(ctx context.Context, query string, limit int) ([]MessageHit, error) {
	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery("message").SetField("kind")).
		AddMust(bluge.NewMatchQuery(query).SetField("body"))

	var out []MessageHit
	err := s.search(ctx, q, limit, func(fields map[string]string) {
		hit := MessageHit{
			Chat: chat.ConversationID(fields["chat"]),
			Body: fields["body"],
		}
		if id, parseErr := uuid.Parse(fields["message_id"]); parseErr == nil {
			hit.ID = id
		}
		out = append(out, hit)
	})
	return out, err
}

// search runs a TopN query and hands each match's stored fields to the
// visit callback, one call per document.
func (s *SearchIndex) search(ctx context.Context, q bluge.Query, limit int,
	visit func(fields map[string]string)) error {
	reader, err := s.writer.Reader()
	if err != nil {
		return err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("closing bluge reader", "error", err)
		}
	}()

	it, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return err
	}
	match, err := it.Next()
	for err == nil && match != nil {
		fields := make(map[string]string)
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			fields[field] = string(value)
			return true
		})
		if visitErr != nil {
			return visitErr
		}
		visit(fields)
		match, err = it.Next()
	}
	return err
}
