package chat

type Command interface {
	Conversation() ConversationID
}

type SendMessageCommand struct {
	Chat   ConversationID `validate:"required"`
	Sender Principal      `validate:"required"`
	Body   string         `validate:"required"`
}

func (c SendMessageCommand) Conversation() ConversationID {
	return c.Chat
}

type GetMessagesCommand struct {
	Chat   ConversationID `validate:"required"`
	Cursor *string
}

func (c GetMessagesCommand) Conversation() ConversationID {
	return c.Chat
}
