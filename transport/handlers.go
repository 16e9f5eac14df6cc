package transport

import (
	"log/slog"
	"strings"

	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/relay"
	"chat-relay/repositories"
	"chat-relay/services"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// HTTPHandlers carries the REST surface: accounts, conversation
// administration, history pagination and search. Everything under
// /api is bearer-token protected except register and login.
type HTTPHandlers struct {
	log        *slog.Logger
	auth       *services.AuthService
	chats      *services.ChatService
	pipeline   *relay.Pipeline
	search     repositories.ISearchIndex
	monitoring *observability.MonitoringManager
}

func NewHTTPHandlers(
	log *slog.Logger,
	authService *services.AuthService,
	chats *services.ChatService,
	pipeline *relay.Pipeline,
	search repositories.ISearchIndex,
	monitoring *observability.MonitoringManager,
) *HTTPHandlers {
	return &HTTPHandlers{
		log:        log,
		auth:       authService,
		chats:      chats,
		pipeline:   pipeline,
		search:     search,
		monitoring: monitoring,
	}
}

// RequireAuth validates the bearer token and stashes the principal in the
// request locals.
func (h *HTTPHandlers) RequireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return h.fail(c, errors.ErrUnauthorized)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return h.fail(c, errors.ErrUnauthorized)
	}
	c.Locals(principalKey, chat.Principal(claims.UserID))
	return c.Next()
}

func principal(c *fiber.Ctx) chat.Principal {
	p, _ := c.Locals(principalKey).(chat.Principal)
	return p
}

func (h *HTTPHandlers) fail(c *fiber.Ctx, err error) error {
	status := errors.MapToHTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		h.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

type authResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

func (h *HTTPHandlers) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	user, token, err := h.auth.Register(req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(authResponse{
		UserID: string(user.ID), Name: user.Name, Email: user.Email, Token: token,
	})
}

func (h *HTTPHandlers) Login(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	user, token, err := h.auth.Login(req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(authResponse{
		UserID: string(user.ID), Name: user.Name, Email: user.Email, Token: token,
	})
}

type profileResponse struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (h *HTTPHandlers) GetProfile(c *fiber.Ctx) error {
	user, err := h.auth.Profile(principal(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(profileResponse{
		UserID: string(user.ID), Name: user.Name, Email: user.Email, AvatarURL: user.AvatarURL,
	})
}

func (h *HTTPHandlers) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	user, err := h.auth.UpdateProfile(principal(c), req.Name, req.AvatarURL)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(profileResponse{
		UserID: string(user.ID), Name: user.Name, Email: user.Email, AvatarURL: user.AvatarURL,
	})
}

type conversationResponse struct {
	ID      string          `json:"id"`
	IsGroup bool            `json:"is_group"`
	Name    string          `json:"name,omitempty"`
	Admin   string          `json:"admin,omitempty"`
	Members []string        `json:"members"`
	Latest  *MessagePayload `json:"latest_message,omitempty"`
}

func toConversationResponse(c chat.Conversation) conversationResponse {
	out := conversationResponse{
		ID:      string(c.ID),
		IsGroup: c.IsGroup,
		Name:    c.Name,
		Admin:   string(c.Admin),
		Members: principalsToStrings(c.Members),
	}
	if c.LatestMessage != nil {
		payload := toMessagePayload(*c.LatestMessage)
		out.Latest = &payload
	}
	return out
}

func (h *HTTPHandlers) CreateOneToOne(c *fiber.Ctx) error {
	var req struct {
		Other string `json:"other"`
	}
	if err := c.BodyParser(&req); err != nil || req.Other == "" {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	conversation, err := h.chats.CreateOneToOne(principal(c), chat.Principal(req.Other))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toConversationResponse(conversation))
}

func (h *HTTPHandlers) CreateGroup(c *fiber.Ctx) error {
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	members := make([]chat.Principal, 0, len(req.Members))
	for _, m := range req.Members {
		members = append(members, chat.Principal(m))
	}
	conversation, err := h.chats.CreateGroup(principal(c), req.Name, members)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toConversationResponse(conversation))
}

func (h *HTTPHandlers) ListConversations(c *fiber.Ctx) error {
	conversations, err := h.chats.ListConversations(principal(c))
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]conversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		out = append(out, toConversationResponse(conversation))
	}
	return c.JSON(out)
}

func (h *HTTPHandlers) GetConversation(c *fiber.Ctx) error {
	conversation, err := h.chats.GetConversation(chat.ConversationID(c.Params("id")), principal(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(toConversationResponse(conversation))
}

type historyResponse struct {
	Messages []MessagePayload `json:"messages"`
	Cursor   *string          `json:"cursor,omitempty"`
}

// GetMessages serves a newest-first page of a conversation's history.
// The cursor query parameter continues a previous page.
func (h *HTTPHandlers) GetMessages(c *fiber.Ctx) error {
	cmd := chat.GetMessagesCommand{Chat: chat.ConversationID(c.Params("id"))}
	if cursor := c.Query("cursor"); cursor != "" {
		cmd.Cursor = &cursor
	}
	messages, next, err := h.pipeline.History(cmd, principal(c))
	if err != nil {
		return h.fail(c, err)
	}
	out := historyResponse{Messages: make([]MessagePayload, 0, len(messages)), Cursor: next}
	for _, m := range messages {
		out.Messages = append(out.Messages, toMessagePayload(m))
	}
	return c.JSON(out)
}

// SendMessage is the REST entry into the delivery pipeline. Unlike the
// websocket path there is no originating connection, so every room
// subscriber receives the broadcast, the sender's devices included.
func (h *HTTPHandlers) SendMessage(c *fiber.Ctx) error {
	var req struct {
		ChatID string `json:"chat_id"`
		Body   string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	message, err := h.pipeline.Send(c.Context(), chat.SendMessageCommand{
		Chat:   chat.ConversationID(req.ChatID),
		Sender: principal(c),
		Body:   req.Body,
	}, "")
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMessagePayload(message))
}

func (h *HTTPHandlers) RenameConversation(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	id := chat.ConversationID(c.Params("id"))
	if err := h.chats.Rename(c.Context(), id, principal(c), req.Name); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *HTTPHandlers) AddMember(c *fiber.Ctx) error {
	var req struct {
		Member string `json:"member"`
	}
	if err := c.BodyParser(&req); err != nil || req.Member == "" {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	id := chat.ConversationID(c.Params("id"))
	if err := h.chats.AddMember(c.Context(), id, principal(c), chat.Principal(req.Member)); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *HTTPHandlers) RemoveMember(c *fiber.Ctx) error {
	id := chat.ConversationID(c.Params("id"))
	member := chat.Principal(c.Params("member"))
	if err := h.chats.RemoveMember(c.Context(), id, principal(c), member); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *HTTPHandlers) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	hits, err := h.search.SearchUsers(c.Context(), query, c.QueryInt("limit", 20))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"principals": principalsToStrings(hits)})
}

func (h *HTTPHandlers) SearchMessages(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return h.fail(c, errors.ErrInvalidRequest)
	}
	hits, err := h.search.SearchMessages(c.Context(), query, c.QueryInt("limit", 20))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": hits})
}

func (h *HTTPHandlers) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.monitoring.GetLatest())
}
