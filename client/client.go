package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"chat-relay/transport"

	"github.com/fasthttp/websocket"
)

// Client is the reference relay client: REST for accounts and history,
// one websocket session for live traffic.
type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
	log     *slog.Logger

	token  string
	UserID string

	writeMu sync.Mutex
	ws      *websocket.Conn

	Reconciler *NotificationReconciler

	// OnTyping receives live typing indicator changes for rendering.
	OnTyping func(chatID, by string, typing bool)

	// OnMessage fires after the reconciler routed a delivered message;
	// appended reports whether it joined the open conversation's history.
	OnMessage func(m transport.MessagePayload, appended bool)

	connected chan struct{}
	once      sync.Once
}

func New(baseURL, wsURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		wsURL:      wsURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
		Reconciler: NewNotificationReconciler(log),
		connected:  make(chan struct{}),
	}
}

type authResult struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

func (c *Client) Register(name, email, password string) error {
	return c.authenticate("/api/register", map[string]string{
		"name": name, "email": email, "password": password,
	})
}

func (c *Client) Login(email, password string) error {
	return c.authenticate("/api/login", map[string]string{
		"email": email, "password": password,
	})
}

func (c *Client) authenticate(path string, body map[string]string) error {
	var result authResult
	if err := c.post(path, body, &result); err != nil {
		return err
	}
	c.token = result.Token
	c.UserID = result.UserID
	return nil
}

// Connect dials the websocket, performs the setup handshake and waits
// for the `connected` acknowledgment.
func (c *Client) Connect(ctx context.Context) error {
	if c.token == "" {
		return fmt.Errorf("connect before login")
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return err
	}
	c.ws = ws
	go c.readLoop()

	if err := c.send(transport.EventSetup, map[string]string{"token": c.token}); err != nil {
		return err
	}
	select {
	case <-c.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("setup acknowledgment timed out")
	}
}

func (c *Client) Close() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// OpenConversation brings a conversation on screen: queued notifications
// for it are cleared, a history page is fetched and merged, and the
// session joins the room for live traffic.
func (c *Client) OpenConversation(chatID string) error {
	c.Reconciler.Open(chatID)

	var page struct {
		Messages []transport.MessagePayload `json:"messages"`
	}
	if err := c.get("/api/conversations/"+chatID+"/messages", &page); err != nil {
		return err
	}
	c.Reconciler.SeedHistory(chatID, page.Messages)

	return c.send(transport.EventJoinRoom, map[string]string{"chat_id": chatID})
}

// CloseConversation leaves the conversation off screen but stays in the
// room, so further messages queue as notifications.
func (c *Client) CloseConversation() {
	c.Reconciler.Close()
}

func (c *Client) SendMessage(chatID, body string) error {
	// Submitting a message implies the typing indicator stops.
	if err := c.send(transport.EventStopTyping, map[string]string{"chat_id": chatID}); err != nil {
		return err
	}
	return c.send(transport.EventNewMessage, map[string]string{"chat_id": chatID, "body": body})
}

func (c *Client) Typing(chatID string) error {
	return c.send(transport.EventTyping, map[string]string{"chat_id": chatID})
}

func (c *Client) StopTyping(chatID string) error {
	return c.send(transport.EventStopTyping, map[string]string{"chat_id": chatID})
}

func (c *Client) send(eventName string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(transport.Envelope{Event: eventName, Data: raw})
}

func (c *Client) readLoop() {
	for {
		var env transport.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			c.log.Debug("websocket closed", "error", err)
			return
		}
		c.handle(env)
	}
}

func (c *Client) handle(env transport.Envelope) {
	switch env.Event {
	case transport.EventConnected:
		c.once.Do(func() { close(c.connected) })
	case transport.EventMessageReceived:
		var m transport.MessagePayload
		if err := json.Unmarshal(env.Data, &m); err != nil {
			c.log.Warn("malformed message frame", "error", err)
			return
		}
		appended := c.Reconciler.OnMessage(m)
		if c.OnMessage != nil {
			c.OnMessage(m, appended)
		}
	case transport.EventTyping, transport.EventStopTyping:
		var payload struct {
			ChatID string `json:"chat_id"`
			By     string `json:"by"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		if c.OnTyping != nil {
			c.OnTyping(payload.ChatID, payload.By, env.Event == transport.EventTyping)
		}
	case transport.EventMembershipChanged:
		c.log.Info("conversation membership changed")
	case transport.EventError:
		c.log.Warn("server rejected event", "data", string(env.Data))
	default:
		c.log.Debug("unhandled event", "event", env.Event)
	}
}

// Conversations lists the caller's conversations, most recent first.
func (c *Client) Conversations() ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := c.get("/api/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOneToOne(other string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post("/api/conversations/one-to-one", map[string]string{"other": other}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) post(path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, string(raw))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
