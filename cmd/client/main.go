package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"chat-relay/client"
	"chat-relay/transport"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Interactive terminal client. Lines starting with '/' are commands,
// anything else is sent to the open conversation.
func main() {
	server := flag.String("server", "http://localhost:8080", "Relay base URL")
	ws := flag.String("ws", "ws://localhost:8080/ws", "Relay websocket URL")
	email := flag.String("email", "", "Account email")
	password := flag.String("password", "", "Account password")
	name := flag.String("register", "", "Register a new account under this display name")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	if err := run(*server, *ws, *email, *password, *name, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(server, wsURL, email, password, name, logLevel string) error {
	if email == "" || password == "" {
		return fmt.Errorf("both -email and -password are required")
	}
	log := logs.GetLoggerFromString(logLevel)
	c := client.New(server, wsURL, log)

	if name != "" {
		if err := c.Register(name, email, password); err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		color.Green.Printf("Registered as %s\n", name)
	} else if err := c.Login(email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	c.OnTyping = func(chatID, by string, typing bool) {
		if typing {
			color.Gray.Printf("... %s is typing\n", by)
		}
	}
	c.OnMessage = func(m transport.MessagePayload, appended bool) {
		if appended {
			color.Cyan.Printf("[%s] %s: ", m.CreatedAt.Local().Format("15:04"), m.SenderName)
			fmt.Println(m.Body)
			return
		}
		color.Yellow.Printf("New message in %s (use /notify)\n", m.ChatID)
	}

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("websocket connection failed: %w", err)
	}
	defer c.Close()
	color.Green.Println("Connected. /list /open <id> /close /notify /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			return nil
		case line == "/list":
			if err := renderConversations(c); err != nil {
				color.Red.Println(err)
			}
		case line == "/notify":
			renderNotifications(c)
		case line == "/close":
			c.CloseConversation()
			color.Gray.Println("Conversation closed (still joined)")
		case strings.HasPrefix(line, "/open "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			if err := c.OpenConversation(id); err != nil {
				color.Red.Println(err)
				continue
			}
			renderHistory(c)
		case strings.HasPrefix(line, "/"):
			color.Red.Printf("Unknown command: %s\n", line)
		default:
			open := c.Reconciler.OpenConversation()
			if open == "" {
				color.Red.Println("No open conversation. Use /open <id>")
				continue
			}
			_ = c.Typing(open)
			if err := c.SendMessage(open, line); err != nil {
				color.Red.Println(err)
			}
		}
	}
}

func renderConversations(c *client.Client) error {
	raws, err := c.Conversations()
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Group", "Latest"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, raw := range raws {
		var row struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			IsGroup bool   `json:"is_group"`
			Latest  *struct {
				SenderName string `json:"sender_name"`
				Body       string `json:"body"`
			} `json:"latest_message"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		latest := ""
		if row.Latest != nil {
			latest = fmt.Sprintf("%s: %s", row.Latest.SenderName, row.Latest.Body)
		}
		table.Append([]string{row.ID, row.Name, fmt.Sprintf("%v", row.IsGroup), latest})
	}
	table.Render()
	return nil
}

func renderHistory(c *client.Client) {
	history := c.Reconciler.History()
	// The page arrives newest first; print oldest first for reading.
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		color.Cyan.Printf("[%s] %s: ", m.CreatedAt.Local().Format("15:04"), m.SenderName)
		fmt.Println(m.Body)
	}
}

func renderNotifications(c *client.Client) {
	notifications := c.Reconciler.Notifications()
	if len(notifications) == 0 {
		color.Gray.Println("No pending notifications")
		return
	}
	for _, n := range notifications {
		color.Yellow.Printf("[%s] %s: %s\n", n.Message.ChatID, n.Message.SenderName, n.Message.Body)
	}
}
