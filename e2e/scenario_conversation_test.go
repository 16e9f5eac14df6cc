package e2e

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type testConversationSuite struct {
	BaseRelaySuite
}

func TestConversationSuite(t *testing.T) {
	suite.Run(t, &testConversationSuite{})
}

func (s *testConversationSuite) TestOneToOneFlow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- STEP 0: TWO FRESH ACCOUNTS ---
	s.Step("Step 0: Register and connect Alice and Bob")
	alice := s.NewUser(ctx, "Alice")
	bob := s.NewUser(ctx, "Bob")

	// --- STEP 1: CONVERSATION CREATION ---
	s.Step("Step 1: Alice opens a one-to-one with Bob")
	chatID, err := alice.CreateOneToOne(bob.UserID)
	s.Require().NoError(err)
	s.Require().NotEmpty(chatID)

	// Creating the same pair again must hand back the same conversation
	again, err := alice.CreateOneToOne(bob.UserID)
	s.Require().NoError(err)
	s.Require().Equal(chatID, again)

	// --- STEP 2: LIVE DELIVERY INTO THE OPEN CONVERSATION ---
	s.Step("Step 2: Bob's message lands in Alice's open history")
	s.Require().NoError(alice.OpenConversation(chatID))
	s.Require().NoError(bob.OpenConversation(chatID))

	s.Require().NoError(bob.SendMessage(chatID, "hello alice"))
	s.Eventually(func() bool {
		history := alice.Reconciler.History()
		return len(history) == 1 && history[0].Body == "hello alice"
	}, "Alice never received the live message")
	s.Require().Empty(alice.Reconciler.Notifications())

	// Bob is the sender: the persisted echo lands in his history too
	s.Eventually(func() bool {
		return len(bob.Reconciler.History()) == 1
	}, "Bob never received his own echo")

	// --- STEP 3: CLOSED CONVERSATION QUEUES NOTIFICATIONS ---
	s.Step("Step 3: Alice closes the conversation, the next message queues")
	alice.CloseConversation()

	s.Require().NoError(bob.SendMessage(chatID, "still there?"))
	s.Eventually(func() bool {
		pending := alice.Reconciler.Notifications()
		return len(pending) == 1 && pending[0].Message.Body == "still there?"
	}, "closed conversation did not queue a notification")

	// --- STEP 4: REOPEN MERGES HISTORY AND CLEARS THE QUEUE ---
	s.Step("Step 4: Reopening drains the queue and replays both messages")
	s.Require().NoError(alice.OpenConversation(chatID))
	s.Require().Empty(alice.Reconciler.Notifications())
	s.Eventually(func() bool {
		return len(alice.Reconciler.History()) == 2
	}, "history page did not contain both messages")
}

func (s *testConversationSuite) TestTypingIndicator() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.Step("Step 0: Register and connect Alice and Bob")
	alice := s.NewUser(ctx, "Alice")
	bob := s.NewUser(ctx, "Bob")

	chatID, err := alice.CreateOneToOne(bob.UserID)
	s.Require().NoError(err)
	s.Require().NoError(alice.OpenConversation(chatID))
	s.Require().NoError(bob.OpenConversation(chatID))

	var mu sync.Mutex
	var seen []bool
	alice.OnTyping = func(_, _ string, typing bool) {
		mu.Lock()
		seen = append(seen, typing)
		mu.Unlock()
	}

	// --- STEP 1: REPEATED SIGNALS, ONE INDICATOR ---
	s.Step("Step 1: Bob types twice, Alice sees one started signal")
	s.Require().NoError(bob.Typing(chatID))
	s.Require().NoError(bob.Typing(chatID))
	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0]
	}, "typing-started never reached Alice")

	// --- STEP 2: SENDING STOPS THE INDICATOR ---
	s.Step("Step 2: Bob sends, Alice sees the indicator stop")
	s.Require().NoError(bob.SendMessage(chatID, "typed it"))
	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2 && !seen[1]
	}, "typing-stopped never reached Alice")
}
