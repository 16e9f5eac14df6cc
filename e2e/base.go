package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"chat-relay/client"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping end-to-end suite")
	}
	if s.Config.RelayWS == "" {
		s.Config.RelayWS = "ws" + strings.TrimPrefix(s.Config.RelayAddr, "http") + "/ws"
	}
}

// Step prints a colorized header so the scenario reads as a script in logs
func (s *BaseRelaySuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// NewUser registers a fresh account and returns a connected client.
func (s *BaseRelaySuite) NewUser(ctx context.Context, name string) *client.Client {
	c := client.New(s.Config.RelayAddr, s.Config.RelayWS, slog.Default())
	email := fmt.Sprintf("%s-%s@e2e.local", strings.ToLower(name), uuid.New().String()[:8])

	s.Require().NoError(c.Register(name, email, "E2e-Password-123!"), "register "+name)
	s.Require().NoError(c.Connect(ctx), "connect "+name)
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}

// Eventually polls fn until it returns true or the deadline expires.
func (s *BaseRelaySuite) Eventually(fn func() bool, msg string) {
	s.Require().Eventually(fn, 5*time.Second, 50*time.Millisecond, msg)
}
