package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"casino/internal/models"
	"casino/internal/services"
	"casino/internal/testutil"

	"github.com/samber/do"
	"github.com/stretchr/testify/suite"
)

type renderCall struct {
	channelID string
	event     *models.AuditEvent
}

type fakeRenderer struct {
	calls []renderCall
	fail  bool
}

func (r *fakeRenderer) RenderAudit(_ context.Context, channelID string, event *models.AuditEvent) error {
	if r.fail {
		return errors.New("discord unavailable")
	}
	r.calls = append(r.calls, renderCall{channelID, event})
	return nil
}

type PlatformSuite struct {
	suite.Suite
	ctx         context.Context
	env         *testutil.Env
	ledger      *services.ServiceLedger
	audit       *services.ServiceAudit
	config      *services.ServiceConfig
	leaderboard *services.ServiceLeaderboard
}

func TestPlatformSuite(t *testing.T) {
	suite.Run(t, new(PlatformSuite))
}

func (s *PlatformSuite) SetupTest() {
	s.ctx = context.Background()
	s.env = testutil.NewEnv(s.T())
	s.ledger = do.MustInvoke[*services.ServiceLedger](s.env.Container)
	s.audit = do.MustInvoke[*services.ServiceAudit](s.env.Container)
	s.config = do.MustInvoke[*services.ServiceConfig](s.env.Container)
	s.leaderboard = do.MustInvoke[*services.ServiceLeaderboard](s.env.Container)
}

func (s *PlatformSuite) adjust(community, user string, coins int64) {
	_, err := s.ledger.AdjustBalance(s.ctx, community, user, services.Delta{Coins: coins}, services.Meta{Reason: "seed"})
	s.Require().NoError(err)
}

func (s *PlatformSuite) TestFlushRendersIntoLogChannel() {
	s.Require().NoError(s.audit.SetLogChannel(s.ctx, community, "log-1"))
	s.adjust(community, alice, 10)
	s.adjust("guild-2", alice, 10)

	renderer := &fakeRenderer{}
	rendered, err := s.audit.Flush(s.ctx, renderer, 10)
	s.Require().NoError(err)
	s.Equal(1, rendered)
	s.Require().Len(renderer.calls, 1)
	s.Equal("log-1", renderer.calls[0].channelID)
	s.Equal(models.AuditKindTransaction, renderer.calls[0].event.Kind)
	s.Equal(int64(10), renderer.calls[0].event.CoinsAfter)

	// the queue was drained, including the event without a channel
	events, err := s.audit.Drain(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *PlatformSuite) TestFlushSwallowsRenderFailures() {
	s.Require().NoError(s.audit.SetLogChannel(s.ctx, community, "log-1"))
	s.adjust(community, alice, 10)

	rendered, err := s.audit.Flush(s.ctx, &fakeRenderer{fail: true}, 10)
	s.Require().NoError(err)
	s.Zero(rendered)

	account, err := s.ledger.GetAccount(s.ctx, community, alice)
	s.Require().NoError(err)
	s.Equal(int64(10), account.Coins)
}

func (s *PlatformSuite) TestLogChannelDefaultsToEmpty() {
	channelID, err := s.audit.GetLogChannel(s.ctx, community)
	s.Require().NoError(err)
	s.Empty(channelID)
}

func (s *PlatformSuite) TestConfigParsing() {
	value, err := s.config.GetIntConfig(s.ctx, services.CONFIG_DAILY_AMOUNT, 7)
	s.Require().NoError(err)
	s.Equal(int64(7), value)

	s.Require().NoError(s.config.SetConfig(s.ctx, services.CONFIG_DAILY_AMOUNT, "12"))
	value, err = s.config.GetIntConfig(s.ctx, services.CONFIG_DAILY_AMOUNT, 7)
	s.Require().NoError(err)
	s.Equal(int64(12), value)

	s.Require().NoError(s.config.SetConfig(s.ctx, services.CONFIG_DAILY_AMOUNT, "lots"))
	value, err = s.config.GetIntConfig(s.ctx, services.CONFIG_DAILY_AMOUNT, 7)
	s.Error(err)
	s.Equal(int64(7), value)

	for raw, want := range map[string]time.Duration{"90": 90 * time.Second, "2h": 2 * time.Hour} {
		s.Require().NoError(s.config.SetConfig(s.ctx, services.CONFIG_DAILY_COOLDOWN, raw))
		d, err := s.config.GetDurationConfig(s.ctx, services.CONFIG_DAILY_COOLDOWN, time.Minute)
		s.Require().NoError(err)
		s.Equal(want, d)
	}

	configs, err := s.config.ListConfigs(s.ctx)
	s.Require().NoError(err)
	s.Len(configs, 2)
}

func (s *PlatformSuite) TestLeaderboardFallsBackToAccounts() {
	s.adjust(community, alice, 30)
	s.adjust(community, bob, 50)
	s.adjust(community, "carol", 10)
	s.adjust("guild-2", "dave", 1000)

	items, err := s.leaderboard.Top(s.ctx, community, 2)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal(bob, items[0].UserID)
	s.Equal(1, items[0].Rank)
	s.Equal(alice, items[1].UserID)
	s.Equal(float64(30), items[1].Score)

	rebuilt, err := s.leaderboard.Rebuild(s.ctx)
	s.Require().NoError(err)
	s.Zero(rebuilt)
}
