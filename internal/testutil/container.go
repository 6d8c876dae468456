package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"casino/internal/app"
	"casino/internal/interfaces"
	"casino/internal/models"
	"casino/internal/pkg/guard"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type Announcement struct {
	GiveawayID string
	Round      int
	Payouts    []models.GiveawayPayout
}

type RecordingAnnouncer struct {
	mu     sync.Mutex
	calls  []Announcement
	during func(Announcement)
}

// During runs fn inside every later announcement, before it is recorded.
func (a *RecordingAnnouncer) During(fn func(Announcement)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.during = fn
}

func (a *RecordingAnnouncer) AnnounceGiveaway(_ context.Context, giveaway *models.Giveaway, round int, payouts []models.GiveawayPayout) error {
	call := Announcement{GiveawayID: giveaway.MessageID, Round: round, Payouts: payouts}

	a.mu.Lock()
	during := a.during
	a.mu.Unlock()
	if during != nil {
		during(call)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
	return nil
}

func (a *RecordingAnnouncer) Calls() []Announcement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Announcement(nil), a.calls...)
}

type RoleGrant struct {
	CommunityID string
	UserID      string
	RoleID      string
}

type RecordingRoles struct {
	mu     sync.Mutex
	grants []RoleGrant
}

func (r *RecordingRoles) AssignRole(_ context.Context, communityID, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants = append(r.grants, RoleGrant{communityID, userID, roleID})
	return nil
}

func (r *RecordingRoles) Grants() []RoleGrant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RoleGrant(nil), r.grants...)
}

// Env is the production service graph on top of SQLite and process-local infrastructure.
type Env struct {
	Container *do.Injector
	DB        *bun.DB
	Clock     *Clock
	Announcer *RecordingAnnouncer
	Roles     *RecordingRoles
}

type EnvOption func(injector *do.Injector)

// WithRandIntn replaces the crypto index source of the giveaway draw.
func WithRandIntn(fn func(n int) (int, error)) EnvOption {
	return func(injector *do.Injector) {
		do.ProvideNamedValue(injector, "rng-intn", fn)
	}
}

// WithRand replaces the float source of the reward draw.
func WithRand(fn func() float64) EnvOption {
	return func(injector *do.Injector) {
		do.ProvideNamedValue(injector, "rng", fn)
	}
}

func NewEnv(t testing.TB, opts ...EnvOption) *Env {
	env := &Env{
		Container: do.New(),
		DB:        GetEmptyTestDB(t),
		Clock:     NewClock(),
		Announcer: &RecordingAnnouncer{},
		Roles:     &RecordingRoles{},
	}

	do.ProvideValue(env.Container, env.DB)
	do.ProvideNamedValue(env.Container, "db-readonly", env.DB)
	do.ProvideNamedValue(env.Container, "clock", env.Clock.Now)
	do.ProvideValue[interfaces.Announcer](env.Container, env.Announcer)
	do.ProvideValue[interfaces.RoleAssigner](env.Container, env.Roles)
	for _, opt := range opts {
		opt(env.Container)
	}

	app.ProvideLocal(env.Container, guard.WithClock(env.Clock.Now))
	app.ProvideServices(env.Container)
	return env
}
