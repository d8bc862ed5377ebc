package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/repository"
)

var (
	t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	broker      = models.Session{ActorID: "broker-1", Name: "Ana", Role: models.RoleBroker}
	otherBroker = models.Session{ActorID: "broker-2", Name: "Bruno", Role: models.RoleBroker}
	manager     = models.Session{ActorID: "manager-1", Name: "Carla", Role: models.RoleManager}
	admin       = models.Session{ActorID: "admin-1", Name: "Diego", Role: models.RoleAdmin}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx    context.Context
	store  *repository.MemoryStore
	clock  *fakeClock
	events *recordingPublisher
	svc    *LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		store:  repository.NewMemoryStore(),
		clock:  &fakeClock{now: t0},
		events: &recordingPublisher{},
	}
	f.svc = NewLedgerService(f.store, f.clock, f.events)
	return f
}

func (f *fixture) createClient(t *testing.T, owner models.Session) string {
	t.Helper()
	view, err := f.svc.CreateClient(f.ctx, owner, models.CreateClientRequest{
		Name:  "Maria Souza",
		Phone: "(11) 98765-4321",
	})
	require.NoError(t, err)
	return view.ID
}

func (f *fixture) stored(t *testing.T, id string) *models.Client {
	t.Helper()
	c, err := f.store.GetClient(f.ctx, id)
	require.NoError(t, err)
	return c
}

func (f *fixture) ledger(t *testing.T, id string) []models.Interaction {
	t.Helper()
	entries, err := f.store.ListInteractions(f.ctx, id)
	require.NoError(t, err)
	return entries
}

// requireAtMostOneLive 同一客户最多一条未替换的跟进预约
func (f *fixture) requireAtMostOneLive(t *testing.T, id string) {
	t.Helper()
	live := 0
	for _, e := range f.ledger(t, id) {
		if e.IsLiveFollowUp() {
			live++
		}
	}
	require.LessOrEqual(t, live, 1)
}

func requireConflict(t *testing.T, err error, code string) *ConflictError {
	t.Helper()
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict), "expected ConflictError, got %v", err)
	require.Equal(t, code, conflict.Code)
	return conflict
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var validation *ValidationError
	require.True(t, errors.As(err, &validation), "expected ValidationError, got %v", err)
	require.Equal(t, field, validation.Field)
}

func countType(entries []models.Interaction, typ models.InteractionType) int {
	n := 0
	for _, e := range entries {
		if e.Type == typ {
			n++
		}
	}
	return n
}
