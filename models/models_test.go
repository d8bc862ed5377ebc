package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObservation(t *testing.T) {
	at := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	obs := ParseObservation(InteractionFollowUpScheduled, "2026-03-10T14:30:00.000Z")
	require.Equal(t, ObservationScheduledAt, obs.Kind)
	assert.True(t, obs.At.Equal(at))

	cases := []struct {
		name string
		typ  InteractionType
		raw  string
	}{
		{"note with date text", InteractionNote, "2026-03-10T14:30:00.000Z"},
		{"missing millis", InteractionFollowUpScheduled, "2026-03-10T14:30:00Z"},
		{"offset instead of Z", InteractionFollowUpScheduled, "2026-03-10T14:30:00.000-03:00"},
		{"free text", InteractionFollowUpScheduled, "ligar amanhã"},
		{"impossible date", InteractionFollowUpScheduled, "2026-13-40T14:30:00.000Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := ParseObservation(tc.typ, tc.raw)
			assert.Equal(t, ObservationFreeText, obs.Kind)
			assert.Equal(t, tc.raw, obs.Text)
		})
	}
}

func TestFormatScheduledAt_IsUTCWithMillis(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	at := time.Date(2026, 3, 10, 11, 30, 0, 123456789, loc)

	assert.Equal(t, "2026-03-10T14:30:00.123Z", FormatScheduledAt(at))
	assert.Equal(t, ObservationScheduledAt, ScheduledAt(at).Kind)
}

func TestNewInteractionView(t *testing.T) {
	scheduled := NewInteractionView(Interaction{Type: InteractionFollowUpScheduled, Observation: "2026-03-10T14:30:00.000Z"})
	require.NotNil(t, scheduled.ScheduledAt)

	note := NewInteractionView(Interaction{Type: InteractionNote, Observation: "cliente pediu retorno"})
	assert.Nil(t, note.ScheduledAt)
}

func TestEffectiveFollowUpState(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		client Client
		want   FollowUpState
	}{
		{"empty defaults to none", Client{}, FollowUpNone},
		{"active in future", Client{FollowUpState: FollowUpActive, FollowUpAt: &future}, FollowUpActive},
		{"active in past is delayed", Client{FollowUpState: FollowUpActive, FollowUpAt: &past}, FollowUpDelayed},
		{"completed with past instant", Client{FollowUpState: FollowUpCompleted, FollowUpAt: &past}, FollowUpCompleted},
		{"lost", Client{FollowUpState: FollowUpLost}, FollowUpLost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.client.EffectiveFollowUpState(now))
		})
	}
}

func TestClientStatusValidation(t *testing.T) {
	assert.True(t, IsValidClientStatus(StatusSaleGenerated))
	assert.False(t, IsValidClientStatus(StatusLegacySale))
	assert.True(t, IsKnownClientStatus(StatusLegacySale))
	assert.False(t, IsKnownClientStatus("Desconhecido"))
}

func TestInteractionTypeLifecycle(t *testing.T) {
	assert.True(t, InteractionFollowUpScheduled.IsLifecycle())
	assert.True(t, InteractionClientCreated.IsLifecycle())
	assert.False(t, InteractionStatusChange.IsLifecycle())
	assert.False(t, InteractionType("Fax").IsValid())
}

func TestSessionAccess(t *testing.T) {
	broker := Session{ActorID: "b1", Role: RoleBroker}
	assert.True(t, broker.CanAccess("b1"))
	assert.False(t, broker.CanAccess("b2"))
	assert.False(t, broker.CanAccess(""))

	manager := Session{ActorID: "m1", Role: RoleManager}
	assert.True(t, manager.CanAccess("b2"))
	assert.False(t, manager.IsAdmin())
}

func TestFunnelStagesKeepOrder(t *testing.T) {
	raw, err := json.Marshal(FunnelReport{Stages: FunnelStages{
		{Name: string(StatusFirstContact), Value: 4},
		{Name: string(StatusHandling), Value: 2},
		{Name: string(StatusAwaitingDoc), Value: 0},
	}})
	require.NoError(t, err)
	assert.Equal(t, `{"stages":{"Primeiro Atendimento":4,"Tratativa":2,"Aguardando Doc":0}}`, string(raw))

	raw, err = json.Marshal(FunnelStages{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}
