package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/errors"
)

func escalationPolicy() entities.EscalationPolicy {
	return entities.EscalationPolicy{
		Enabled:    true,
		RequireAck: true,
		Levels: []entities.EscalationLevel{
			{DelaySec: 300, Channels: []string{"oncall"}},
			{DelaySec: 900, Channels: []string{"oncall", "manager"}},
		},
	}
}

func deliveredAlert(now time.Time) *entities.TrendAlert {
	return &entities.TrendAlert{
		ID:       "a1",
		Symbol:   "AAPL",
		Status:   StatusActive,
		Priority: PriorityCritical,
		Title:    "Volatility spike: AAPL up",
		Message:  "spike",
		Channels: []string{"slack"},
	}
}

func TestEscalationController_Schedule(t *testing.T) {
	c := NewEscalationController(NewDispatcher(testRegistry(t), time.Second, testLogger()), testLogger())
	now := time.Now()
	alert := deliveredAlert(now)

	c.Schedule(alert, escalationPolicy(), now)

	require.NotNil(t, alert.Escalation.NextAt)
	assert.Equal(t, now.Add(300*time.Second), *alert.Escalation.NextAt)
	assert.Equal(t, 0, alert.Escalation.Level)
	assert.Equal(t, 2, alert.Escalation.MaxLevel)
}

func TestEscalationController_ScheduleDisabledPolicy(t *testing.T) {
	c := NewEscalationController(NewDispatcher(testRegistry(t), time.Second, testLogger()), testLogger())
	alert := deliveredAlert(time.Now())

	c.Schedule(alert, entities.EscalationPolicy{}, time.Now())
	assert.Nil(t, alert.Escalation.NextAt)
}

func TestEscalationController_Due(t *testing.T) {
	c := NewEscalationController(NewDispatcher(testRegistry(t), time.Second, testLogger()), testLogger())
	now := time.Now()
	alert := deliveredAlert(now)
	c.Schedule(alert, escalationPolicy(), now)

	assert.False(t, c.Due(alert, now.Add(299*time.Second)))
	assert.True(t, c.Due(alert, now.Add(300*time.Second)))

	acked := deliveredAlert(now)
	c.Schedule(acked, escalationPolicy(), now)
	acked.Interaction.Acknowledged = true
	assert.False(t, c.Due(acked, now.Add(time.Hour)), "acknowledgement halts the ladder")

	resolved := deliveredAlert(now)
	c.Schedule(resolved, escalationPolicy(), now)
	resolved.Status = StatusResolved
	assert.False(t, c.Due(resolved, now.Add(time.Hour)), "terminal status halts the ladder")
}

func TestEscalationController_EscalateLadder(t *testing.T) {
	oncall := &fakeChannel{name: "oncall"}
	manager := &fakeChannel{name: "manager"}
	c := NewEscalationController(NewDispatcher(testRegistry(t, oncall, manager), time.Second, testLogger()), testLogger())

	now := time.Now()
	alert := deliveredAlert(now)
	policy := escalationPolicy()
	c.Schedule(alert, policy, now)

	// Step one after 300s: level 1, oncall only, next step scheduled at +900s.
	stepOne := now.Add(300 * time.Second)
	require.NoError(t, c.Escalate(context.Background(), alert, policy, stepOne))
	assert.Equal(t, 1, alert.Escalation.Level)
	assert.Equal(t, 1, oncall.sentCount())
	assert.Equal(t, 0, manager.sentCount())
	require.NotNil(t, alert.Escalation.NextAt)
	assert.Equal(t, stepOne.Add(900*time.Second), *alert.Escalation.NextAt)

	// Step two: level 2 is the top of the ladder, no further scheduling.
	stepTwo := stepOne.Add(900 * time.Second)
	require.NoError(t, c.Escalate(context.Background(), alert, policy, stepTwo))
	assert.Equal(t, 2, alert.Escalation.Level)
	assert.Equal(t, 2, oncall.sentCount())
	assert.Equal(t, 1, manager.sentCount())
	assert.Nil(t, alert.Escalation.NextAt)

	// A third attempt reports the ladder exhausted.
	err := c.Escalate(context.Background(), alert, policy, stepTwo.Add(time.Hour))
	assert.ErrorIs(t, err, errors.ErrEscalationMaxLevel)
	assert.Equal(t, 2, alert.Escalation.Level, "level is not advanced past the top")
}

func TestEscalationController_ShortenedPolicy(t *testing.T) {
	oncall := &fakeChannel{name: "oncall"}
	c := NewEscalationController(NewDispatcher(testRegistry(t, oncall), time.Second, testLogger()), testLogger())

	now := time.Now()
	alert := deliveredAlert(now)
	c.Schedule(alert, escalationPolicy(), now) // armed with two levels
	require.Equal(t, 2, alert.Escalation.MaxLevel)

	// The rule was edited down to a single level before the first step fired.
	shortened := entities.EscalationPolicy{
		Enabled: true,
		Levels:  []entities.EscalationLevel{{DelaySec: 60, Channels: []string{"oncall"}}},
	}

	require.NoError(t, c.Escalate(context.Background(), alert, shortened, now.Add(time.Minute)))
	assert.Equal(t, 1, alert.Escalation.Level)
	assert.Equal(t, 1, alert.Escalation.MaxLevel, "ladder resized to the live policy")
	assert.Nil(t, alert.Escalation.NextAt, "single level is the top of the ladder")

	err := c.Escalate(context.Background(), alert, shortened, now.Add(time.Hour))
	assert.ErrorIs(t, err, errors.ErrEscalationMaxLevel)
	assert.Equal(t, 1, oncall.sentCount())
}

func TestEscalationController_LevelChannelFallback(t *testing.T) {
	slack := &fakeChannel{name: "slack"}
	c := NewEscalationController(NewDispatcher(testRegistry(t, slack), time.Second, testLogger()), testLogger())

	now := time.Now()
	alert := deliveredAlert(now) // channels: slack
	policy := entities.EscalationPolicy{
		Enabled: true,
		Levels:  []entities.EscalationLevel{{DelaySec: 60}}, // no channels on the level
	}
	c.Schedule(alert, policy, now)

	require.NoError(t, c.Escalate(context.Background(), alert, policy, now.Add(time.Minute)))
	assert.Equal(t, 1, slack.sentCount(), "level without channels falls back to the alert's channels")
}

func TestEscalationController_Halt(t *testing.T) {
	c := NewEscalationController(NewDispatcher(testRegistry(t), time.Second, testLogger()), testLogger())
	now := time.Now()
	alert := deliveredAlert(now)
	c.Schedule(alert, escalationPolicy(), now)
	require.NotNil(t, alert.Escalation.NextAt)

	c.Halt(alert)
	assert.Nil(t, alert.Escalation.NextAt)
}

func TestEscalationController_AttemptsRecorded(t *testing.T) {
	oncall := &fakeChannel{name: "oncall"}
	c := NewEscalationController(NewDispatcher(testRegistry(t, oncall), time.Second, testLogger()), testLogger())

	now := time.Now()
	alert := deliveredAlert(now)
	policy := escalationPolicy()
	c.Schedule(alert, policy, now)

	require.NoError(t, c.Escalate(context.Background(), alert, policy, now.Add(300*time.Second)))
	require.Len(t, alert.Delivery.Attempts, 1)
	assert.Equal(t, "oncall", alert.Delivery.Attempts[0].Channel)
	assert.True(t, alert.Delivery.Attempts[0].Success)
}
