package app

import (
	"context"
	"errors"
	"route-dispatch-service/internal/config"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseRunsAllClosersInReverse(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	a := &App{closers: []func() error{
		func() error { order = append(order, "redis"); return nil },
		func() error { order = append(order, "kafka"); return boom },
	}}

	err := a.Close()

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"kafka", "redis"}, order)
}

func TestCloseWithNothingOpen(t *testing.T) {
	assert.NoError(t, (&App{}).Close())
}

func TestBuildWithoutOptionalIntegrations(t *testing.T) {
	cfg := &config.Config{DefaultTimezone: "America/Chicago", TenantConcurrency: 2}

	a, err := Build(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	assert.NotNil(t, a.Runner)
	assert.NotNil(t, a.Store)
	assert.Empty(t, a.closers)

	mfs, err := a.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

type closeTracker struct {
	closed int
}

func (w *closeTracker) WriteMessages(context.Context, ...kafka.Message) error { return nil }

func (w *closeTracker) Close() error {
	w.closed++
	return nil
}

func stubSMSWriter(t *testing.T) *closeTracker {
	t.Helper()
	w := &closeTracker{}
	orig := newSMSWriter
	newSMSWriter = func([]string, string) smsWriter { return w }
	t.Cleanup(func() { newSMSWriter = orig })
	return w
}

func TestBuildRejectsUnknownZone(t *testing.T) {
	w := stubSMSWriter(t)
	cfg := &config.Config{DefaultTimezone: "Mars/Olympus", KafkaBrokers: []string{"localhost:9092"}}

	a, err := Build(context.Background(), cfg, nil, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, a)
	assert.Equal(t, 1, w.closed, "writer opened before the failure is released")
}

func TestBuildKeepsWriterOpenOnSuccess(t *testing.T) {
	w := stubSMSWriter(t)
	cfg := &config.Config{DefaultTimezone: "America/Chicago", KafkaBrokers: []string{"localhost:9092"}}

	a, err := Build(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, w.closed)

	require.NoError(t, a.Close())
	assert.Equal(t, 1, w.closed)
}
