package services

import (
	"context"
	"route-dispatch-service/internal/domain"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acmeResult(t *testing.T) *domain.OptimizationResult {
	t.Helper()
	res, err := newAcmeOptimizer(t, nil, nil).Optimize(context.Background(), acmeTenant(), acmeDate)
	require.NoError(t, err)
	return res
}

func TestDispatchSendsEveryMessage(t *testing.T) {
	sender := newFakeSender()
	got := NewDispatchCoordinator(sender, sender).Dispatch(context.Background(), acmeResult(t), true)

	assert.Equal(t, 2, got.TelegramsSent)
	assert.Equal(t, 5, got.SMSSent)
	assert.Empty(t, got.Errors)

	north := sender.telegrams["lead-north"]
	assert.True(t, strings.HasPrefix(north, "Route for North on 2026-06-15 (3 stops)"), north)
	assert.Contains(t, sender.sms["+13125550104"], "Acme Lawn Care")
}

func TestDispatchPartialFailure(t *testing.T) {
	sender := newFakeSender()
	sender.fail["lead-south"] = errBoom

	got := NewDispatchCoordinator(sender, sender).Dispatch(context.Background(), acmeResult(t), true)

	assert.Equal(t, 1, got.TelegramsSent)
	assert.Equal(t, 5, got.SMSSent)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, domain.RecipientError{Channel: domain.ChannelTelegram, Recipient: "lead-south", Reason: "boom"}, got.Errors[0])
}

func TestDispatchRefusesUnpersistedResult(t *testing.T) {
	sender := newFakeSender()
	got := NewDispatchCoordinator(sender, sender).Dispatch(context.Background(), acmeResult(t), false)

	assert.Zero(t, got.TelegramsSent)
	assert.Zero(t, got.SMSSent)
	require.Len(t, got.Errors, 1)
	assert.Empty(t, sender.telegrams)
	assert.Empty(t, sender.sms)
}

func TestDispatchMissingRecipients(t *testing.T) {
	res := acmeResult(t)
	res.Routes[0].Team.LeadChatID = ""
	res.Routes[1].Stops[0].Job.CustomerPhone = " "

	sender := newFakeSender()
	got := NewDispatchCoordinator(sender, sender).Dispatch(context.Background(), res, true)

	assert.Equal(t, 1, got.TelegramsSent)
	assert.Equal(t, 4, got.SMSSent)
	require.Len(t, got.Errors, 2)
	assert.Equal(t, domain.ChannelSMS, got.Errors[0].Channel)
	assert.Equal(t, "no sms recipient on file", got.Errors[0].Reason)
	assert.Equal(t, domain.ChannelTelegram, got.Errors[1].Channel)
}

func TestDispatchSendTimeout(t *testing.T) {
	sender := newFakeSender()
	sender.delay = time.Second

	start := time.Now()
	got := NewDispatchCoordinator(sender, sender).
		WithSettings(20*time.Millisecond, 7).
		Dispatch(context.Background(), acmeResult(t), true)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, got.Errors, 7)
	assert.Zero(t, got.TelegramsSent+got.SMSSent)
}

func TestDispatchRecoversSenderPanic(t *testing.T) {
	sender := newFakeSender()
	sender.panic = true

	got := NewDispatchCoordinator(sender, sender).Dispatch(context.Background(), acmeResult(t), true)
	require.Len(t, got.Errors, 7)
	assert.Contains(t, got.Errors[0].Reason, "panicked")
}

func TestDispatchWaitsForRateWindow(t *testing.T) {
	sender := newFakeSender()
	limiter := &fakeLimiter{denyFirst: 3}

	d := NewDispatchCoordinator(sender, sender).
		WithSettings(time.Second, 1).
		WithRateLimit(limiter, 30, 120)
	d.throttleDelay = time.Millisecond
	d.now = func() time.Time { return acmeTick }

	got := d.Dispatch(context.Background(), acmeResult(t), true)
	assert.Equal(t, 2, got.TelegramsSent)
	assert.Equal(t, 5, got.SMSSent)
	assert.Empty(t, got.Errors)
	assert.Len(t, limiter.keys, 10, "three denied polls, then one admit per message")
	assert.Contains(t, limiter.keys, "rl:notify:sms:202606150800")
}

func TestDispatchRateLimitExhaustedFailsSends(t *testing.T) {
	sender := newFakeSender()
	limiter := &fakeLimiter{allow: false}

	d := NewDispatchCoordinator(sender, sender).
		WithSettings(20*time.Millisecond, 4).
		WithRateLimit(limiter, 30, 120)
	d.throttleDelay = 2 * time.Millisecond
	d.now = func() time.Time { return acmeTick }

	got := d.Dispatch(context.Background(), acmeResult(t), true)
	assert.Zero(t, got.TelegramsSent)
	assert.Zero(t, got.SMSSent)
	require.Len(t, got.Errors, 7)
	for _, e := range got.Errors {
		assert.Contains(t, e.Reason, "rate limited")
	}
	assert.Empty(t, sender.telegrams)
	assert.Empty(t, sender.sms)
}

func TestDispatchLimiterErrorAdmitsSend(t *testing.T) {
	sender := newFakeSender()
	limiter := &fakeLimiter{err: errBoom}

	d := NewDispatchCoordinator(sender, sender).WithRateLimit(limiter, 30, 120)

	got := d.Dispatch(context.Background(), acmeResult(t), true)
	assert.Equal(t, 2, got.TelegramsSent)
	assert.Equal(t, 5, got.SMSSent)
	assert.Len(t, limiter.keys, 7)
}

func TestFormatCustomerETA(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	start := time.Date(2026, 6, 15, 9, 5, 0, 0, loc)

	msg := FormatCustomerETA("Acme", domain.RouteStop{
		Job: &domain.Job{CustomerName: "Dana"},
		ETA: domain.ETAWindow{Start: start, End: start.Add(time.Hour)},
	})
	assert.Equal(t, "Hi Dana, your technician from Acme will arrive between 9:05 AM and 10:05 AM on Mon Jun 15.", msg)
}
