package services

import (
	"context"
	"errors"
	"fmt"
	"route-dispatch-service/internal/domain"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var errSendRateLimited = errors.New("rate limited")

// DispatchCoordinator sends team-lead routes and customer ETAs for a
// persisted optimization result. Every send is independent: one failure is
// recorded and the rest still go out. Nothing is retried.
type DispatchCoordinator struct {
	teams     ports.TeamNotifier
	customers ports.SMSSender
	limiter   ports.RateLimiter
	metrics   *obs.Metrics

	sendTimeout   time.Duration
	concurrency   int
	telegramRate  int64
	smsRate       int64
	throttleDelay time.Duration
	now           func() time.Time
}

func NewDispatchCoordinator(teams ports.TeamNotifier, customers ports.SMSSender) *DispatchCoordinator {
	return &DispatchCoordinator{
		teams:         teams,
		customers:     customers,
		sendTimeout:   10 * time.Second,
		concurrency:   4,
		throttleDelay: time.Second,
		now:           time.Now,
	}
}

func (d *DispatchCoordinator) WithSettings(sendTimeout time.Duration, concurrency int) *DispatchCoordinator {
	if sendTimeout > 0 {
		d.sendTimeout = sendTimeout
	}
	if concurrency > 0 {
		d.concurrency = concurrency
	}
	return d
}

// WithRateLimit caps sends per channel per minute. An over-limit send waits
// for the next window and fails as rate limited if the send timeout runs out.
func (d *DispatchCoordinator) WithRateLimit(limiter ports.RateLimiter, telegramPerMinute, smsPerMinute int64) *DispatchCoordinator {
	d.limiter = limiter
	d.telegramRate = telegramPerMinute
	d.smsRate = smsPerMinute
	return d
}

func (d *DispatchCoordinator) WithMetrics(m *obs.Metrics) *DispatchCoordinator {
	d.metrics = m
	return d
}

type outbound struct {
	channel   domain.Channel
	recipient string
	text      string
}

// Dispatch notifies team leads and customers. It refuses to send anything
// when persisted is false.
func (d *DispatchCoordinator) Dispatch(ctx context.Context, result *domain.OptimizationResult, persisted bool) domain.DispatchResult {
	out := domain.DispatchResult{Errors: []domain.RecipientError{}}
	if result == nil {
		return out
	}
	if !persisted {
		out.Errors = append(out.Errors, domain.RecipientError{
			Recipient: result.TenantID,
			Reason:    "assignments not persisted; dispatch skipped",
		})
		return out
	}

	var msgs []outbound
	for _, route := range result.Routes {
		if len(route.Stops) == 0 {
			continue
		}
		msgs = append(msgs, outbound{
			channel:   domain.ChannelTelegram,
			recipient: route.Team.LeadChatID,
			text:      FormatTeamRoute(result, route),
		})
		for _, stop := range route.Stops {
			msgs = append(msgs, outbound{
				channel:   domain.ChannelSMS,
				recipient: stop.Job.CustomerPhone,
				text:      FormatCustomerETA(result.TenantName, stop),
			})
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.concurrency)

	for _, m := range msgs {
		wg.Add(1)
		sem <- struct{}{}
		go func(m outbound) {
			defer wg.Done()
			defer func() { <-sem }()

			err := d.send(ctx, m)
			d.metrics.Notification(string(m.channel), err == nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Errors = append(out.Errors, domain.RecipientError{
					Channel:   m.channel,
					Recipient: m.recipient,
					Reason:    err.Error(),
				})
				return
			}
			switch m.channel {
			case domain.ChannelTelegram:
				out.TelegramsSent++
			case domain.ChannelSMS:
				out.SMSSent++
			}
		}(m)
	}
	wg.Wait()

	slices.SortFunc(out.Errors, func(a, b domain.RecipientError) int {
		if c := strings.Compare(string(a.Channel), string(b.Channel)); c != 0 {
			return c
		}
		return strings.Compare(a.Recipient, b.Recipient)
	})

	return out
}

func (d *DispatchCoordinator) send(ctx context.Context, m outbound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()

	if strings.TrimSpace(m.recipient) == "" {
		return fmt.Errorf("no %s recipient on file", m.channel)
	}

	if err := d.throttle(ctx, m.channel); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	var id string
	switch m.channel {
	case domain.ChannelTelegram:
		if d.teams == nil {
			return fmt.Errorf("telegram sender not configured")
		}
		id, err = d.teams.SendToTeamLead(ctx, m.recipient, m.text)
	case domain.ChannelSMS:
		if d.customers == nil {
			return fmt.Errorf("sms sender not configured")
		}
		id, err = d.customers.SendSMS(ctx, m.recipient, m.text)
	default:
		return fmt.Errorf("unknown channel %q", m.channel)
	}
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().Str("channel", string(m.channel)).Str("message_id", id).Msg("notification sent")
	return nil
}

// throttle waits for room in the channel's per-minute budget, polling every
// throttleDelay for at most sendTimeout. Limiter errors admit the send.
func (d *DispatchCoordinator) throttle(ctx context.Context, ch domain.Channel) error {
	if d.limiter == nil {
		return nil
	}
	limit := d.smsRate
	if ch == domain.ChannelTelegram {
		limit = d.telegramRate
	}
	if limit <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	warned := false
	for {
		key := fmt.Sprintf("rl:notify:%s:%s", ch, d.now().UTC().Format("200601021504"))
		allowed, n, err := d.limiter.Allow(ctx, key, limit, 70*time.Second)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("channel", string(ch)).Msg("notification rate limiter unavailable")
			return nil
		}
		if allowed {
			return nil
		}

		if !warned {
			zerolog.Ctx(ctx).Warn().Str("channel", string(ch)).Int64("count", n).Msg("notification rate limit exceeded")
			warned = true
		}

		timer := time.NewTimer(d.throttleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s over %d per minute", errSendRateLimited, ch, limit)
		case <-timer.C:
		}
	}
}

// FormatTeamRoute renders the ordered stop list sent to a team lead.
func FormatTeamRoute(result *domain.OptimizationResult, route domain.TeamRoute) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Route for %s on %s (%d stops)\n", route.Team.Name, result.Date, len(route.Stops))
	for _, s := range route.Stops {
		fmt.Fprintf(&b, "%d. %s-%s  #%d %s",
			s.Sequence+1,
			s.ETA.Start.Format("15:04"),
			s.ETA.End.Format("15:04"),
			s.Job.ID,
			s.Job.CustomerName,
		)
		if s.Job.Address != "" {
			fmt.Fprintf(&b, ", %s", s.Job.Address)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Total drive: %.1f km", float64(route.TotalDistanceMeters)/1000)
	return b.String()
}

// FormatCustomerETA renders the arrival window sent to one customer.
func FormatCustomerETA(tenantName string, stop domain.RouteStop) string {
	from := tenantName
	if from == "" {
		from = "our team"
	}
	greeting := "Hi"
	if stop.Job.CustomerName != "" {
		greeting = "Hi " + stop.Job.CustomerName
	}
	return fmt.Sprintf("%s, your technician from %s will arrive between %s and %s on %s.",
		greeting,
		from,
		stop.ETA.Start.Format("3:04 PM"),
		stop.ETA.End.Format("3:04 PM"),
		stop.ETA.Start.Format("Mon Jan 2"),
	)
}
