package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/errors"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// settingDailyReset is the single global key guarding the once-per-day
// counter reset across concurrent runs.
const settingDailyReset = "daily_reset_date"

const dateLayout = "2006-01-02"

type Config struct {
	// BatchSize caps how many messages one gateway claims per run.
	BatchSize int
	// MaxAttempts is the attempt count after which a message goes to
	// failed permanently.
	MaxAttempts int
	// BackoffBase is doubled per attempt to space retries out.
	BackoffBase time.Duration
	// SendTimeout bounds each provider call so one unresponsive
	// provider cannot stall the remaining gateways.
	SendTimeout time.Duration
	// GatewayConcurrency bounds how many gateways are processed in
	// parallel. Messages within one gateway stay sequential.
	GatewayConcurrency int
	// SendsPerSecond paces provider calls within one gateway.
	SendsPerSecond float64
	// QuotaDeferral is how far due_at moves when a claim is released
	// because the daily quota ran out.
	QuotaDeferral time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:          50,
		MaxAttempts:        3,
		BackoffBase:        2 * time.Minute,
		SendTimeout:        15 * time.Second,
		GatewayConcurrency: 4,
		SendsPerSecond:     10,
		QuotaDeferral:      time.Hour,
	}
}

// RunSummary aggregates one run's outcomes for the progress log. It is
// observability output, not part of the transactional guarantees.
type RunSummary struct {
	Gateways      int
	SkippedConfig int
	Claimed       int
	Sent          int
	Failed        int
	Requeued      int
	QuotaDeferred int
	Errors        int
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("gateways=%d skipped=%d claimed=%d sent=%d failed=%d requeued=%d quota_deferred=%d errors=%d",
		s.Gateways, s.SkippedConfig, s.Claimed, s.Sent, s.Failed, s.Requeued, s.QuotaDeferred, s.Errors)
}

// Processor drains the message queue once per invocation: it claims due
// messages per active gateway, pushes them through the provider
// adapters, and records outcomes with retry and quota semantics.
type Processor struct {
	gateways repository.GatewayRepository
	messages repository.MessageRepository
	settings repository.SettingRepository
	registry *gateway.Registry
	deps     gateway.Deps
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
	config   Config
	now      func() time.Time
}

func New(
	gateways repository.GatewayRepository,
	messages repository.MessageRepository,
	settings repository.SettingRepository,
	registry *gateway.Registry,
	deps gateway.Deps,
	broker messaging.Broker,
	log *logger.Logger,
	m *metrics.Metrics,
	config Config,
) *Processor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.MaxAttempts <= 0 {
		panic("MaxAttempts must be greater than 0")
	}
	if broker == nil {
		broker = messaging.NopBroker{}
	}
	return &Processor{
		gateways: gateways,
		messages: messages,
		settings: settings,
		registry: registry,
		deps:     deps,
		broker:   broker,
		logger:   log,
		metrics:  m,
		config:   config,
		now:      time.Now,
	}
}

// Run executes one batch. Per-message and per-gateway failures are
// absorbed into the summary; only an unreachable store returns an
// error, which the caller maps to a non-zero exit.
func (p *Processor) Run(ctx context.Context) (*RunSummary, error) {
	start := p.now()
	defer func() {
		p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}()

	if err := p.resetDailyCounters(ctx); err != nil {
		return nil, fmt.Errorf("daily counter reset failed: %w", err)
	}

	gateways, err := p.gateways.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active gateways: %w", err)
	}

	summary := &RunSummary{Gateways: len(gateways)}
	var mu sync.Mutex

	sem := make(chan struct{}, p.config.GatewayConcurrency)
	var wg sync.WaitGroup
	for _, gw := range gateways {
		wg.Add(1)
		sem <- struct{}{}
		go func(gw *model.Gateway) {
			defer wg.Done()
			defer func() { <-sem }()

			got := p.processGateway(ctx, gw)

			mu.Lock()
			summary.SkippedConfig += got.SkippedConfig
			summary.Claimed += got.Claimed
			summary.Sent += got.Sent
			summary.Failed += got.Failed
			summary.Requeued += got.Requeued
			summary.QuotaDeferred += got.QuotaDeferred
			summary.Errors += got.Errors
			mu.Unlock()
		}(gw)
	}
	wg.Wait()

	p.logger.Info("queue run complete", "summary", summary.String())
	return summary, nil
}

func (p *Processor) processGateway(ctx context.Context, gw *model.Gateway) RunSummary {
	var sum RunSummary
	glog := p.logger.WithFields(map[string]interface{}{
		"gateway_id": gw.ID.String(),
		"provider":   gw.Provider,
	})

	adapter, err := p.registry.Build(gw, p.deps)
	if err != nil {
		// Misconfigured gateways sit out the run; the rest proceed.
		sum.SkippedConfig++
		glog.Error(err, "gateway excluded from run")
		return sum
	}

	if gw.QuotaExhausted() {
		// Nothing gets claimed: pinned messages wait for tomorrow's
		// reset, unpinned ones stay available to sibling gateways on
		// the channel.
		glog.Info("daily quota exhausted, gateway sits out the run")
		return sum
	}

	claimed, err := p.messages.ClaimDue(ctx, gw.ID, gw.Channel, p.now(), p.config.BatchSize)
	if err != nil {
		sum.Errors++
		glog.Error(err, "failed to claim due messages")
		return sum
	}
	sum.Claimed = len(claimed)
	p.metrics.ClaimBatchSize.Observe(float64(len(claimed)))
	if len(claimed) == 0 {
		return sum
	}

	limiter := rate.NewLimiter(rate.Limit(p.config.SendsPerSecond), 1)

	for i, msg := range claimed {
		allowed, err := p.gateways.TryIncrementDailyCount(ctx, gw.ID)
		if err != nil {
			sum.Errors++
			glog.Error(err, "quota check failed", "message_id", msg.ID.String())
			p.release(ctx, msg, p.now().Add(p.config.BackoffBase), glog)
			continue
		}
		if !allowed {
			// Quota exhausted: release this and every remaining claim
			// without counting attempts.
			for _, rest := range claimed[i:] {
				p.release(ctx, rest, p.now().Add(p.config.QuotaDeferral), glog)
				sum.QuotaDeferred++
				p.metrics.QuotaDeferred.WithLabelValues(gw.Provider).Inc()
			}
			glog.Warn("daily quota exhausted, deferring remaining claims", "deferred", len(claimed)-i)
			break
		}

		if err := limiter.Wait(ctx); err != nil {
			sum.Errors++
			p.release(ctx, msg, p.now().Add(p.config.BackoffBase), glog)
			continue
		}

		outcome := p.deliver(ctx, adapter, gw, msg, glog)
		switch outcome {
		case deliveredSent:
			sum.Sent++
		case deliveredFailed:
			sum.Failed++
		case deliveredRequeued:
			sum.Requeued++
		default:
			sum.Errors++
		}
	}
	return sum
}

type deliveryOutcome int

const (
	deliveredError deliveryOutcome = iota
	deliveredSent
	deliveredFailed
	deliveredRequeued
)

func (p *Processor) deliver(ctx context.Context, adapter gateway.Gateway, gw *model.Gateway, msg *model.QueuedMessage, glog *logger.Logger) deliveryOutcome {
	sendCtx, cancel := context.WithTimeout(ctx, p.config.SendTimeout)
	start := p.now()
	result := adapter.Send(sendCtx, gateway.Message{
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
	})
	cancel()
	p.metrics.ProviderLatency.WithLabelValues(gw.Provider).Observe(time.Since(start).Seconds())

	attempts := msg.Attempts + 1

	if result.Success {
		sentAt := p.now()
		if err := p.messages.MarkSent(ctx, msg.ID, gw.ID, result.MessageID, sentAt); err != nil {
			glog.Error(err, "failed to record sent message", "message_id", msg.ID.String())
			return deliveredError
		}
		p.metrics.MessagesSent.WithLabelValues(string(gw.Channel), gw.Provider).Inc()
		p.publish(ctx, msg, gw, model.MessageStatusSent, &result.MessageID, nil)
		return deliveredSent
	}

	if result.Permanent || attempts >= p.config.MaxAttempts {
		if err := p.messages.MarkFailed(ctx, msg.ID, attempts, result.Error); err != nil {
			glog.Error(err, "failed to record failed message", "message_id", msg.ID.String())
			return deliveredError
		}
		p.metrics.MessagesFailed.WithLabelValues(string(gw.Channel), gw.Provider).Inc()
		errMsg := result.Error
		p.publish(ctx, msg, gw, model.MessageStatusFailed, nil, &errMsg)
		glog.Warn("message failed permanently",
			"message_id", msg.ID.String(),
			"attempts", attempts,
			"error", result.Error)
		return deliveredFailed
	}

	// Exponential backoff keeps a persistently failing provider from
	// being hammered on every run.
	backoff := p.config.BackoffBase << (attempts - 1)
	if err := p.messages.Requeue(ctx, msg.ID, attempts, result.Error, p.now().Add(backoff)); err != nil {
		glog.Error(err, "failed to requeue message", "message_id", msg.ID.String())
		return deliveredError
	}
	p.metrics.MessagesRequeued.WithLabelValues(string(gw.Channel), gw.Provider).Inc()
	glog.Debug("message requeued",
		"message_id", msg.ID.String(),
		"attempts", attempts,
		"backoff", backoff.String())
	return deliveredRequeued
}

func (p *Processor) release(ctx context.Context, msg *model.QueuedMessage, dueAt time.Time, glog *logger.Logger) {
	if err := p.messages.Release(ctx, msg.ID, dueAt); err != nil {
		glog.Error(err, "failed to release claim", "message_id", msg.ID.String())
	}
}

// resetDailyCounters compares the single global reset date against
// today and zeroes every gateway's counter at most once per day. The
// compare-and-set on the one settings row makes the reset idempotent
// under concurrent runs.
func (p *Processor) resetDailyCounters(ctx context.Context) error {
	today := p.now().Format(dateLayout)

	stored, err := p.settings.Get(ctx, settingDailyReset)
	if err != nil {
		if !errors.IsNotFound(err) {
			return err
		}
		// First run: seed the marker without resetting anything.
		if setErr := p.settings.Set(ctx, settingDailyReset, today); setErr != nil {
			return setErr
		}
		return nil
	}
	if stored == today {
		return nil
	}

	won, err := p.settings.CompareAndSet(ctx, settingDailyReset, stored, today)
	if err != nil {
		return err
	}
	if !won {
		// A concurrent run advanced the date first.
		return nil
	}

	if err := p.gateways.ResetDailyCounts(ctx); err != nil {
		return err
	}
	p.metrics.DailyQuotaResets.Inc()
	p.logger.Info("daily quota counters reset", "date", today)
	return nil
}

func (p *Processor) publish(ctx context.Context, msg *model.QueuedMessage, gw *model.Gateway, status model.MessageStatus, providerID, errMsg *string) {
	event := model.MessageEvent{
		MessageID:  msg.ID,
		WorkflowID: msg.WorkflowID,
		Channel:    gw.Channel,
		Status:     status,
		ProviderID: providerID,
		Error:      errMsg,
		OccurredAt: p.now(),
	}
	if err := p.broker.Publish(ctx, "messages."+string(status), event); err != nil {
		p.logger.Debug("failed to publish message event", "message_id", msg.ID.String(), "error", err.Error())
	}
}
