package processor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-engine/internal/dispatch"
	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"
	apperrors "github.com/jwalitptl/notify-engine/pkg/errors"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// Prometheus collectors register globally, so the whole test binary
// shares one instance.
var testMetrics = metrics.New("processor_test")

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

// memGatewayRepo serves a fixed gateway list and counts quota under a
// mutex, mirroring the single-statement check-and-increment.
type memGatewayRepo struct {
	mu       sync.Mutex
	gateways []*model.Gateway
	resets   int
}

func (m *memGatewayRepo) Create(ctx context.Context, g *model.Gateway) error { return nil }
func (m *memGatewayRepo) Get(ctx context.Context, id uuid.UUID) (*model.Gateway, error) {
	for _, g := range m.gateways {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, fmt.Errorf("gateway not found")
}
func (m *memGatewayRepo) Update(ctx context.Context, g *model.Gateway) error { return nil }
func (m *memGatewayRepo) Delete(ctx context.Context, id uuid.UUID) error     { return nil }
func (m *memGatewayRepo) List(ctx context.Context) ([]*model.Gateway, error) { return m.gateways, nil }
func (m *memGatewayRepo) ListActive(ctx context.Context) ([]*model.Gateway, error) {
	var out []*model.Gateway
	for _, g := range m.gateways {
		if g.IsActive {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}
func (m *memGatewayRepo) HighestPriorityActive(ctx context.Context, channel model.Channel) (*model.Gateway, error) {
	var best *model.Gateway
	for _, g := range m.gateways {
		if !g.IsActive || g.Channel != channel {
			continue
		}
		if best == nil || g.Priority > best.Priority {
			best = g
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no active gateway for channel %s", channel)
	}
	return best, nil
}
func (m *memGatewayRepo) TryIncrementDailyCount(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.gateways {
		if g.ID == id {
			if g.DailyLimit > 0 && g.DailyCount >= g.DailyLimit {
				return false, nil
			}
			g.DailyCount++
			return true, nil
		}
	}
	return false, fmt.Errorf("gateway not found")
}
func (m *memGatewayRepo) ResetDailyCounts(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.gateways {
		g.DailyCount = 0
	}
	m.resets++
	return nil
}

// memMessageRepo keeps the queue in a map and applies the same guarded
// state transitions as the SQL statements.
type memMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*model.QueuedMessage
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{messages: make(map[uuid.UUID]*model.QueuedMessage)}
}

func (m *memMessageRepo) add(msg *model.QueuedMessage) {
	if msg.ID == (uuid.UUID{}) {
		msg.ID = uuid.New()
	}
	if msg.Status == "" {
		msg.Status = model.MessageStatusPending
	}
	m.messages[msg.ID] = msg
}

func (m *memMessageRepo) Create(ctx context.Context, msg *model.QueuedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(msg)
	return nil
}
func (m *memMessageRepo) Get(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("message not found")
	}
	copied := *msg
	return &copied, nil
}
func (m *memMessageRepo) List(ctx context.Context, status model.MessageStatus, limit int) ([]*model.QueuedMessage, error) {
	return nil, nil
}

func (m *memMessageRepo) ClaimDue(ctx context.Context, gatewayID uuid.UUID, channel model.Channel, now time.Time, limit int) ([]*model.QueuedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*model.QueuedMessage
	for _, msg := range m.messages {
		eligible := msg.Status == model.MessageStatusPending && !msg.DueAt.After(now)
		pinnedHere := msg.GatewayID != nil && *msg.GatewayID == gatewayID
		unpinned := msg.GatewayID == nil && msg.Channel == channel
		if eligible && (pinnedHere || unpinned) {
			due = append(due, msg)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	var claimed []*model.QueuedMessage
	for _, msg := range due {
		msg.Status = model.MessageStatusProcessing
		copied := *msg
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (m *memMessageRepo) transition(id uuid.UUID, from model.MessageStatus, apply func(*model.QueuedMessage)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.Status != from {
		return false
	}
	apply(msg)
	return true
}

func (m *memMessageRepo) Release(ctx context.Context, id uuid.UUID, dueAt time.Time) error {
	m.transition(id, model.MessageStatusProcessing, func(msg *model.QueuedMessage) {
		msg.Status = model.MessageStatusPending
		msg.DueAt = dueAt
	})
	return nil
}
func (m *memMessageRepo) MarkSent(ctx context.Context, id uuid.UUID, gatewayID uuid.UUID, providerMessageID string, sentAt time.Time) error {
	m.transition(id, model.MessageStatusProcessing, func(msg *model.QueuedMessage) {
		msg.Status = model.MessageStatusSent
		msg.GatewayID = &gatewayID
		msg.ProviderID = &providerMessageID
		msg.SentAt = &sentAt
		msg.Attempts++
	})
	return nil
}
func (m *memMessageRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	m.transition(id, model.MessageStatusProcessing, func(msg *model.QueuedMessage) {
		msg.Status = model.MessageStatusFailed
		msg.Attempts = attempts
		msg.LastError = &lastError
	})
	return nil
}
func (m *memMessageRepo) Requeue(ctx context.Context, id uuid.UUID, attempts int, lastError string, dueAt time.Time) error {
	m.transition(id, model.MessageStatusProcessing, func(msg *model.QueuedMessage) {
		msg.Status = model.MessageStatusPending
		msg.Attempts = attempts
		msg.LastError = &lastError
		msg.DueAt = dueAt
	})
	return nil
}
func (m *memMessageRepo) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.transition(id, model.MessageStatusPending, func(msg *model.QueuedMessage) {
		msg.Status = model.MessageStatusCancelled
	}), nil
}
func (m *memMessageRepo) RetryNow(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return m.transition(id, model.MessageStatusFailed, func(msg *model.QueuedMessage) {
		msg.Status = model.MessageStatusPending
		msg.DueAt = now
		msg.Attempts = 0
		msg.LastError = nil
	}), nil
}

func (m *memMessageRepo) byStatus(status model.MessageStatus) []*model.QueuedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.QueuedMessage
	for _, msg := range m.messages {
		if msg.Status == status {
			copied := *msg
			out = append(out, &copied)
		}
	}
	return out
}

// memSettingRepo is a compare-and-set key store.
type memSettingRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSettingRepo() *memSettingRepo {
	return &memSettingRepo{values: make(map[string]string)}
}

func (m *memSettingRepo) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", apperrors.NewNotFound("setting "+key, nil)
	}
	return v, nil
}
func (m *memSettingRepo) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
func (m *memSettingRepo) CompareAndSet(ctx context.Context, key, old, new string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[key] != old {
		return false, nil
	}
	m.values[key] = new
	return true, nil
}

// scriptedGateway returns canned delivery results in order, then keeps
// repeating the last one.
type scriptedGateway struct {
	mu      sync.Mutex
	channel model.Channel
	results []gateway.DeliveryResult
	calls   int
}

func (s *scriptedGateway) Provider() string       { return "scripted" }
func (s *scriptedGateway) Channel() model.Channel { return s.channel }
func (s *scriptedGateway) Send(ctx context.Context, msg gateway.Message) gateway.DeliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i]
}
func (s *scriptedGateway) GetStatus(ctx context.Context, messageID string) (*gateway.StatusResult, error) {
	return &gateway.StatusResult{MessageID: messageID, Status: "delivered"}, nil
}
func (s *scriptedGateway) TestConnection(ctx context.Context) error { return nil }
func (s *scriptedGateway) Capabilities() []gateway.Capability       { return nil }

func sent(id string) gateway.DeliveryResult {
	return gateway.DeliveryResult{Success: true, MessageID: id, Status: "queued"}
}

func rejected(permanent bool) gateway.DeliveryResult {
	return gateway.DeliveryResult{Success: false, Error: "provider rejected", Permanent: permanent}
}

type fixture struct {
	gateways *memGatewayRepo
	messages *memMessageRepo
	settings *memSettingRepo
	registry *gateway.Registry
	adapters map[string]*scriptedGateway
}

func newFixture(t *testing.T, gws ...*model.Gateway) *fixture {
	t.Helper()
	f := &fixture{
		gateways: &memGatewayRepo{gateways: gws},
		messages: newMemMessageRepo(),
		settings: newMemSettingRepo(),
		registry: gateway.NewRegistry(),
		adapters: make(map[string]*scriptedGateway),
	}
	return f
}

// register wires one scripted adapter under its own provider name so
// each test gateway can behave differently.
func (f *fixture) register(gw *model.Gateway, results ...gateway.DeliveryResult) {
	adapter := &scriptedGateway{channel: gw.Channel, results: results}
	f.adapters[gw.Provider] = adapter
	f.registry.Register(gw.Provider, gw.Channel, nil, func(cfg model.GatewayConfig, deps gateway.Deps) (gateway.Gateway, error) {
		return adapter, nil
	})
}

func (f *fixture) processor(cfg Config) *Processor {
	return New(f.gateways, f.messages, f.settings, f.registry, gateway.Deps{},
		messaging.NopBroker{}, testLogger(), testMetrics, cfg)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SendsPerSecond = 10000
	cfg.SendTimeout = time.Second
	return cfg
}

func smsGateway(provider string) *model.Gateway {
	return &model.Gateway{
		ID:       uuid.New(),
		Name:     provider,
		Channel:  model.ChannelSMS,
		Provider: provider,
		IsActive: true,
	}
}

func pendingMessage(gw *model.Gateway, dueAt time.Time) *model.QueuedMessage {
	msg := &model.QueuedMessage{
		ID:         uuid.New(),
		WorkflowID: uuid.New(),
		Recipient:  "+15551234567",
		Channel:    model.ChannelSMS,
		Body:       "hello",
		DueAt:      dueAt,
		Status:     model.MessageStatusPending,
	}
	if gw != nil {
		msg.GatewayID = &gw.ID
	}
	return msg
}

func TestRunSendsDueMessages(t *testing.T) {
	gw := smsGateway("p1")
	f := newFixture(t, gw)
	f.register(gw, sent("prov-1"))

	now := time.Now()
	f.messages.add(pendingMessage(gw, now.Add(-time.Minute)))
	f.messages.add(pendingMessage(nil, now.Add(-time.Minute))) // unpinned, same channel
	f.messages.add(pendingMessage(gw, now.Add(time.Hour)))     // not yet due

	summary, err := f.processor(testConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Claimed)
	assert.Equal(t, 2, summary.Sent)

	sentMsgs := f.messages.byStatus(model.MessageStatusSent)
	require.Len(t, sentMsgs, 2)
	for _, msg := range sentMsgs {
		require.NotNil(t, msg.ProviderID)
		assert.Equal(t, "prov-1", *msg.ProviderID)
		require.NotNil(t, msg.GatewayID)
		assert.Equal(t, gw.ID, *msg.GatewayID)
		assert.Equal(t, 1, msg.Attempts)
	}
	assert.Len(t, f.messages.byStatus(model.MessageStatusPending), 1)
}

func TestRunRequeuesWithBackoff(t *testing.T) {
	gw := smsGateway("p1")
	f := newFixture(t, gw)
	f.register(gw, rejected(false))

	now := time.Now()
	f.messages.add(pendingMessage(gw, now.Add(-time.Minute)))

	cfg := testConfig()
	summary, err := f.processor(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Requeued)

	pending := f.messages.byStatus(model.MessageStatusPending)
	require.Len(t, pending, 1)
	msg := pending[0]
	assert.Equal(t, 1, msg.Attempts)
	require.NotNil(t, msg.LastError)
	// First retry waits one backoff base.
	assert.WithinDuration(t, now.Add(cfg.BackoffBase), msg.DueAt, 5*time.Second)
}

func TestRunFailsPermanentRejectionImmediately(t *testing.T) {
	gw := smsGateway("p1")
	f := newFixture(t, gw)
	f.register(gw, rejected(true))

	f.messages.add(pendingMessage(gw, time.Now().Add(-time.Minute)))

	summary, err := f.processor(testConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	failed := f.messages.byStatus(model.MessageStatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Attempts)
}

func TestRunExhaustsAttempts(t *testing.T) {
	gw := smsGateway("p1")
	f := newFixture(t, gw)
	f.register(gw, rejected(false))

	msg := pendingMessage(gw, time.Now().Add(-time.Minute))
	f.messages.add(msg)

	cfg := testConfig()
	cfg.BackoffBase = 0 // keep retries immediately due
	proc := f.processor(cfg)

	for i := 0; i < cfg.MaxAttempts; i++ {
		_, err := proc.Run(context.Background())
		require.NoError(t, err)
	}

	failed := f.messages.byStatus(model.MessageStatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, cfg.MaxAttempts, failed[0].Attempts)

	// Further runs find nothing to do.
	summary, err := proc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Claimed)
}

func TestRunQuotaDefersWithoutAttempt(t *testing.T) {
	gw := smsGateway("p1")
	gw.DailyLimit = 1
	f := newFixture(t, gw)
	f.register(gw, sent("prov-1"))

	now := time.Now()
	f.messages.add(pendingMessage(gw, now.Add(-2*time.Minute)))
	f.messages.add(pendingMessage(gw, now.Add(-time.Minute)))

	cfg := testConfig()
	summary, err := f.processor(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.QuotaDeferred)

	pending := f.messages.byStatus(model.MessageStatusPending)
	require.Len(t, pending, 1)
	// Deferred, not retried: no attempt recorded, due pushed forward.
	assert.Equal(t, 0, pending[0].Attempts)
	assert.True(t, pending[0].DueAt.After(now))
	assert.Equal(t, 1, gw.DailyCount)
}

func TestRunSkipsQuotaExhaustedGateway(t *testing.T) {
	gw := smsGateway("p1")
	gw.DailyLimit = 5
	gw.DailyCount = 5
	f := newFixture(t, gw)
	f.register(gw, sent("prov-1"))

	f.messages.add(pendingMessage(gw, time.Now().Add(-time.Minute)))

	summary, err := f.processor(testConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Claimed)
	assert.Equal(t, 0, f.adapters["p1"].calls)
	// Untouched, so the message is picked up after the next reset.
	pending := f.messages.byStatus(model.MessageStatusPending)
	require.Len(t, pending, 1)
	assert.Equal(t, 0, pending[0].Attempts)
}

func TestRunSkipsMisconfiguredGateway(t *testing.T) {
	good := smsGateway("good")
	bad := smsGateway("unregistered") // no factory registered
	f := newFixture(t, good, bad)
	f.register(good, sent("prov-1"))

	f.messages.add(pendingMessage(bad, time.Now().Add(-time.Minute)))

	summary, err := f.processor(testConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedConfig)
	// The bad gateway's pinned message stays pending, untouched.
	assert.Len(t, f.messages.byStatus(model.MessageStatusPending), 1)
}

// Two processors over the same queue never deliver a message twice.
func TestConcurrentRunsClaimExclusively(t *testing.T) {
	gw := smsGateway("p1")
	f := newFixture(t, gw)
	f.register(gw, sent("prov-1"))

	now := time.Now()
	const total = 40
	for i := 0; i < total; i++ {
		f.messages.add(pendingMessage(gw, now.Add(-time.Minute)))
	}

	cfg := testConfig()
	cfg.BatchSize = total
	procA := f.processor(cfg)
	procB := f.processor(cfg)

	var wg sync.WaitGroup
	summaries := make([]*RunSummary, 2)
	for i, proc := range []*Processor{procA, procB} {
		wg.Add(1)
		go func(i int, p *Processor) {
			defer wg.Done()
			s, err := p.Run(context.Background())
			assert.NoError(t, err)
			summaries[i] = s
		}(i, proc)
	}
	wg.Wait()

	adapter := f.adapters["p1"]
	assert.Equal(t, total, adapter.calls, "every message delivered exactly once")
	assert.Equal(t, total, summaries[0].Sent+summaries[1].Sent)
	assert.Len(t, f.messages.byStatus(model.MessageStatusSent), total)
}

func TestDailyResetRunsOncePerDay(t *testing.T) {
	gw := smsGateway("p1")
	gw.DailyCount = 7
	f := newFixture(t, gw)
	f.register(gw, sent("prov-1"))

	proc := f.processor(testConfig())
	yesterday := time.Now().AddDate(0, 0, -1).Format(dateLayout)
	require.NoError(t, f.settings.Set(context.Background(), settingDailyReset, yesterday))

	_, err := proc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateways.resets)
	assert.Equal(t, 0, gw.DailyCount)

	// Same day: no further reset.
	_, err = proc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateways.resets)
}

func TestDailyResetFirstRunSeedsMarker(t *testing.T) {
	gw := smsGateway("p1")
	gw.DailyCount = 3
	f := newFixture(t, gw)
	f.register(gw, sent("prov-1"))

	_, err := f.processor(testConfig()).Run(context.Background())
	require.NoError(t, err)

	// First run records today without zeroing half-used counters.
	assert.Equal(t, 0, f.gateways.resets)
	stored, err := f.settings.Get(context.Background(), settingDailyReset)
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format(dateLayout), stored)
}

// flakySettingRepo fails the first Get calls with a transient store
// error, then behaves like the wrapped store.
type flakySettingRepo struct {
	*memSettingRepo
	failures int
}

func (f *flakySettingRepo) Get(ctx context.Context, key string) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", fmt.Errorf("settings store unavailable")
	}
	return f.memSettingRepo.Get(ctx, key)
}

func TestDailyResetTransientStoreErrorAbortsRun(t *testing.T) {
	gw := smsGateway("p1")
	gw.DailyCount = 7
	f := newFixture(t, gw)
	f.register(gw, sent("prov-1"))

	yesterday := time.Now().AddDate(0, 0, -1).Format(dateLayout)
	require.NoError(t, f.settings.Set(context.Background(), settingDailyReset, yesterday))

	flaky := &flakySettingRepo{memSettingRepo: f.settings, failures: 1}
	proc := New(f.gateways, f.messages, flaky, f.registry, gateway.Deps{},
		messaging.NopBroker{}, testLogger(), testMetrics, testConfig())

	// A transient store failure is infrastructure, not a first run: the
	// run aborts instead of seeding today's marker over yesterday's.
	_, err := proc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, f.gateways.resets)
	assert.Equal(t, 7, gw.DailyCount)
	stored, err := f.settings.Get(context.Background(), settingDailyReset)
	require.NoError(t, err)
	assert.Equal(t, yesterday, stored)

	// Once the store recovers, the reset still happens for that day.
	_, err = proc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateways.resets)
	assert.Equal(t, 0, gw.DailyCount)
}

func TestDailyResetConcurrentRunsResetOnce(t *testing.T) {
	gw := smsGateway("p1")
	f := newFixture(t, gw)
	f.register(gw, sent("prov-1"))

	yesterday := time.Now().AddDate(0, 0, -1).Format(dateLayout)
	require.NoError(t, f.settings.Set(context.Background(), settingDailyReset, yesterday))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.processor(testConfig()).Run(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.gateways.resets)
}

// staticWorkflowRepo serves a fixed workflow list to the dispatcher.
type staticWorkflowRepo struct {
	workflows []*model.Workflow
}

func (r *staticWorkflowRepo) Create(ctx context.Context, w *model.Workflow) error { return nil }
func (r *staticWorkflowRepo) Get(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	return nil, fmt.Errorf("workflow not found")
}
func (r *staticWorkflowRepo) Update(ctx context.Context, w *model.Workflow) error { return nil }
func (r *staticWorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error      { return nil }
func (r *staticWorkflowRepo) List(ctx context.Context) ([]*model.Workflow, error) {
	return r.workflows, nil
}
func (r *staticWorkflowRepo) ListActiveForEvent(ctx context.Context, event model.TriggerEvent) ([]*model.Workflow, error) {
	var out []*model.Workflow
	for _, w := range r.workflows {
		if w.IsActive && w.TriggerEvent == event {
			out = append(out, w)
		}
	}
	return out, nil
}
func (r *staticWorkflowRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

type staticRenderer struct{}

func (staticRenderer) Render(ctx context.Context, templateID uuid.UUID, payload map[string]interface{}) (string, string, error) {
	return "New inquiry", "An inquiry arrived", nil
}

// Firing an immediate workflow and running the processor moves one
// message through the whole pipeline: pending at enqueue time, sent
// with the provider's message id after the run.
func TestFireThenRunDeliversImmediately(t *testing.T) {
	gw := smsGateway("p1")
	f := newFixture(t, gw)
	f.register(gw, sent("prov-42"))

	workflows := &staticWorkflowRepo{workflows: []*model.Workflow{{
		ID:           uuid.New(),
		Name:         "inquiry alert",
		TriggerEvent: model.EventInquiryCreated,
		Channel:      model.ChannelSMS,
		TemplateID:   uuid.New(),
		ScheduleType: model.ScheduleImmediate,
		IsActive:     true,
	}}}
	dispatcher := dispatch.NewService(workflows, f.gateways, f.messages,
		staticRenderer{}, testLogger(), testMetrics)

	before := time.Now()
	enqueued, err := dispatcher.Fire(context.Background(), model.EventInquiryCreated, map[string]interface{}{
		"id":    1,
		"phone": "+15551234567",
	})
	require.NoError(t, err)
	require.Equal(t, 1, enqueued)

	pending := f.messages.byStatus(model.MessageStatusPending)
	require.Len(t, pending, 1)
	assert.Equal(t, "+15551234567", pending[0].Recipient)
	assert.WithinDuration(t, before, pending[0].DueAt, 2*time.Second)

	summary, err := f.processor(testConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)

	sentMsgs := f.messages.byStatus(model.MessageStatusSent)
	require.Len(t, sentMsgs, 1)
	require.NotNil(t, sentMsgs[0].ProviderID)
	assert.Equal(t, "prov-42", *sentMsgs[0].ProviderID)
	assert.Equal(t, 1, sentMsgs[0].Attempts)
}
