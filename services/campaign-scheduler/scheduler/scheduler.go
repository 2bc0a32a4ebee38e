package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/walidhousni/glavito-sub011/internal/campaign"
	"github.com/walidhousni/glavito-sub011/internal/channel"
	"github.com/walidhousni/glavito-sub011/internal/events"
	"github.com/walidhousni/glavito-sub011/internal/launch"
	"github.com/walidhousni/glavito-sub011/internal/lease"
	"github.com/walidhousni/glavito-sub011/internal/store"
	"github.com/walidhousni/glavito-sub011/pkg/logx"
	"github.com/walidhousni/glavito-sub011/pkg/metrics"
	"github.com/walidhousni/glavito-sub011/pkg/model"
)

const (
	leaseCallTimeout = 5 * time.Second
	settleTimeout    = 10 * time.Second
)

type Store interface {
	DueCampaigns(ctx context.Context, now time.Time, limit int) ([]campaign.Campaign, error)
	PendingDeliveries(ctx context.Context, now time.Time, limit int) ([]campaign.PendingDelivery, error)
	MarkDeliverySent(ctx context.Context, id int64, messageID string, sentAt time.Time) error
	MarkDeliveryFailed(ctx context.Context, id int64, reason string, kind campaign.FailureKind, at time.Time) error
	RequeueFailed(ctx context.Context, f store.RequeueFilter) (int64, error)
}

type Launcher interface {
	Launch(ctx context.Context, tenantID string, campaignID int64, now time.Time) (launch.Result, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, pd campaign.PendingDelivery) channel.Result
}

type Deps struct {
	Store      Store
	Launcher   Launcher
	Dispatcher Dispatcher
	// Locker defaults to lease.Noop.
	Locker lease.Locker
	Sink   events.Sink
}

type Options struct {
	Interval  time.Duration
	BatchSize int
	LeaseKey  string
	LeaseTTL  time.Duration

	AutoRequeue  bool
	RequeueLimit int
	RequeueAfter time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.LeaseKey == "" {
		o.LeaseKey = "campaign-scheduler:tick"
	}
	if o.LeaseTTL <= 0 {
		o.LeaseTTL = 30 * time.Second
	}
	if o.RequeueLimit <= 0 {
		o.RequeueLimit = 50
	}
	if o.RequeueAfter <= 0 {
		o.RequeueAfter = time.Minute
	}
	return o
}

type Scheduler struct {
	deps Deps
	opts Options
	now  func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func New(deps Deps, opts Options) *Scheduler {
	if deps.Locker == nil {
		deps.Locker = lease.Noop{}
	}
	return &Scheduler{deps: deps, opts: opts.withDefaults(), now: time.Now}
}

// Start schedules Tick every Interval. A tick still running when the next one
// is due causes that next one to be skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	lg := cronLogger{}
	c := cron.New(
		cron.WithLogger(lg),
		cron.WithChain(cron.Recover(lg), cron.SkipIfStillRunning(lg)),
	)
	if _, err := c.AddFunc("@every "+s.opts.Interval.String(), s.run); err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	c.Start()
	s.cron = c

	logx.L().Infow("scheduler_started",
		"interval", s.opts.Interval.String(), "batch_size", s.opts.BatchSize, "auto_requeue", s.opts.AutoRequeue)
	return nil
}

// Stop halts scheduling. The returned context is done once a running tick
// has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	ctx := s.cron.Stop()
	s.cron = nil
	logx.L().Infow("scheduler_stopping")
	return ctx
}

// run is one cron firing: take the lease, tick, give the lease back. The
// tick itself has no deadline; the lease is refreshed while it runs so a slow
// batch is still finished by its holder.
func (s *Scheduler) run() {
	actx, acancel := context.WithTimeout(context.Background(), leaseCallTimeout)
	held, ok, err := s.deps.Locker.Acquire(actx, s.opts.LeaseKey, s.opts.LeaseTTL)
	acancel()
	if err != nil {
		metrics.SchedulerTicksTotal.WithLabelValues("lease_error").Inc()
		logx.L().Warnw("scheduler_lease_error", "err", err)
		return
	}
	if !ok {
		metrics.SchedulerTicksTotal.WithLabelValues("lease_held").Inc()
		logx.L().Debugw("scheduler_lease_held", "key", s.opts.LeaseKey)
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.keepAlive(held, stop)
	}()
	defer func() {
		close(stop)
		<-done
		rctx, rcancel := context.WithTimeout(context.Background(), leaseCallTimeout)
		defer rcancel()
		if err := held.Release(rctx); err != nil {
			logx.L().Warnw("scheduler_lease_release_error", "err", err)
		}
	}()

	s.Tick(context.Background(), s.now())
}

// keepAlive refreshes held every third of the TTL until stop is closed.
func (s *Scheduler) keepAlive(held lease.Lease, stop <-chan struct{}) {
	every := s.opts.LeaseTTL / 3
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			err := held.Refresh(ctx)
			cancel()
			if err != nil {
				logx.L().Warnw("scheduler_lease_refresh_failed", "key", s.opts.LeaseKey, "err", err)
			}
		}
	}
}

// ItemResult is the outcome of promoting one due campaign.
type ItemResult struct {
	TenantID   string
	CampaignID int64
	Enqueued   int
	Err        error
}

type TickReport struct {
	Promoted   []ItemResult
	Dispatched []channel.Result
	Requeued   int64
	// Errors holds step-level failures; per-item failures stay in the slices.
	Errors []error
}

func (r TickReport) Sent() int {
	n := 0
	for _, d := range r.Dispatched {
		if d.OK() {
			n++
		}
	}
	return n
}

func (r TickReport) Failed() int { return len(r.Dispatched) - r.Sent() }

// Tick runs one scheduling pass at now: promote due campaigns, drain pending
// deliveries, then requeue stale transient failures when enabled. A failing
// step is logged and the next step still runs.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) TickReport {
	start := time.Now()
	var rep TickReport

	promoted, err := s.PromoteDue(ctx, now)
	if err != nil {
		rep.Errors = append(rep.Errors, err)
	}
	rep.Promoted = promoted

	dispatched, err := s.DrainPending(ctx, now)
	if err != nil {
		rep.Errors = append(rep.Errors, err)
	}
	rep.Dispatched = dispatched

	if s.opts.AutoRequeue {
		n, err := s.RequeueFailed(ctx, RequeueRequest{
			Limit:        s.opts.RequeueLimit,
			FailedBefore: now.Add(-s.opts.RequeueAfter),
		})
		if err != nil {
			rep.Errors = append(rep.Errors, err)
		}
		rep.Requeued = n
	}

	outcome := "ok"
	if len(rep.Errors) > 0 {
		outcome = "error"
		for _, err := range rep.Errors {
			logx.L().Errorw("scheduler_tick_step_failed", "err", err)
		}
	}
	metrics.SchedulerTicksTotal.WithLabelValues(outcome).Inc()
	metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())

	if len(rep.Promoted) > 0 || len(rep.Dispatched) > 0 || rep.Requeued > 0 {
		logx.L().Infow("scheduler_tick",
			"promoted", len(rep.Promoted),
			"dispatched", len(rep.Dispatched),
			"sent", rep.Sent(),
			"failed", rep.Failed(),
			"requeued", rep.Requeued,
			"duration_ms", time.Since(start).Milliseconds())
	}
	return rep
}

// PromoteDue launches every SCHEDULED campaign whose start date is at or
// before now. One campaign failing does not stop the others.
func (s *Scheduler) PromoteDue(ctx context.Context, now time.Time) ([]ItemResult, error) {
	due, err := s.deps.Store.DueCampaigns(ctx, now, s.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("due campaigns: %w", err)
	}

	out := make([]ItemResult, 0, len(due))
	for _, c := range due {
		r := ItemResult{TenantID: c.TenantID, CampaignID: c.ID}
		res, err := s.deps.Launcher.Launch(ctx, c.TenantID, c.ID, now)
		switch {
		case errors.Is(err, campaign.ErrCampaignNotLaunchable):
			// another launcher got there first
			r.Err = err
			metrics.CampaignPromotionsTotal.WithLabelValues("skipped").Inc()
		case err != nil:
			r.Err = err
			metrics.CampaignPromotionsTotal.WithLabelValues("error").Inc()
			logx.L().Errorw("campaign_promote_failed",
				"tenant_id", c.TenantID, "campaign_id", c.ID, "err", err)
		default:
			r.Enqueued = res.Enqueued
			metrics.CampaignPromotionsTotal.WithLabelValues("ok").Inc()
		}
		out = append(out, r)
	}
	return out, nil
}

// DrainPending dispatches up to BatchSize pending deliveries, oldest first,
// and writes exactly one terminal status per delivery. Every fetched
// delivery is attempted even if ctx is cancelled mid-batch.
func (s *Scheduler) DrainPending(ctx context.Context, now time.Time) ([]channel.Result, error) {
	batch, err := s.deps.Store.PendingDeliveries(ctx, now, s.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("pending deliveries: %w", err)
	}

	out := make([]channel.Result, 0, len(batch))
	for _, pd := range batch {
		res := s.deps.Dispatcher.Dispatch(ctx, pd)
		s.settle(ctx, res)
		out = append(out, res)
	}
	return out, nil
}

// settle records the outcome at the time it happened, on a context that
// outlives the tick's so the write is not lost after a send went out.
func (s *Scheduler) settle(ctx context.Context, res channel.Result) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	at := s.now()

	var err error
	outcome := "sent"
	if res.OK() {
		err = s.deps.Store.MarkDeliverySent(wctx, res.DeliveryID, res.MessageID, at)
	} else {
		outcome = "failed"
		err = s.deps.Store.MarkDeliveryFailed(wctx, res.DeliveryID, res.Reason(), res.Kind, at)
		logx.L().Infow("delivery_failed",
			"delivery_id", res.DeliveryID, "channel", res.Channel, "kind", res.Kind, "reason", res.Reason())
	}
	metrics.DeliveriesDispatchedTotal.WithLabelValues(res.Channel, outcome).Inc()
	if err != nil {
		logx.L().Errorw("delivery_settle_failed",
			"delivery_id", res.DeliveryID, "outcome", outcome, "err", err)
	}
}

type RequeueRequest struct {
	// TenantID scopes the requeue; empty means every tenant.
	TenantID         string
	Limit            int
	IncludePermanent bool
	FailedBefore     time.Time
}

// RequeueFailed resets failed deliveries to pending so a later tick retries
// them.
func (s *Scheduler) RequeueFailed(ctx context.Context, req RequeueRequest) (int64, error) {
	n, err := s.deps.Store.RequeueFailed(ctx, store.RequeueFilter{
		TenantID:         req.TenantID,
		Limit:            req.Limit,
		IncludePermanent: req.IncludePermanent,
		FailedBefore:     req.FailedBefore,
	})
	if err != nil {
		return 0, fmt.Errorf("requeue failed deliveries: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	metrics.DeliveriesRequeuedTotal.Add(float64(n))
	logx.L().Infow("deliveries_requeued",
		"tenant_id", req.TenantID, "count", n, "include_permanent", req.IncludePermanent)
	events.Record(ctx, s.deps.Sink, events.New(
		model.EventDeliveriesRequeued,
		"campaign_deliveries",
		req.TenantID,
		model.DeliveriesRequeued{Count: n, IncludePermanent: req.IncludePermanent},
		s.now(),
	))
	return n, nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	logx.L().Debugw("cron_"+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	logx.L().Errorw("cron_"+msg, append(kv, "err", err)...)
}
