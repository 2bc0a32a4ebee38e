package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/walidhousni/glavito-sub011/internal/events"
	"github.com/walidhousni/glavito-sub011/internal/launch"
	"github.com/walidhousni/glavito-sub011/internal/lease"
	"github.com/walidhousni/glavito-sub011/internal/store"
	"github.com/walidhousni/glavito-sub011/pkg/config"
	"github.com/walidhousni/glavito-sub011/pkg/db"
	"github.com/walidhousni/glavito-sub011/pkg/logx"
	"github.com/walidhousni/glavito-sub011/pkg/metrics"
	"github.com/walidhousni/glavito-sub011/pkg/rmq"
	"github.com/walidhousni/glavito-sub011/services/campaign-scheduler/scheduler"
)

func main() {
	logx.Init()
	defer logx.Sync()

	config.MustLoadScheduler()
	cfg := config.Scheduler

	sqlDB, err := db.Open(cfg.DBDSN)
	if err != nil {
		logx.L().Fatalw("db_open_error", "error", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logx.L().Warnw("db_close_error", "error", err)
		}
	}()
	st := store.New(sqlDB)

	sinks := events.Multi{events.StoreSink{Store: st}}
	if cfg.RMQURL != "" {
		pub, err := rmq.NewPublisher(cfg.RMQURL, cfg.EventsQueue)
		if err != nil {
			logx.L().Fatalw("rmq_init_error", "error", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logx.L().Warnw("rmq_publisher_close_error", "error", err)
			}
		}()
		sinks = append(sinks, events.PublisherSink{Pub: pub})
	}

	var locker lease.Locker = lease.Noop{}
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := lease.Dial(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logx.L().Fatalw("redis_init_error", "error", err)
		}
		defer rdb.Close()
		locker = lease.NewRedisLocker(rdb)
	}

	sched := scheduler.New(scheduler.Deps{
		Store:      st,
		Launcher:   launch.New(st, sinks),
		Dispatcher: newDispatcher(cfg),
		Locker:     locker,
		Sink:       sinks,
	}, scheduler.Options{
		Interval:     cfg.TickInterval,
		BatchSize:    cfg.BatchSize,
		LeaseTTL:     cfg.LeaseTTL,
		AutoRequeue:  cfg.AutoRequeue,
		RequeueLimit: cfg.RequeueLimit,
		RequeueAfter: cfg.RequeueAfter,
	})
	if err := sched.Start(); err != nil {
		logx.L().Fatalw("scheduler_start_error", "error", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logx.L().Infow("metrics_listen_start", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.L().Errorw("metrics_server_error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logx.L().Infow("signal_received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	select {
	case <-sched.Stop().Done():
		logx.L().Infow("scheduler_stopped")
	case <-ctx.Done():
		logx.L().Warnw("scheduler_stop_timeout")
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		logx.L().Errorw("metrics_shutdown_error", "error", err)
	}

	logx.L().Infow("campaign-scheduler stopped gracefully")
}
