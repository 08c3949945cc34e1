package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/switchboard-simulator/internal/exchange"
	"github.com/signalsfoundry/switchboard-simulator/internal/gateway"
	"github.com/signalsfoundry/switchboard-simulator/internal/logging"
	"github.com/signalsfoundry/switchboard-simulator/internal/observability"
	"github.com/signalsfoundry/switchboard-simulator/internal/sched"
	"github.com/signalsfoundry/switchboard-simulator/timectrl"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP address for the operator gateway")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	configPath := flag.String("config", "", "path to a JSON session config (defaults apply when empty)")
	seed := flag.Int64("seed", 0, "RNG seed; 0 derives one from the clock")
	flag.Parse()

	_ = godotenv.Load()
	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSwitchboardCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	cfg, err := exchange.LoadConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	start := time.Now().UTC()
	tc := timectrl.NewTimeController(start, cfg.TickInterval.Std(), timectrl.RealTime)
	scheduler := sched.NewEventScheduler(tc)

	gw := gateway.New(log)
	session, err := exchange.NewSession(cfg, scheduler,
		exchange.WithLogger(log),
		exchange.WithListener(gw),
		exchange.WithMetricsRecorder(collector),
	)
	if err != nil {
		log.Error(ctx, "failed to build session", logging.String("error", err.Error()))
		os.Exit(1)
	}
	gw.Bind(session)

	tc.AddListener(func(time.Time) { session.Pump() })

	mux := http.NewServeMux()
	gw.Routes(mux)
	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		log.Info(ctx, "serving operator gateway", logging.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "gateway server exited", logging.String("error", err.Error()))
		}
	}()

	session.Start()
	done := tc.Start(cfg.SessionDuration.Std() + 2*cfg.TickInterval.Std())

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	select {
	case <-done:
		log.Info(ctx, "session finished")
	case <-stopCtx.Done():
		log.Info(ctx, "shutting down on interrupt")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.SwitchboardCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
