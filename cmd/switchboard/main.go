package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/switchboard-simulator/internal/exchange"
	"github.com/signalsfoundry/switchboard-simulator/internal/logging"
	"github.com/signalsfoundry/switchboard-simulator/internal/sched"
	"github.com/signalsfoundry/switchboard-simulator/timectrl"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON session config (defaults apply when empty)")
	duration := flag.Duration("duration", 0, "override the configured session duration")
	tick := flag.Duration("tick", time.Second, "tick interval")
	seed := flag.Int64("seed", 0, "RNG seed; 0 derives one from the clock")
	accelerated := flag.Bool("accelerated", true, "run in accelerated mode (vs real-time)")
	pilot := flag.Bool("autopilot", true, "answer calls with the built-in automatic operator")
	flag.Parse()

	_ = godotenv.Load()
	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := exchange.LoadConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *duration > 0 {
		cfg.SessionDuration = exchange.Duration(*duration)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	cfg.TickInterval = exchange.Duration(*tick)

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	start := time.Now().UTC()
	tc := timectrl.NewTimeController(start, *tick, mode)
	scheduler := sched.NewEventScheduler(tc)

	opts := []exchange.Option{exchange.WithLogger(log)}
	var operator *autopilot
	if *pilot {
		operator = &autopilot{}
		opts = append(opts, exchange.WithListener(operator))
	}

	session, err := exchange.NewSession(cfg, scheduler, opts...)
	if err != nil {
		log.Error(ctx, "failed to build session", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if operator != nil {
		operator.bind(session)
	}

	tc.AddListener(func(time.Time) {
		session.Pump()
		if operator != nil {
			operator.Flush()
		}
	})

	log.Info(ctx, "starting session",
		logging.Duration("duration", cfg.SessionDuration.Std()),
		logging.Duration("tick", *tick),
		logging.Int("mode", int(mode)),
	)

	session.Start()
	// A couple of spare ticks so the final countdown tick lands.
	done := tc.Start(cfg.SessionDuration.Std() + 2*(*tick))
	<-done

	summary, ended := session.Summary()
	if !ended {
		log.Warn(ctx, "session did not finish within the run window")
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	os.Stdout.Write(append(out, '\n'))
}
