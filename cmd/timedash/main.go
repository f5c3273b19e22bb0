package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"timedash/internal/capture"
	"timedash/internal/config"
	"timedash/internal/kv"
	appLog "timedash/internal/log"
	"timedash/internal/store"
	"timedash/internal/tasks"
	"timedash/internal/timer"
	"timedash/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	appLog.Info("timedash starting", "version", "0.1.0-dev")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone; falling back to Local", err, "timezone", conf.Timezone)
		loc = time.Local
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"window", conf.WindowStartHour,
		"window_end", conf.WindowEndHour,
		"hour_pixels", conf.HourPixels,
		"refresh_cron", conf.RefreshCron,
		"data_dir", conf.DataDir,
		"once", flags.once,
	)

	kvs := kv.NewFileStore(filepath.Join(conf.DataDir, "kv"))

	events := store.New(kvs, conf.GridMetrics(), loc)
	taskStore := tasks.New(kvs)
	focus := timer.New(kvs)

	srv := web.NewServer(conf, kvs, events, taskStore, focus, loc)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	previewPath := filepath.Join(conf.DataDir, "preview.png")
	capturePreview := func() {
		err := capture.CaptureDashboardPNG(ctx, capture.CaptureOptions{
			URL:        "http://" + conf.Listen + "/",
			OutputPath: previewPath,
		})
		if err != nil {
			appLog.Error("preview capture failed", err, "output", previewPath)
			return
		}
		appLog.Info("preview captured", "output", previewPath)
	}

	if flags.once {
		// Single-shot mode: serve in the background just long enough to
		// capture one preview, then exit.
		go func() {
			if err := web.StartServer(ctx, srv); err != nil {
				appLog.Error("HTTP server failed", err)
			}
		}()
		time.Sleep(500 * time.Millisecond)
		capturePreview()
		appLog.Info("timedash exiting")
		return
	}

	// Focus timer countdown runs server-side on a 1-second interval.
	go srv.RunTicker(ctx)

	// Periodic preview capture on the configured cron schedule.
	if conf.RefreshCron != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(conf.RefreshCron, capturePreview); err != nil {
			appLog.Error("invalid refresh cron expression", err, "refresh_cron", conf.RefreshCron)
		} else {
			scheduler.Start()
			defer scheduler.Stop()
		}
	}

	go func() {
		if err := web.StartServer(ctx, srv); err != nil {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	// Give in-flight handlers a moment to finish.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("timedash exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./timedash.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Serve briefly, capture one preview PNG, and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
