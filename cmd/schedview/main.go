package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"schedview/internal/app"
	"schedview/internal/config"
	"schedview/internal/layout"
	appLog "schedview/internal/log"
	"schedview/internal/scheduler"
	"schedview/internal/web"
)

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	outDir     string
	date       string
	exportPath string
	once       bool
}

func main() {
	appLog.Info("schedview starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if lvl, err := appLog.ParseLevel(conf.LogLevel); err == nil {
		appLog.SetLevel(lvl)
	} else {
		appLog.Warn("unknown log level; keeping default", "log_level", conf.LogLevel)
	}

	// CLI flags override config file values if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.outDir != "" {
		conf.OutputDir = flags.outDir
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"view", conf.View,
		"style", conf.Style,
		"refresh", conf.RefreshCron,
		"output_dir", conf.OutputDir,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	a, err := app.New(conf)
	if err != nil {
		appLog.Error("failed to build scheduler", err)
		os.Exit(1)
	}
	if flags.date != "" {
		if err := setDate(a, conf, flags.date); err != nil {
			appLog.Error("invalid -date", err, "date", flags.date)
			os.Exit(2)
		}
	}

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

	runCycle(ctx, a, conf)

	if flags.exportPath != "" {
		if err := a.ExportICS(flags.exportPath); err != nil {
			appLog.Error("ics export failed", err, "path", flags.exportPath)
		}
	}
	if flags.once {
		appLog.Info("schedview exiting (once)")
		return
	}

	loc, _ := conf.Location()
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := c.AddFunc(conf.RefreshCron, func() { runCycle(ctx, a, conf) }); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()

	serverDone := make(chan struct{})
	if conf.Listen != "" {
		srv, err := web.NewServer(conf, a)
		if err != nil {
			appLog.Error("failed to build HTTP server", err)
			os.Exit(1)
		}
		_ = a.View(func(s *scheduler.Scheduler) error {
			s.OnRepaint(func(*layout.Frame) { srv.Invalidate() })
			return nil
		})
		go func() {
			defer close(serverDone)
			if err := web.Serve(ctx, srv); err != nil {
				appLog.Error("HTTP server stopped", err)
				cancel()
			}
		}()
	} else {
		close(serverDone)
	}

	<-ctx.Done()

	// Wait for a running refresh to finish before exiting.
	<-c.Stop().Done()
	<-serverDone
	appLog.Info("schedview exiting")
}

// runCycle refreshes every source and renders the pages. Failures are
// logged; the previous pages stay on disk.
func runCycle(ctx context.Context, a *app.App, conf *config.Config) {
	if err := a.Refresh(ctx); err != nil {
		appLog.Error("refresh failed", err)
	}
	if _, err := a.Render(conf.OutputDir); err != nil {
		appLog.Error("render failed", err, "dir", conf.OutputDir)
	}
}

func setDate(a *app.App, conf *config.Config, value string) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	return a.SetDate(t)
}

// cronLogger routes cron's own logging through appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/schedview/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.outDir, "out", "", "Directory for rendered pages (overrides config if set)")
	flag.StringVar(&cfg.date, "date", "", "Show the period containing this date (YYYY-MM-DD) instead of today")
	flag.StringVar(&cfg.exportPath, "export", "", "Also write the loaded schedules to this ICS file")
	flag.BoolVar(&cfg.once, "once", false, "Run one fetch+render cycle and exit")

	flag.Parse()

	return cfg
}
