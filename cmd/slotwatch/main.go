package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/config"
	"github.com/hamed0406/slotwatch/internal/httpapi"
	"github.com/hamed0406/slotwatch/internal/logging"
	"github.com/hamed0406/slotwatch/internal/notify"
	"github.com/hamed0406/slotwatch/internal/probe"
	"github.com/hamed0406/slotwatch/internal/repo/memory"
	"github.com/hamed0406/slotwatch/internal/scheduler"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "slotwatch",
		Short: "Watch interview appointment slots and alert when one opens up",
		Long: "slotwatch polls the appointment scheduler for each location, prints the result " +
			"and plays a sound when a slot falls inside the configured window.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runWatch,
	}
	root.PersistentFlags().String("config", "", "Optional YAML config file")
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(newPreflightCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: file,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := notify.NewConsole(cmd.OutOrStdout())
	if err := console.Println(cfg.WindowDesc); err != nil {
		return err
	}

	alerts := notify.Multi{notify.NewSound(cfg.SoundPath, cfg.SoundPlayer)}
	if slack := notify.NewSlack(cfg.SlackWebhook, cfg.RequestTimeout); slack != nil {
		alerts = append(alerts, slack)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	fetcher := probe.NewHTTPFetcher(cfg.Endpoint, cfg.RequestTimeout, cfg.TimeZone)
	fetcher.Logger = logger

	store := memory.New(cfg.Locations)
	w := scheduler.NewWatcher(
		logger,
		fetcher,
		console,
		alerts,
		store,
		scheduler.WatchConfig{
			Locations:      cfg.Locations,
			Window:         cfg.Window,
			Interval:       cfg.Interval,
			RequestTimeout: cfg.RequestTimeout,
			FirstSlotOnly:  cfg.FirstSlotOnly,
		},
		reg,
	)

	if cfg.StatusAddr != "" {
		api := httpapi.NewServer(logger, store, cfg.Window, cfg.Locations,
			func() string { return w.State().String() }, reg)
		hs := api.Start(cfg.StatusAddr)
		defer shutdown(logger, hs)
	}

	if err := w.Run(ctx); err != nil {
		return err
	}
	return console.Println("\nStopping appointment checker...")
}

func shutdown(logger *zap.Logger, hs *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		logger.Warn("status_shutdown_error", zap.Error(err))
	}
}
