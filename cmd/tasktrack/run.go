package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/tasktrack/internal/activity"
	"github.com/actionsum/tasktrack/internal/backend"
	"github.com/actionsum/tasktrack/internal/config"
	"github.com/actionsum/tasktrack/internal/control"
	"github.com/actionsum/tasktrack/internal/daemon"
	"github.com/actionsum/tasktrack/internal/metrics"
	"github.com/actionsum/tasktrack/pkg/detector"
	"github.com/actionsum/tasktrack/pkg/window"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracker process",
	Long: `Run the tracker process: the input source, the minute sampler, block
delivery and the local command surface used by start, pause, resume, stop,
status and watch.`,
	RunE: runTracker,
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Terminate a running tracker process",
	RunE:  runShutdown,
}

var (
	runDetach         bool
	runControlPort    int
	runMinuteInterval time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(shutdownCmd)

	runCmd.Flags().BoolVarP(&runDetach, "detach", "d", false, "Run in the background and log to the daemon log file")
	runCmd.Flags().IntVar(&runControlPort, "control-port", 0, "Command surface port (overrides config)")
	runCmd.Flags().DurationVar(&runMinuteInterval, "minute-interval", 0, "Time between minute samples (overrides config)")
}

func runTracker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("control-port") {
		if err := cfg.SetControlPort(runControlPort); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("minute-interval") {
		if err := cfg.SetMinuteInterval(runMinuteInterval); err != nil {
			return err
		}
	}

	dm := daemon.New(cfg.Daemon.PIDFile)

	if runDetach && !daemon.IsChild() {
		running, pid, err := dm.IsRunning()
		if err != nil {
			return fmt.Errorf("failed to check tracker status: %w", err)
		}
		if running {
			return fmt.Errorf("%w (PID: %d)", daemon.ErrAlreadyRunning, pid)
		}
		pid, err = daemon.Detach()
		if err != nil {
			return err
		}
		fmt.Printf("Tracker started (PID: %d)\n", pid)
		fmt.Printf("Control surface: http://%s\n", cfg.ControlAddr())
		fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)
		return nil
	}

	if daemon.IsChild() {
		if closer, err := daemon.RedirectLog(cfg.Daemon.LogFile); err == nil {
			defer closer.Close()
		}
	}

	if err := dm.Acquire(); err != nil {
		return err
	}
	defer dm.RemovePID()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveTracker(ctx, cfg)
}

func serveTracker(ctx context.Context, cfg *config.Config) error {
	det := detector.New(cfg.Tracker.InputPollInterval)
	defer det.Close()
	log.Printf("Window detector initialized: %s (available: %v)", det.GetDisplayServer(), det.IsAvailable())

	recorder, err := metrics.New(ctx, metrics.Config{
		Enabled:  cfg.Metrics.Enabled,
		Endpoint: cfg.Metrics.Endpoint,
		Insecure: cfg.Metrics.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer recorder.Shutdown(context.Background())

	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	delivery := activity.NewDelivery(client, client, recorder, activity.DeliveryConfig{
		Timeout:     cfg.Tracker.DeliveryTimeout,
		CaptureWait: cfg.Tracker.CaptureTimeout,
	})

	rec := activity.NewRecorder(activity.NewWindowSampler(det), activity.NewScreenshotPicker(det), nil)
	session := activity.NewSession(activity.SessionConfig{
		MinuteInterval: cfg.Tracker.MinuteInterval,
		Scorer:         activity.NewScorer(cfg.Tracker.MaxExpectedInput),
	}, rec, delivery, activity.ObserverFunc(logFinalized))

	go func() {
		err := det.WatchInput(ctx, func(k window.InputKind) {
			session.HandleInput(inputKind(k))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Input source stopped: %v", err)
		}
	}()

	srv, err := control.NewServer(cfg.ControlAddr(), session)
	if err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	log.Println("Starting tasktrack tracker...")
	log.Printf("Configuration:\n%s", cfg.String())

	select {
	case <-ctx.Done():
		log.Println("Received shutdown signal")
	case err := <-serveErr:
		log.Printf("Control surface stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Tracker.CaptureTimeout+cfg.Tracker.DeliveryTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down control surface: %v", err)
	}
	if err := session.Shutdown(shutdownCtx); err != nil {
		log.Printf("Pending deliveries abandoned: %v", err)
	}

	log.Println("Tracker stopped")
	return nil
}

func inputKind(k window.InputKind) activity.InputKind {
	if k == window.KeyboardInput {
		return activity.InputKeyboard
	}
	return activity.InputMouse
}

// logFinalized logs the pushes that close a block; per-event pushes are
// only visible through status and watch.
func logFinalized(s activity.LiveStats) {
	if s.ActivityPercentage != nil {
		log.Printf("Block finalized: activity %d%% (mouse %d, keyboard %d)", *s.ActivityPercentage, s.MouseTotal, s.KeyboardTotal)
	}
}

func runShutdown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pid, err := daemon.New(cfg.Daemon.PIDFile).Stop()
	if err != nil {
		return err
	}
	fmt.Printf("Sent shutdown to tracker (PID: %d)\n", pid)
	return nil
}
