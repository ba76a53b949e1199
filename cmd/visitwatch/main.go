package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vincentbai/visitwatch/internal/config"
	"github.com/vincentbai/visitwatch/internal/daemon"
	"github.com/vincentbai/visitwatch/internal/dedup"
	"github.com/vincentbai/visitwatch/internal/logging"
	"github.com/vincentbai/visitwatch/internal/monitor"
	"github.com/vincentbai/visitwatch/internal/server"
	"github.com/vincentbai/visitwatch/internal/sink"
	"github.com/vincentbai/visitwatch/internal/source"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "visitwatch",
	Short: "Browser visit monitor daemon",
	Long: `visitwatch periodically inspects the history stores of the browsers
installed on this machine and records every newly observed URL to a
durable CSV log, newest first.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor in the foreground",
	RunE:  runMonitor,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitor in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startDaemon(cmd)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := daemon.Stop(cfg.PIDPath); err != nil {
			return err
		}
		cmd.Println("visitwatch stopped")
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		// A monitor that is not running is fine; restart still starts one.
		if err := daemon.Stop(cfg.PIDPath); err == nil {
			time.Sleep(2 * time.Second)
		}
		return startDaemon(cmd)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the monitor is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if pid, ok := daemon.Running(cfg.PIDPath); ok {
			cmd.Printf("visitwatch is running (pid %d)\n", pid)
			return nil
		}
		cmd.Println("visitwatch is not running")
		return nil
	},
}

// startDaemon re-execs this binary detached, running the foreground verb.
func startDaemon(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if pid, ok := daemon.Running(cfg.PIDPath); ok {
		return fmt.Errorf("already running with pid %d", pid)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	childArgs := []string{"run"}
	if cfgPath != "" {
		childArgs = append(childArgs, "--config", cfgPath)
	}
	if verbose {
		childArgs = append(childArgs, "--verbose")
	}

	child := exec.Command(executable, childArgs...)
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	cmd.Printf("visitwatch started (pid %d)\n", child.Process.Pid)
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup failures from here to the loop are fatal; nothing past them is
	// allowed to be.
	logger, err := logging.New(cfg.LogPath, verbose)
	if err != nil {
		return fmt.Errorf("open operational log: %w", err)
	}
	defer logger.Sync()

	if err := daemon.Acquire(cfg.PIDPath); err != nil {
		return fmt.Errorf("acquire pid file: %w", err)
	}
	defer daemon.Release(cfg.PIDPath)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	registry, err := source.NewRegistry(cfg.Sources, cfg.RowCap, home)
	if err != nil {
		return fmt.Errorf("build source registry: %w", err)
	}

	recordLog := sink.New(cfg.CSVPath, logger)
	if err := recordLog.Init(); err != nil {
		return fmt.Errorf("init record log: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.New()
	logger.Info("visitwatch starting",
		zap.String("run_id", runID.String()),
		zap.Duration("interval", cfg.Interval),
		zap.String("record_log", cfg.CSVPath),
		zap.String("listen", cfg.ListenAddress),
	)

	seen := dedup.NewSet()
	srv := server.NewServer(server.Stats{
		RunID:     runID,
		StartedAt: time.Now(),
		Interval:  cfg.Interval,
		Seen:      seen,
		Records:   recordLog.Records,
	}, cfg.ListenAddress)
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.Error("status server failed", zap.Error(err))
		}
	}()

	mon := monitor.New(registry, seen, recordLog, logger, cfg.Interval, cfg.SourceTimeout)
	mon.Run(ctx)

	logger.Info("visitwatch stopped")
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config (built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd, startCmd, stopCmd, restartCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
