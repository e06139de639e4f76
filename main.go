// agent is a distributed worker in an mquery-style YARA-over-index search
// cluster. It performs two phases of work per job: fan the search out
// across index datasets, then pull matching files off the resulting
// iterator and scan them against the job's compiled YARA ruleset.
//
// Usage:
//
//	agent [flags] [group_id]
//
// Flags:
//
//	-config string    Path to configuration file (default: ~/.config/mquery-agent/config.yaml)
//	-verbose          Enable verbose logging
//	-version          Print version and exit
//
// group_id is a single positional argument selecting which agent group
// this process serves; it defaults to "default" and overrides the
// config file's group_id when given.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mquery/agent/agent"
	"github.com/mquery/agent/backend"
	"github.com/mquery/agent/config"
	"github.com/mquery/agent/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("mquery-agent %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	if *configPath == "" {
		home, _ := os.UserHomeDir()
		*configPath = filepath.Join(home, ".config", "mquery-agent", "config.yaml")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	groupID := cfg.GroupID
	if flag.NArg() > 0 {
		groupID = flag.Arg(0)
	}

	logger, closeLog, err := setupLogger(cfg.LogFile, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	rdb := store.NewRedisStore(cfg.Store.Addr, cfg.Store.Password, cfg.Store.DB)
	defer rdb.Close()

	backendClient := backend.NewHTTPClient(
		cfg.Backend.URL,
		cfg.Backend.MaxRetries,
		time.Duration(cfg.Backend.TimeoutSecs)*time.Second,
		logger,
	)

	a, err := agent.New(cfg, groupID, rdb, backendClient, logger)
	if err != nil {
		logger.Error("failed to build agent", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("starting agent", "group_id", groupID, "backend", cfg.Backend.URL, "store", cfg.Store.Addr)

	if err := a.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("agent exited with error", "error", err)
		os.Exit(1)
	}
}

// setupLogger builds a slog.Logger writing to stderr and, if logFile is
// non-empty, also to that file. The returned close func must be called
// before process exit to flush and release the file handle.
func setupLogger(logFile string, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if logFile == "" {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return logger, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	multiWriter := io.MultiWriter(os.Stderr, f)
	logger := slog.New(slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}
