package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/credview/credview/cache"
	"github.com/credview/credview/outputformats"
	"github.com/credview/credview/probe"
)

var globalLogger *Logger

func main() {
	var config struct {
		logLevel      string
		showTimestamp bool
		filterConfig  FilterConfig

		input  string
		follow bool

		workers      int
		cacheBackend string
		cacheSize    int64

		format   string
		logDir   string
		dbPath   string
		hostname string
	}

	rootCmd := &cobra.Command{
		Use:   "credview",
		Short: "Privilege transition monitor for process execution",
		Long: `credview replays process execution streams through the committing-creds
enrichment hook: it flags setuid/setgid transitions and deleted-but-running
binaries, caches the correlation records by thread id, and emits the records
a downstream event assembler would join.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.input == "" {
				return fmt.Errorf("an input event stream is required (--input)")
			}

			logger := NewLogger(ParseLogLevel(config.logLevel), config.showTimestamp)
			globalLogger = logger

			sessionUID := generateSessionUID()
			logger.Info("main", "session %s starting", sessionUID)

			hostname := config.hostname
			if hostname == "" {
				hostname, _ = os.Hostname()
			}

			// Correlation cache shared by all hook workers
			joinedCache, err := cache.New(config.cacheBackend, config.cacheSize)
			if err != nil {
				return fmt.Errorf("failed to create cache: %v", err)
			}
			defer joinedCache.Close()

			hookProbe, err := probe.New(probe.Config{
				Workers: config.workers,
				Cache:   joinedCache,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create probe: %v", err)
			}

			var formatter outputformats.EventFormatter
			switch config.format {
			case "text":
				formatter, err = outputformats.NewTextFormatter(config.logDir, sessionUID)
			case "json":
				formatter = outputformats.NewJSONFormatter(os.Stdout, hostname, sessionUID)
			case "sqlite":
				formatter, err = outputformats.NewSQLiteFormatter(config.dbPath, hostname, sessionUID)
			default:
				return fmt.Errorf("unknown output format %q", config.format)
			}
			if err != nil {
				return fmt.Errorf("failed to create formatter: %v", err)
			}
			if err := formatter.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize formatter: %v", err)
			}
			defer formatter.Close()

			engine := NewFilterEngine(config.filterConfig)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			replayer := NewReplayer(hookProbe, joinedCache, formatter, engine, logger)
			replayer.Start()

			done := make(chan struct{})
			go monitorResources(done, joinedCache, hookProbe)

			logger.Info("main", "replaying %s across %d workers (cache=%s, format=%s)",
				config.input, hookProbe.Workers(), config.cacheBackend, config.format)

			err = replayer.ReplayFile(ctx, config.input, config.follow)

			replayer.Stop()
			close(done)

			stats := hookProbe.Stats()
			logger.Info("main", "done: %d invocations, %d commits (%d setuid/setgid, %d deleted binaries), %d aborts",
				stats.Invocations, stats.Commits, stats.SecureExecs, stats.Unlinked, stats.Aborts)

			return err
		},
	}

	// Input
	rootCmd.Flags().StringVar(&config.input, "input", "", "JSONL exec event stream to replay")
	rootCmd.Flags().BoolVar(&config.follow, "follow", false, "Keep replaying events appended to the input file")

	// Hook configuration
	rootCmd.Flags().IntVar(&config.workers, "workers", 4, "Number of hook workers (one scratch region each)")
	rootCmd.Flags().StringVar(&config.cacheBackend, "cache", "memory", "Correlation cache backend (memory/ttl/ristretto/ebpf)")
	rootCmd.Flags().Int64Var(&config.cacheSize, "cache-size", 32768, "Maximum cached correlation records")

	// Emission filters
	rootCmd.Flags().StringSliceVar(&config.filterConfig.CommandNames, "comm", nil, "Emit only these command names")
	rootCmd.Flags().StringSliceVar(&config.filterConfig.ExcludeComms, "exclude-comm", nil, "Command name prefixes to drop")
	rootCmd.Flags().BoolVar(&config.filterConfig.OnlyPrivileged, "only-privileged", false, "Emit only setuid/setgid commits")

	// Output
	rootCmd.Flags().StringVar(&config.format, "format", "text", "Output format (text/json/sqlite)")
	rootCmd.Flags().StringVar(&config.logDir, "log-dir", "./logs", "Directory for text output")
	rootCmd.Flags().StringVar(&config.dbPath, "db", "./credview.db", "Path for sqlite output")
	rootCmd.Flags().StringVar(&config.hostname, "hostname", "", "Hostname to attach to emitted records")

	// Diagnostics
	rootCmd.Flags().StringVar(&config.logLevel, "log-level", "info", "Console log level (error/warning/info/debug/trace)")
	rootCmd.Flags().BoolVar(&config.showTimestamp, "log-timestamp", false, "Show timestamps on console logs")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func generateSessionUID() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(bytes)
}
