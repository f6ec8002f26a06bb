// Package main is the entry point for querystorm.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/querystorm/internal/app"
	"github.com/dshills/querystorm/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

type flags struct {
	opts     app.Options
	console  string
	logFile  string
	logLevel string
	addr     string
	backend  string
}

func run() int {
	f := parseFlags()

	if f.console != "" {
		// The terminal owns stderr while the editor is up
		f.opts.LogOutput = io.Discard
		if f.logFile != "" {
			file, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: open log file: %v\n", err)
				return 1
			}
			defer file.Close()
			f.opts.LogOutput = file
		}
	}

	application, err := app.New(f.opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if f.console != "" {
		screen, err := tcell.NewScreen()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
			return 1
		}
		if err := application.RunTUI(ctx, f.console, screen); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := application.Serve(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() flags {
	var f flags
	var showVersion bool

	flag.StringVar(&f.opts.ConfigPath, "config", "", "Path to configuration file (TOML or YAML)")
	flag.StringVar(&f.opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&f.logFile, "log-file", "", "Write logs to this file in terminal mode")
	flag.StringVar(&f.addr, "addr", "", "HTTP listen address")
	flag.StringVar(&f.backend, "store", "", "Store backend (sqlite, redis, memory)")
	flag.StringVar(&f.console, "tui", "", "Edit the given console in the terminal instead of serving HTTP")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "querystorm - versioned query consoles with AI suggestions\n\n")
		fmt.Fprintf(os.Stderr, "Usage: querystorm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  querystorm -c querystorm.toml      Serve the HTTP API\n")
		fmt.Fprintf(os.Stderr, "  querystorm -tui reports            Edit console \"reports\" in the terminal\n")
		fmt.Fprintf(os.Stderr, "  querystorm -store memory -addr :9000\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("querystorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	overrides := make(map[string]any)
	if f.logLevel != "" {
		if _, ok := logging.ParseLevel(f.logLevel); !ok {
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", f.logLevel)
			os.Exit(1)
		}
		overrides["logging.level"] = f.logLevel
	}
	if f.addr != "" {
		overrides["server.addr"] = f.addr
	}
	if f.backend != "" {
		overrides["store.backend"] = f.backend
	}
	f.opts.Overrides = overrides

	return f
}
