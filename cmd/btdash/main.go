package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bulktracker/btdash/internal/config"
	"github.com/bulktracker/btdash/internal/server"
	"github.com/bulktracker/btdash/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "check-config":
		err = runCheckConfig(os.Args[2:], os.Stdout)
	case "version":
		fmt.Println(version.Current())
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "btdash: %v\n", err)
		os.Exit(1)
	}
}

type commonFlags struct {
	config   string
	logLevel string
}

func newFlagSet(name string) (*pflag.FlagSet, *commonFlags) {
	f := &commonFlags{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVarP(&f.config, "config", "c", os.Getenv("BTDASH_CONFIG"), "path to a YAML or JSONC config file")
	fs.StringVar(&f.logLevel, "log-level", envOrDefault("BTDASH_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	return fs, f
}

func runServe(ctx context.Context, args []string) error {
	fs, flags := newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}
	initLogging(flags.logLevel)
	cfg, err := config.LoadEnv(flags.config)
	if err != nil {
		return err
	}
	return server.Run(ctx, cfg)
}

func runCheckConfig(args []string, out io.Writer) error {
	fs, flags := newFlagSet("check-config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	initLogging(flags.logLevel)
	cfg, err := config.LoadEnv(flags.config)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "config ok: upstream=%s base_prefix=%s addr=%s\n", cfg.Upstream.URL, cfg.Server.BasePrefix, cfg.Server.Addr)
	return nil
}

func initLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintf(os.Stderr, `btdash - BulkTracker dashboard

Usage:
  btdash <command> [flags]

Commands:
  serve         Serve the dashboard
  check-config  Load and validate the configuration, then exit
  version       Print the version
  help          Show this help

Flags (serve, check-config):
  -c, --config     Config file (.yaml, .yml, .json, .jsonc); env BTDASH_CONFIG
      --log-level  debug, info, warn or error; env BTDASH_LOG_LEVEL
`)
}
