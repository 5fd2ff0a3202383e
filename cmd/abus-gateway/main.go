// Command abus-gateway bridges SCGI/HTTP/WebSocket clients to a fleet of
// ABUS controllers reachable over UDP and/or CAN.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/natefinch/lumberjack"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/cybroplc/abus-gateway/internal/gateway"
	"github.com/cybroplc/abus-gateway/pkg/config"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

// Exit codes, grounded on spec.md's CLI wrapper contract.
const (
	exitOK            = 0
	exitGeneric       = 1
	exitConfigMissing = 2
	exitPortInUse     = 5
	exitInterrupted   = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = pflag.StringP("config", "c", "./abus-gateway.ini", "path to the gateway's INI configuration file")
		logLevel   = pflag.String("log-level", "", "override DEBUGLOG.verbose_level from the config file")
		showVer    = pflag.BoolP("version", "v", false, "print the version and exit")
	)
	pflag.Parse()

	if *showVer {
		fmt.Println(version)
		return exitOK
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "error: config file %s not found\n", *configPath)
			return exitConfigMissing
		}
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		return exitGeneric
	}

	setupLogging(cfg.DebugLog, cfg.Locations, *logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := gateway.New(ctx, cfg, *configPath, version)
	if err != nil {
		log.WithError(err).Error("failed to build gateway")
		return exitGeneric
	}
	defer gw.Close()

	err = gw.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		if ctx.Err() != nil {
			log.Info("shutting down on signal")
			return exitInterrupted
		}
		return exitOK
	case errors.Is(err, syscall.EADDRINUSE):
		log.WithError(err).Error("address already in use")
		return exitPortInUse
	default:
		log.WithError(err).Error("gateway stopped")
		return exitGeneric
	}
}

// setupLogging configures logrus the way the gateway's DEBUGLOG section
// describes: a verbosity level, and optional rotation to <log_dir>/scgi.log
// via lumberjack rather than logrus's own (nonexistent) rotation support.
// overrideLevel, if non-empty, takes precedence over the config file.
func setupLogging(cfg config.DebugLogConfig, locations config.LocationsConfig, overrideLevel string) {
	level := cfg.VerboseLevel
	if overrideLevel != "" {
		level = overrideLevel
	}
	if !cfg.Enabled {
		log.SetLevel(log.ErrorLevel)
	} else if parsed, err := log.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if cfg.LogToFile {
		log.SetOutput(&lumberjack.Logger{
			Filename:   filepath.Join(locations.LogDir, "scgi.log"),
			MaxSize:    cfg.MaxFileSizeKB / 1024,
			MaxBackups: cfg.MaxBackupCount,
			Compress:   true,
		})
	}
}
