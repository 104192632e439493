package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cansim/cansim/internal/config"
	"github.com/cansim/cansim/internal/logging"
	intOtel "github.com/cansim/cansim/internal/otel"

	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// version info - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	AppName string = "cansim"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	LogFilePath string
	LogFile     *os.File
)

// setup loads config and initializes logging and telemetry.
func setup() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, viper.GetString("logLevel"), "", nil)
	Logger = SlogManager.Logger()

	if err := config.Load("."); err != nil {
		config.SetDefaults()
		Logger.Warn("Failed to load config, using defaults", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	// create logs dir if it doesn't exist
	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file", "error", err, "path", LogFilePath)
	}

	// Initialize OTel provider if enabled (after log file is created)
	if viper.GetBool("otel.enabled") {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  AppName,
			BatchTimeout: 5 * time.Second,
			LogWriter:    LogFile,
			Endpoint:     viper.GetString("otel.endpoint"),
			Insecure:     viper.GetBool("otel.insecure"),
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath)
		}
	}

	// Re-setup logging with file output, optional GELF and optional OTel
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	gelfAddress := ""
	if viper.GetBool("graylog.enabled") {
		gelfAddress = viper.GetString("graylog.address")
	}
	SlogManager.Setup(LogFile, viper.GetString("logLevel"), gelfAddress, otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)
}

func usage() {
	fmt.Fprintf(os.Stderr, `%s %s (built %s)

Usage:
  %s run                      simulate a session and record it
  %s decode <id> <payload>    decode one frame payload to JSON
  %s dbc <path>               write the signal dictionary exchange file
  %s export <sessionId>...    export stored sessions as gzipped JSON
`, AppName, CurrentVersion, BuildDate, AppName, AppName, AppName, AppName)
}

func main() {
	setup()

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "run":
		err = runSession()
	case "decode":
		err = decodeFrame(args[1:])
	case "dbc":
		err = writeDBC(args[1:])
	case "export":
		err = exportSessions(args[1:])
	case "version":
		fmt.Println(CurrentVersion, BuildDate)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		Logger.Error("Command failed", "command", args[0], "error", err)
		shutdown()
		os.Exit(1)
	}
	shutdown()
}

// shutdown flushes telemetry before exit.
func shutdown() {
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush OTel data", "error", err)
		}
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
