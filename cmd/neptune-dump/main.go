// Command neptune-dump downloads the logbook from an Alti-2 altimeter
// over its serial cradle.
//
// It connects, prints the device identity, pages the logbook out of the
// device, and exports the decoded records as CBOR or JSON lines. The
// full protocol exchange can be captured to a .nlog file for later
// inspection with neptune-log.
//
// Usage:
//
//	neptune-dump [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-port string        Serial device path, e.g. /dev/ttyUSB0
//	-baud int           Serial line rate (default 57600)
//	-settle duration    Delay after asserting DTR (default 10s)
//	-reply-wait duration  Per-attempt reply timeout (default 10s)
//	-max-attempts int   Transaction retry budget (default 3)
//	-capture string     Write a protocol capture (.nlog) file
//	-o string           Record export path (default: stdout)
//	-format string      Export format: cbor, jsonl (default "jsonl")
//	-log-level string   Console verbosity: debug, info, warn, error
//	-interactive        Start an interactive shell instead of dumping
//	-list-ports         List serial ports and exit
//
// Examples:
//
//	# List candidate serial ports
//	neptune-dump -list-ports
//
//	# Dump the logbook as JSON lines
//	neptune-dump -port /dev/ttyUSB0 -o logbook.jsonl
//
//	# Dump with a protocol capture for debugging
//	neptune-dump -port /dev/ttyUSB0 -capture trace.nlog -o logbook.jsonl
//
//	# Poke at the device by hand
//	neptune-dump -port /dev/ttyUSB0 -interactive
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alti2-tools/neptune-go/cmd/neptune-dump/interactive"
	"github.com/alti2-tools/neptune-go/pkg/interaction"
	"github.com/alti2-tools/neptune-go/pkg/log"
	"github.com/alti2-tools/neptune-go/pkg/logbook"
	"github.com/alti2-tools/neptune-go/pkg/session"
	"github.com/alti2-tools/neptune-go/pkg/transport"
)

var config Config

func main() {
	configFile := flag.String("config", "", "Configuration file path (YAML)")
	listPorts := flag.Bool("list-ports", false, "List serial ports and exit")
	runShell := flag.Bool("interactive", false, "Start an interactive shell instead of dumping")
	flag.StringVar(&config.Port, "port", "", "Serial device path, e.g. /dev/ttyUSB0")
	flag.IntVar(&config.BaudRate, "baud", 0, "Serial line rate (default 57600)")
	flag.DurationVar(&config.SettleDelay, "settle", 0, "Delay after asserting DTR (default 10s)")
	flag.DurationVar(&config.ReplyWait, "reply-wait", 0, "Per-attempt reply timeout (default 10s)")
	flag.IntVar(&config.MaxAttempts, "max-attempts", 0, "Transaction retry budget (default 3)")
	flag.StringVar(&config.CaptureFile, "capture", "", "Write a protocol capture (.nlog) file")
	flag.StringVar(&config.Output, "o", "", "Record export path (default: stdout)")
	flag.StringVar(&config.Format, "format", "", "Export format: cbor, jsonl (default jsonl)")
	flag.StringVar(&config.LogLevel, "log-level", "", "Console verbosity: debug, info, warn, error")
	flag.Parse()

	if *listPorts {
		if err := printPorts(); err != nil {
			fatal(err)
		}
		return
	}

	// File values fill in whatever the flags left unset; flags win when
	// both are given, so parse the file into a copy first.
	if *configFile != "" {
		fileCfg := Config{}
		if err := LoadConfig(*configFile, &fileCfg); err != nil {
			fatal(err)
		}
		mergeConfig(&config, fileCfg)
	}
	if err := config.Validate(); err != nil {
		fatal(err)
	}
	if config.Port == "" {
		fatal(fmt.Errorf("no serial port given (use -port or a config file; -list-ports shows candidates)"))
	}

	logger := setupLogging(config.LogLevel)

	capture, closeCapture, err := setupCapture(logger)
	if err != nil {
		fatal(err)
	}
	defer closeCapture()

	logger.Info("opening port", "path", config.Port)
	ch, err := transport.OpenSerial(transport.SerialConfig{
		Path:        config.Port,
		BaudRate:    config.BaudRate,
		SettleDelay: config.SettleDelay,
	})
	if err != nil {
		fatal(fmt.Errorf("open %s: %w", config.Port, err))
	}

	sess := session.New(ch, session.Config{
		Transaction: interaction.Config{
			ReplyWait:   config.ReplyWait,
			MaxAttempts: config.MaxAttempts,
		},
		Logger: capture,
		Port:   config.Port,
	})
	defer func() {
		if err := sess.Disconnect(); err != nil {
			logger.Warn("disconnect", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting")
	if err := sess.Connect(ctx); err != nil {
		fatal(err)
	}
	fmt.Fprintln(os.Stderr, sess.DeviceInfo())

	if *runShell {
		shell, err := interactive.New(sess, logger)
		if err != nil {
			fatal(err)
		}
		shell.Run(ctx)
		return
	}

	if err := dump(ctx, sess, logger); err != nil {
		fatal(err)
	}
}

// dump downloads the logbook and writes the export.
func dump(ctx context.Context, sess *session.Session, logger *slog.Logger) error {
	out := io.Writer(os.Stdout)
	if config.Output != "" {
		f, err := os.Create(config.Output)
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		defer f.Close()
		out = f
	}

	var sink logbook.Sink
	count := 0
	counted := func(inner logbook.Sink) logbook.Sink {
		return logbook.FuncSink(func(r logbook.Record) error {
			count++
			return inner.Accept(r)
		})
	}
	switch config.Format {
	case "cbor":
		sink = counted(logbook.NewWriter(out))
	default:
		enc := json.NewEncoder(out)
		sink = counted(logbook.FuncSink(func(r logbook.Record) error {
			return enc.Encode(r)
		}))
	}

	start := time.Now()
	decodeErrs, err := sess.DownloadLogbook(ctx, sink)
	for _, de := range decodeErrs {
		logger.Warn("bad record", "index", de.Index, "error", de.Reason, "raw", fmt.Sprintf("%X", de.Raw))
	}
	if err != nil {
		return err
	}
	logger.Info("download complete", "records", count, "bad", len(decodeErrs), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// setupLogging builds the console logger at the configured level.
func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// setupCapture assembles the protocol capture logger: the .nlog file
// when requested, plus the console at debug level.
func setupCapture(logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeCapture := func() {}

	if config.CaptureFile != "" {
		fl, err := log.NewFileLogger(config.CaptureFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open capture: %w", err)
		}
		loggers = append(loggers, fl)
		closeCapture = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("close capture", "error", err)
			}
		}
	}
	if config.LogLevel == "debug" {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return nil, closeCapture, nil
	case 1:
		return loggers[0], closeCapture, nil
	default:
		return log.NewMultiLogger(loggers...), closeCapture, nil
	}
}

// mergeConfig fills zero-valued fields of dst from src.
func mergeConfig(dst *Config, src Config) {
	if dst.Port == "" {
		dst.Port = src.Port
	}
	if dst.BaudRate == 0 {
		dst.BaudRate = src.BaudRate
	}
	if dst.SettleDelay == 0 {
		dst.SettleDelay = src.SettleDelay
	}
	if dst.ReplyWait == 0 {
		dst.ReplyWait = src.ReplyWait
	}
	if dst.MaxAttempts == 0 {
		dst.MaxAttempts = src.MaxAttempts
	}
	if dst.CaptureFile == "" {
		dst.CaptureFile = src.CaptureFile
	}
	if dst.Output == "" {
		dst.Output = src.Output
	}
	if dst.Format == "" {
		dst.Format = src.Format
	}
	if dst.LogLevel == "" {
		dst.LogLevel = src.LogLevel
	}
}

func printPorts() error {
	ports, err := transport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "neptune-dump: %v\n", err)
	os.Exit(1)
}
