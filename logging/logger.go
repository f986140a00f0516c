package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// Logger is a type alias for zerolog.Logger.
// We use zerolog directly instead of wrapping it with abstractions.
type Logger = zerolog.Logger

// Config contains logging configuration options.
type Config struct {
	// Level is the log level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log format: "json" or "text"
	// Default: "json"
	Format string `yaml:"format"`

	// Async enables asynchronous/non-blocking logging using a ring buffer.
	// Recommended for production so proxy hot paths never block on log I/O.
	// Default: true
	Async bool `yaml:"async"`

	// AsyncBufferSize is the size of the async ring buffer (in bytes).
	// Default: 100000 (100KB)
	AsyncBufferSize int `yaml:"async_buffer_size"`

	// AsyncPollInterval is how often the async writer polls for messages
	// (in milliseconds). Default: 100
	AsyncPollInterval int `yaml:"async_poll_interval"`

	// Sampling enables log sampling to cap volume under extreme throughput.
	// Default: false
	Sampling bool `yaml:"sampling"`

	// SamplingInitial is how many messages per second are always logged
	// before sampling kicks in. Default: 100
	SamplingInitial int `yaml:"sampling_initial"`

	// SamplingThereafter logs 1 in N messages beyond the initial burst.
	// Default: 10
	SamplingThereafter int `yaml:"sampling_thereafter"`

	// EnableCaller adds caller information (file:line) to logs.
	// Default: false (enable in development only)
	EnableCaller bool `yaml:"enable_caller"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Level:              "info",
		Format:             "json",
		Async:              true,
		AsyncBufferSize:    100000,
		AsyncPollInterval:  100,
		Sampling:           false,
		SamplingInitial:    100,
		SamplingThereafter: 10,
		EnableCaller:       false,
	}
}

// NewLoggerFromConfig creates a logger from configuration.
// When Async is enabled, writes go through a diode ring buffer so that
// logging never blocks the request path.
func NewLoggerFromConfig(config Config) Logger {
	level := parseLevel(config.Level)

	var output io.Writer = os.Stderr

	if strings.ToLower(config.Format) == "text" {
		// ConsoleWriter for human-readable output (dev/debugging)
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	if config.Async {
		bufferSize := config.AsyncBufferSize
		if bufferSize <= 0 {
			bufferSize = 100000
		}

		pollInterval := config.AsyncPollInterval
		if pollInterval <= 0 {
			pollInterval = 100
		}

		// Diode writer drops old messages when the buffer overflows.
		// We cannot use the logger inside the callback (recursion), so the
		// overflow notice goes straight to stderr.
		output = diode.NewWriter(output, bufferSize, time.Duration(pollInterval)*time.Millisecond, func(missed int) {
			if missed > 0 {
				_, _ = os.Stderr.WriteString("WARN: dropped log messages due to full buffer\n")
			}
		})
	}

	ctx := zerolog.New(output).Level(level).With().Timestamp()
	if config.EnableCaller {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()

	if config.Sampling {
		logger = logger.Sample(newBurstSampler(config.SamplingInitial, config.SamplingThereafter))
	}
	return logger
}

// newBurstSampler builds the sampler used when Config.Sampling is set: the
// first initial messages per second always pass, then 1 in thereafter.
func newBurstSampler(initial, thereafter int) zerolog.Sampler {
	if initial <= 0 {
		initial = 100
	}
	if thereafter <= 0 {
		thereafter = 10
	}
	return &zerolog.BurstSampler{
		Burst:       uint32(initial),
		Period:      time.Second,
		NextSampler: &zerolog.BasicSampler{N: uint32(thereafter)},
	}
}

// parseLevel returns the zerolog.Level for the given string. It returns
// InfoLevel if the string is not recognized.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a child logger with the component field set.
func WithComponent(logger Logger, component string) Logger {
	return logger.With().Str(FieldComponent, component).Logger()
}

// WithProvider returns a child logger with the provider field set.
func WithProvider(logger Logger, provider string) Logger {
	return logger.With().Str(FieldProvider, provider).Logger()
}

// WithChain returns a child logger with the chain_id field set.
func WithChain(logger Logger, chainID string) Logger {
	return logger.With().Str(FieldChainID, chainID).Logger()
}

// ForComponent returns a logger configured for a specific component.
// This is the preferred way to create component loggers.
func ForComponent(logger Logger, component string) Logger {
	return WithComponent(logger, component)
}
