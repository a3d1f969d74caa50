package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/vuedl/internal/infrastructure/config"
)

// Rotation limits for the diagnostic log file.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 5
)

// Logger wraps slog.Logger with the default service attributes attached.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// New creates a new Logger with the specified configuration.
//
// Records at or above cfg.Level go to cfg.Output. When cfg.File is set,
// every record down to debug is also appended to that file, which rotates
// by size. Call Close when done to release the file.
//
// Parameters:
//   - cfg: Logging configuration (level, format, output, file)
//   - version: Application version for the default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}

	if cfg.File == "" {
		return NewWithWriter(cfg, version, output)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
	}
	logger := NewWithFile(cfg, version, output, file)
	logger.closer = file
	return logger
}

// NewWithWriter is New with an explicit destination, used by tests and by
// callers that redirect diagnostics.
func NewWithWriter(cfg config.LoggingConfig, version string, output io.Writer) *Logger {
	return &Logger{
		Logger: slog.New(withDefaults(newHandler(cfg.Format, output, parseLevel(cfg.Level)), version)),
	}
}

// NewWithFile is NewWithWriter plus a diagnostic destination that always
// receives debug records, whatever cfg.Level says.
func NewWithFile(cfg config.LoggingConfig, version string, output, file io.Writer) *Logger {
	handler := fanout{
		newHandler(cfg.Format, output, parseLevel(cfg.Level)),
		newHandler(cfg.Format, file, slog.LevelDebug),
	}
	return &Logger{
		Logger: slog.New(withDefaults(handler, version)),
	}
}

func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func withDefaults(h slog.Handler, version string) slog.Handler {
	return h.WithAttrs([]slog.Attr{
		slog.String("service", "vuedl"),
		slog.String("version", version),
	})
}

// Close releases the diagnostic file, if any. Safe to call on any Logger.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	runLogger := logger.With("run_id", id)
//	runLogger.Info("window planned") // Includes run_id=...
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default creates a logger for use before configuration is loaded.
// It writes text to stderr at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}, "dev")
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Verbose returns cfg with the level forced to debug.
//
// The -v flag uses this to put per-device progress and full HTTP
// exchange dumps on the console as well as the diagnostic file.
func Verbose(cfg config.LoggingConfig) config.LoggingConfig {
	cfg.Level = "debug"
	return cfg
}
