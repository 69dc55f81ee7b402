package turbotimer

import (
	"os"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is the narrow surface this package needs from a structured logger;
// *logrus.Entry already satisfies it, so component loggers can be handed out
// directly without an adapter.
type logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// LoggerConfig holds what a library embedded in a larger process needs for
// logging: level, format, and optional rotated file output. Caller-path
// prefix stripping for pretty source locations, which a whole service binary
// might want, has no role here since this package logs a handful of fixed,
// short messages rather than arbitrary call-site records.
type LoggerConfig struct {
	// UseJSON selects JSON output instead of the default text formatter.
	UseJSON bool `yaml:"use_json"`
	// Level is a logrus level name: "debug", "info", "warn", "error", ...
	Level string `yaml:"level"`
	// LogFile is a path to log to, or "" / "stderr" / "stdout".
	LogFile string `yaml:"log_file"`
	// LogFileMaxSizeMB caps rotated log file size before lumberjack rotates it.
	LogFileMaxSizeMB int `yaml:"log_file_max_size_mb"`
	// LogFileMaxBackupNum is how many rotated files lumberjack keeps.
	LogFileMaxBackupNum int `yaml:"log_file_max_backup_num"`
}

const (
	loggerConfigLevelDefault               = "info"
	loggerConfigLogFileMaxSizeMBDefault    = 10
	loggerConfigLogFileMaxBackupNumDefault = 1
	loggerComponentFieldName               = "comp"
)

// DefaultLoggerConfig returns the package's default logging configuration:
// text format, info level, to stderr.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		UseJSON:             false,
		Level:               loggerConfigLevelDefault,
		LogFile:             "",
		LogFileMaxSizeMB:    loggerConfigLogFileMaxSizeMBDefault,
		LogFileMaxBackupNum: loggerConfigLogFileMaxBackupNumDefault,
	}
}

var rootLogger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{FullTimestamp: true},
	Level:     logrus.InfoLevel,
}

// SetLogger applies cfg to the package-wide root logger. A nil cfg applies
// the defaults. Returns an error only if the level name is unrecognized; the
// log file path is not checked here, since lumberjack opens the file on the
// first write.
func SetLogger(cfg *LoggerConfig) error {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		rootLogger.SetLevel(level)
	}

	if cfg.UseJSON {
		rootLogger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		rootLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch cfg.LogFile {
	case "", "stderr":
		rootLogger.SetOutput(os.Stderr)
	case "stdout":
		rootLogger.SetOutput(os.Stdout)
	default:
		rootLogger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogFileMaxSizeMB,
			MaxBackups: cfg.LogFileMaxBackupNum,
		})
	}

	return nil
}

// newCompLogger returns a component-scoped logger, e.g. newCompLogger("scheduler").
func newCompLogger(component string) logger {
	return rootLogger.WithField(loggerComponentFieldName, component)
}

// nopLogger discards everything; used when a Scheduler is built without
// logging configured at all (e.g. in unit tests exercising the race
// invariants, where log noise would only slow things down).
type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

func capturePanicStack() []byte {
	return debug.Stack()
}
