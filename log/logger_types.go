package log

import (
	"errors"
	"io"
	"os"
	"sync"
)

const (
	timestampFormat = " 02/01/2006 15:04:05 "
	spacer          = " | "

	defaultInfoHeader  = "[INFO]"
	defaultWarnHeader  = "[WARN]"
	defaultDebugHeader = "[DEBUG]"
	defaultErrorHeader = "[ERROR]"
)

var (
	errWriterAlreadyLoaded   = errors.New("io.Writer already loaded")
	errWriterNotFound        = errors.New("io.Writer not found")
	errNoOutputsEnabled      = errors.New("no log outputs enabled")
	errUnrecognisedLevel     = errors.New("unrecognised log level")
	errUnhandledOutputWriter = errors.New("unhandled output writer")
)

// Config holds the run-scoped logging settings
type Config struct {
	Level             string `mapstructure:"level" json:"level"`
	File              string `mapstructure:"file" json:"file"`
	Console           bool   `mapstructure:"console" json:"console"`
	Output            string `mapstructure:"output" json:"output,omitempty"`
	ShowLogSystemName bool   `mapstructure:"show_log_system_name" json:"show-log-system-name"`
	TimestampFormat   string `mapstructure:"timestamp_format" json:"timestamp-format,omitempty"`
}

// CustomLogHook is a function type for external log handling. It should return
// true if the logger's own output should be bypassed
type CustomLogHook func(header, subLoggerName, data string) (bypassLibraryLogSystem bool)

// Logger holds the output and formatting for a single backtest run.
// Nothing about it is shared across runs
type Logger struct {
	mu                                               sync.Mutex
	output                                           io.Writer
	file                                             *os.File
	levels                                           Levels
	hook                                             CustomLogHook
	showLogSystemName                                bool
	timestampFormat                                  string
	InfoHeader, ErrorHeader, DebugHeader, WarnHeader string
	Spacer                                           string
	subLoggers                                       map[string]*SubLogger
}

// SubLogger is a named view of a Logger with its own level filter
type SubLogger struct {
	name   string
	levels Levels
	logger *Logger
}

// Levels flags for each sub logger type
type Levels struct {
	Info, Debug, Warn, Error bool
}

type multiWriter struct {
	writers []io.Writer
}
