package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// New builds a Logger from its config. Console output is written to stdout,
// file output is appended to the configured file
func New(c *Config) (*Logger, error) {
	if c == nil {
		c = GenDefaultSettings()
	}
	levels, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	l := &Logger{
		levels:            levels,
		showLogSystemName: c.ShowLogSystemName,
		subLoggers:        make(map[string]*SubLogger),
	}
	l.setHeaders(c.TimestampFormat)

	mw := &multiWriter{}
	if c.Console {
		if err = mw.Add(os.Stdout); err != nil {
			return nil, err
		}
	}
	if c.Output != "" {
		for _, o := range strings.Split(c.Output, "|") {
			var w io.Writer
			switch strings.ToLower(strings.TrimSpace(o)) {
			case "stdout", "console":
				w = os.Stdout
			case "stderr":
				w = os.Stderr
			default:
				return nil, fmt.Errorf("%w: %s", errUnhandledOutputWriter, o)
			}
			if err = mw.Add(w); err != nil && !errors.Is(err, errWriterAlreadyLoaded) {
				return nil, err
			}
		}
	}
	if c.File != "" {
		l.file, err = os.OpenFile(c.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("could not open log file %q: %w", c.File, err)
		}
		if err = mw.Add(l.file); err != nil {
			return nil, err
		}
	}
	if len(mw.writers) == 0 {
		if l.file != nil {
			_ = l.file.Close()
		}
		return nil, errNoOutputsEnabled
	}
	l.output = mw
	return l, nil
}

// NewWithWriter returns a Logger writing to w at the supplied levels
func NewWithWriter(w io.Writer, levels Levels) *Logger {
	l := &Logger{
		output:            w,
		levels:            levels,
		showLogSystemName: true,
		subLoggers:        make(map[string]*SubLogger),
	}
	l.setHeaders("")
	return l
}

// Discard returns a Logger that drops every log line
func Discard() *Logger {
	return NewWithWriter(io.Discard, Levels{})
}

// GenDefaultSettings return struct with known sane/working logger settings
func GenDefaultSettings() *Config {
	return &Config{
		Level:   "INFO|WARN|ERROR",
		Console: true,
	}
}

func (l *Logger) setHeaders(tsFormat string) {
	l.InfoHeader = defaultInfoHeader
	l.WarnHeader = defaultWarnHeader
	l.DebugHeader = defaultDebugHeader
	l.ErrorHeader = defaultErrorHeader
	l.Spacer = spacer
	l.timestampFormat = timestampFormat
	if tsFormat != "" {
		l.timestampFormat = tsFormat
	}
}

// SubLogger returns the named sub logger, creating it with the logger's
// levels on first use
func (l *Logger) SubLogger(name string) *SubLogger {
	if l == nil {
		return nil
	}
	name = strings.ToUpper(name)
	l.mu.Lock()
	defer l.mu.Unlock()
	if sl, ok := l.subLoggers[name]; ok {
		return sl
	}
	sl := &SubLogger{
		name:   name,
		levels: l.levels,
		logger: l,
	}
	l.subLoggers[name] = sl
	return sl
}

// SetHook installs a hook which receives every enabled log line
func (l *Logger) SetHook(h CustomLogHook) {
	l.mu.Lock()
	l.hook = h
	l.mu.Unlock()
}

// Close releases the log file when one is configured
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) write(header, slName, data string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hook != nil && l.hook(header, slName, data) {
		return
	}
	if l.output == nil {
		return
	}
	var b strings.Builder
	b.WriteString(header)
	if l.timestampFormat != "" {
		b.WriteString(time.Now().Format(l.timestampFormat))
	}
	if l.showLogSystemName {
		b.WriteString(l.Spacer)
		b.WriteString(slName)
	}
	b.WriteString(l.Spacer)
	b.WriteString(data)
	if !strings.HasSuffix(data, "\n") {
		b.WriteByte('\n')
	}
	// log output failures cannot be reported anywhere more useful
	_, _ = io.WriteString(l.output, b.String())
}

// ParseLevel converts a level string into Levels. A single level enables that
// level and everything more severe, a "|" separated list enables exactly the
// levels listed
func ParseLevel(level string) (Levels, error) {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		return Levels{Info: true, Warn: true, Error: true}, nil
	}
	if !strings.Contains(level, "|") {
		switch level {
		case "DEBUG":
			return Levels{Debug: true, Info: true, Warn: true, Error: true}, nil
		case "INFO":
			return Levels{Info: true, Warn: true, Error: true}, nil
		case "WARN", "WARNING":
			return Levels{Warn: true, Error: true}, nil
		case "ERROR":
			return Levels{Error: true}, nil
		case "NONE", "OFF":
			return Levels{}, nil
		}
		return Levels{}, fmt.Errorf("%w: %s", errUnrecognisedLevel, level)
	}
	return splitLevel(level)
}

func splitLevel(level string) (l Levels, err error) {
	enabledLevels := strings.Split(level, "|")
	for x := range enabledLevels {
		switch lvl := strings.TrimSpace(enabledLevels[x]); lvl {
		case "DEBUG":
			l.Debug = true
		case "INFO":
			l.Info = true
		case "WARN":
			l.Warn = true
		case "ERROR":
			l.Error = true
		default:
			return Levels{}, fmt.Errorf("%w: %s", errUnrecognisedLevel, lvl)
		}
	}
	return l, nil
}
