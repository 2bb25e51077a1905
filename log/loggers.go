package log

import (
	"fmt"
)

func stage(sl *SubLogger, header func(*Logger) string, data string) {
	if sl == nil || sl.logger == nil {
		return
	}
	h := header(sl.logger)
	if !sl.enabled(h) {
		return
	}
	sl.logger.write(h, sl.name, data)
}

func stagef(sl *SubLogger, header func(*Logger) string, data string, v ...any) {
	if sl == nil || sl.logger == nil || !sl.enabled(header(sl.logger)) {
		return
	}
	stage(sl, header, fmt.Sprintf(data, v...))
}

func stageln(sl *SubLogger, header func(*Logger) string, v ...any) {
	if sl == nil || sl.logger == nil || !sl.enabled(header(sl.logger)) {
		return
	}
	stage(sl, header, fmt.Sprintln(v...))
}

func info(l *Logger) string  { return l.InfoHeader }
func warn(l *Logger) string  { return l.WarnHeader }
func debug(l *Logger) string { return l.DebugHeader }
func errr(l *Logger) string  { return l.ErrorHeader }

// Info takes a pointer subLogger struct and string sends to StageLogEvent
func Info(sl *SubLogger, data string) {
	stage(sl, info, data)
}

// Infoln takes a pointer subLogger struct and interface sends to StageLogEvent
func Infoln(sl *SubLogger, v ...any) {
	stageln(sl, info, v...)
}

// Infof takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Infof(sl *SubLogger, data string, v ...any) {
	stagef(sl, info, data, v...)
}

// Debug takes a pointer subLogger struct and string sends to StageLogEvent
func Debug(sl *SubLogger, data string) {
	stage(sl, debug, data)
}

// Debugln takes a pointer subLogger struct, string and interface sends to StageLogEvent
func Debugln(sl *SubLogger, v ...any) {
	stageln(sl, debug, v...)
}

// Debugf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Debugf(sl *SubLogger, data string, v ...any) {
	stagef(sl, debug, data, v...)
}

// Warn takes a pointer subLogger struct & string and sends to StageLogEvent
func Warn(sl *SubLogger, data string) {
	stage(sl, warn, data)
}

// Warnln takes a pointer subLogger struct & interface formats and sends to StageLogEvent
func Warnln(sl *SubLogger, v ...any) {
	stageln(sl, warn, v...)
}

// Warnf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Warnf(sl *SubLogger, data string, v ...any) {
	stagef(sl, warn, data, v...)
}

// Error takes a pointer subLogger struct & interface formats and sends to StageLogEvent
func Error(sl *SubLogger, data string) {
	stage(sl, errr, data)
}

// Errorln takes a pointer subLogger struct, string & interface formats and sends to StageLogEvent
func Errorln(sl *SubLogger, v ...any) {
	stageln(sl, errr, v...)
}

// Errorf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Errorf(sl *SubLogger, data string, v ...any) {
	stagef(sl, errr, data, v...)
}
