package mlog

import (
	"fmt"
	"log"
	"os"
)

type stdoutLogger struct {
	level Level
}

func newStdoutLogger(level Level) *stdoutLogger {
	log.SetFlags(log.Ldate | log.Lmicroseconds)
	return &stdoutLogger{
		level: level,
	}
}

func (l *stdoutLogger) IsLevelEnabled(level Level) bool {
	return l.level >= level
}

func (l *stdoutLogger) log(level Level, args ...any) {
	if l.IsLevelEnabled(level) {
		log.Println(getLevelTag(level) + fmt.Sprint(args...))
	}
}

func (l *stdoutLogger) logf(level Level, format string, args ...any) {
	if l.IsLevelEnabled(level) {
		log.Println(getLevelTag(level) + fmt.Sprintf(format, args...))
	}
}

func (l *stdoutLogger) Trace(v ...any) {
	l.log(TraceLevel, v...)
}

func (l *stdoutLogger) Tracef(format string, v ...any) {
	l.logf(TraceLevel, format, v...)
}

func (l *stdoutLogger) Debug(v ...any) {
	l.log(DebugLevel, v...)
}

func (l *stdoutLogger) Debugf(format string, v ...any) {
	l.logf(DebugLevel, format, v...)
}

func (l *stdoutLogger) Info(v ...any) {
	l.log(InfoLevel, v...)
}

func (l *stdoutLogger) Infof(format string, v ...any) {
	l.logf(InfoLevel, format, v...)
}

func (l *stdoutLogger) Warn(v ...any) {
	l.log(WarnLevel, v...)
}

func (l *stdoutLogger) Warnf(format string, v ...any) {
	l.logf(WarnLevel, format, v...)
}

func (l *stdoutLogger) Error(v ...any) {
	l.log(ErrorLevel, v...)
}

func (l *stdoutLogger) Errorf(format string, v ...any) {
	l.logf(ErrorLevel, format, v...)
}

func (l *stdoutLogger) Fatal(v ...any) {
	l.log(FatalLevel, v...)
	os.Exit(1)
}

func (l *stdoutLogger) Fatalf(format string, v ...any) {
	l.logf(FatalLevel, format, v...)
	os.Exit(1)
}
