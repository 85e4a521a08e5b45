// Package log adapts the teacher's colored console logger onto
// logrus: same level set and package-level call shape, but with
// structured fields so a correlation id can be attached to every line
// an Endpoint emits.
package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Level mirrors the teacher's LevelDebug..LevelError ladder plus a
// LevelSilent sentinel used as the default so a fresh Endpoint makes
// no noise until a caller opts in with WithLogger.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

var toLogrus = map[Level]logrus.Level{
	LevelDebug: logrus.DebugLevel,
	LevelInfo:  logrus.InfoLevel,
	LevelWarn:  logrus.WarnLevel,
	LevelError: logrus.ErrorLevel,
}

// Logger wraps a *logrus.Logger with the fixed field set every
// transport log line carries.
type Logger struct {
	l      *logrus.Logger
	level  Level
	fields logrus.Fields
}

// New returns a Logger at LevelSilent: Debug/Info/Warn/Error calls are
// no-ops until SetLevel lowers the bar.
func New() *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return &Logger{l: l, level: LevelSilent, fields: logrus.Fields{}}
}

// SetLevel sets the minimum level that reaches the underlying logrus
// logger.
func (lg *Logger) SetLevel(level Level) {
	lg.level = level
	if lvl, ok := toLogrus[level]; ok {
		lg.l.SetLevel(lvl)
	}
}

// WithField returns a copy of lg that tags every subsequent line with
// key=value, e.g. the Endpoint's correlation id.
func (lg *Logger) WithField(key string, value any) *Logger {
	next := make(logrus.Fields, len(lg.fields)+1)
	for k, v := range lg.fields {
		next[k] = v
	}
	next[key] = value
	return &Logger{l: lg.l, level: lg.level, fields: next}
}

func (lg *Logger) enabled(at Level) bool {
	return lg.level != LevelSilent && lg.level <= at
}

func (lg *Logger) entry() *logrus.Entry {
	return lg.l.WithFields(lg.fields)
}

// Debugf logs at LevelDebug.
func (lg *Logger) Debugf(format string, args ...any) {
	if lg.enabled(LevelDebug) {
		lg.entry().Debugf(format, args...)
	}
}

// Infof logs at LevelInfo.
func (lg *Logger) Infof(format string, args ...any) {
	if lg.enabled(LevelInfo) {
		lg.entry().Infof(format, args...)
	}
}

// Warnf logs at LevelWarn.
func (lg *Logger) Warnf(format string, args ...any) {
	if lg.enabled(LevelWarn) {
		lg.entry().Warnf(format, args...)
	}
}

// Errorf logs at LevelError. Unlike the other levels this is meant for
// conditions an operator should see even with a mostly-quiet logger,
// so callers upstream generally leave the bar at LevelError rather
// than LevelSilent in production.
func (lg *Logger) Errorf(format string, args ...any) {
	if lg.enabled(LevelError) {
		lg.entry().Errorf(format, args...)
	}
}

// Section prints a banner-style section header to stdout, kept for
// parity with the demo CLI's startup output; it bypasses logrus
// entirely since it's decoration, not a log line.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n╔%s╗\n", border)
	fmt.Printf("║ %-57s ║\n", title)
	fmt.Printf("╚%s╝\n\n", border)
}

// Banner prints the application banner for the demo CLI.
func Banner(title, version string) {
	fmt.Printf("reliudp — %s (%s)\n", title, version)
}
