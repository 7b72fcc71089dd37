// internal/logger/logger.go

package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

type Mode int

const (
	MINIMAL Mode = iota
	NORMAL
	FULL
)

var (
	levelNames = map[Level]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
		FATAL: "FATAL",
	}

	levelColors = map[Level]string{
		DEBUG: "\033[36m",
		INFO:  "\033[32m",
		WARN:  "\033[33m",
		ERROR: "\033[31m",
		FATAL: "\033[35m",
	}

	resetColor = "\033[0m"
)

// sink is shared by a logger and every child returned from Named.
type sink struct {
	mu         sync.Mutex
	level      Level
	mode       Mode
	consoleOut io.Writer
	eventOut   io.Writer
	fileOut    io.Writer
	logFile    *os.File
	useColors  bool
	exit       func(int)
}

type Logger struct {
	s         *sink
	component string
}

type Config struct {
	Level       Level
	Mode        Mode
	LogFilePath string
	UseColors   bool
}

func New(cfg Config) (*Logger, error) {
	s := &sink{
		level:      cfg.Level,
		mode:       cfg.Mode,
		consoleOut: os.Stderr,
		eventOut:   os.Stdout,
		useColors:  cfg.UseColors,
		exit:       os.Exit,
	}

	if cfg.LogFilePath != "" {
		if err := s.setupLogFile(cfg.LogFilePath); err != nil {
			return nil, fmt.Errorf("failed to setup log file: %w", err)
		}
	}

	return &Logger{s: s}, nil
}

// NewWriter builds an uncoloured logger that writes both log lines and
// events to w.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{s: &sink{
		level:      level,
		mode:       MINIMAL,
		consoleOut: w,
		eventOut:   w,
		exit:       os.Exit,
	}}
}

func (s *sink) setupLogFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	s.logFile = file
	s.fileOut = file
	return nil
}

// Named returns a child logger whose lines are prefixed with component.
func (l *Logger) Named(component string) *Logger {
	name := component
	if l.component != "" {
		name = l.component + "." + component
	}
	return &Logger{s: l.s, component: name}
}

func (l *Logger) Close() error {
	if l.s.logFile != nil {
		return l.s.logFile.Close()
	}
	return nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	s := l.s
	s.mu.Lock()
	if level < s.level {
		s.mu.Unlock()
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		message = "[" + l.component + "] " + message
	}

	var consoleMsg, fileMsg string

	switch s.mode {
	case MINIMAL:
		consoleMsg = s.formatMinimal(level, message)
		fileMsg = formatFile(level, timestamp, "", message)

	case NORMAL:
		consoleMsg = s.formatNormal(level, timestamp, message)
		fileMsg = formatFile(level, timestamp, "", message)

	case FULL:
		location := caller()
		consoleMsg = s.formatFull(level, timestamp, location, message)
		fileMsg = formatFile(level, timestamp, location, message)
	}

	if s.consoleOut != nil {
		fmt.Fprintln(s.consoleOut, consoleMsg)
	}

	if s.fileOut != nil {
		fmt.Fprintln(s.fileOut, fileMsg)
	}
	exit := s.exit
	s.mu.Unlock()

	if level == FATAL {
		exit(1)
	}
}

// Event writes one JSON object on its own line. The "event" key is always
// set to name; "component" is added when the logger is named.
func (l *Logger) Event(name string, fields map[string]interface{}) {
	record := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		record[k] = v
	}
	record["event"] = name
	if l.component != "" {
		if _, ok := record["component"]; !ok {
			record["component"] = l.component
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		l.Error("failed to encode %s event: %v", name, err)
		return
	}

	s := l.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eventOut != nil {
		fmt.Fprintln(s.eventOut, string(data))
	}
	if s.fileOut != nil {
		fmt.Fprintln(s.fileOut, string(data))
	}
}

func (s *sink) formatMinimal(level Level, msg string) string {
	levelStr := levelNames[level]
	if s.useColors {
		return fmt.Sprintf("%s[%s]%s %s", levelColors[level], levelStr, resetColor, msg)
	}
	return fmt.Sprintf("[%s] %s", levelStr, msg)
}

func (s *sink) formatNormal(level Level, timestamp, msg string) string {
	levelStr := levelNames[level]
	if s.useColors {
		return fmt.Sprintf("%s[%s]%s %s | %s", levelColors[level], levelStr, resetColor, timestamp, msg)
	}
	return fmt.Sprintf("[%s] %s | %s", levelStr, timestamp, msg)
}

func (s *sink) formatFull(level Level, timestamp, location, msg string) string {
	levelStr := levelNames[level]
	if s.useColors {
		return fmt.Sprintf("%s[%s]%s %s | %s | %s",
			levelColors[level], levelStr, resetColor, timestamp, location, msg)
	}
	return fmt.Sprintf("[%s] %s | %s | %s", levelStr, timestamp, location, msg)
}

func formatFile(level Level, timestamp, location, msg string) string {
	if location == "" {
		return fmt.Sprintf("%s [%s] %s", timestamp, levelNames[level], msg)
	}
	return fmt.Sprintf("%s [%s] %s | %s", timestamp, levelNames[level], location, msg)
}

// caller skips log, the level method and, for package-level helpers, the
// default logger wrapper.
func caller() string {
	for skip := 3; skip < 6; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if !strings.HasSuffix(file, "/logger/logger.go") {
			return fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}
	return "unknown:0"
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
}

func (l *Logger) SetLevel(level Level) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.level = level
}

func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "minimal":
		return MINIMAL
	case "normal":
		return NORMAL
	case "full":
		return FULL
	default:
		return NORMAL
	}
}
