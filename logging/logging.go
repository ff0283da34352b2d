package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
)

// String returns the level name
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLogLevel accepts a level name or its number; unknown input yields INFO
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "0":
		return DEBUG
	case "WARN", "WARNING", "2":
		return WARNING
	case "ERROR", "3":
		return ERROR
	default:
		return INFO
	}
}

// Logger wraps the standard log package with file output and rotation
type Logger struct {
	logger     *log.Logger
	fileWriter io.Writer
	mu         sync.RWMutex
	level      LogLevel
}

// hourlyFile writes to <dir>/<YYYY-MM-DD>/<name>-<HH><ext>, handing each
// hour to its own lumberjack logger. Day directories older than maxAge days
// are removed when a new day starts.
type hourlyFile struct {
	dir, name, ext           string
	maxSize, backups, maxAge int
	compress                 bool
	now                      func() time.Time

	mu     sync.Mutex
	hour   string
	out    *lumberjack.Logger
	pruned string
}

func newHourlyFile(path string, maxSize, maxBackups, maxAge int, compress bool) (*hourlyFile, error) {
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	if name == "" {
		return nil, fmt.Errorf("invalid log file: %q", path)
	}
	if ext == "" {
		ext = ".log"
	}
	f := &hourlyFile{
		dir:      filepath.Dir(path),
		name:     name,
		ext:      ext,
		maxSize:  maxSize,
		backups:  maxBackups,
		maxAge:   maxAge,
		compress: compress,
		now:      time.Now,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.current(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *hourlyFile) pathFor(t time.Time) string {
	return filepath.Join(f.dir, t.Format(dayLayout), fmt.Sprintf("%s-%02d%s", f.name, t.Hour(), f.ext))
}

// current switches to the file of the present hour; f.mu must be held
func (f *hourlyFile) current() error {
	t := f.now()
	hour := t.Format("2006-01-02T15")
	if f.out != nil && f.hour == hour {
		return nil
	}
	if f.out != nil {
		_ = f.out.Close()
	}

	path := f.pathFor(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f.out = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    f.maxSize,
		MaxBackups: f.backups,
		MaxAge:     f.maxAge,
		Compress:   f.compress,
	}
	f.hour = hour

	if day := t.Format(dayLayout); f.maxAge > 0 && day != f.pruned {
		f.pruned = day
		return pruneDays(f.dir, t, f.maxAge)
	}
	return nil
}

func (f *hourlyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.current(); err != nil {
		return 0, err
	}
	return f.out.Write(p)
}

// Rotate starts a fresh backup of the current hour file
func (f *hourlyFile) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.current(); err != nil {
		return err
	}
	return f.out.Rotate()
}

func (f *hourlyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out == nil {
		return nil
	}
	err := f.out.Close()
	f.out, f.hour = nil, ""
	return err
}

const dayLayout = "2006-01-02"

// pruneDays removes day directories under dir that fall outside keep days
func pruneDays(dir string, now time.Time, keep int) error {
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1-keep)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read log directory %q: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, perr := time.ParseInLocation(dayLayout, e.Name(), now.Location())
		if perr == nil && day.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(dir, e.Name()))
		}
	}
	return nil
}

// LoggerInterface defines the interface for logging methods
type LoggerInterface interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
	Fatal(format string, v ...interface{})
	Sync() error
	ChangeLogLevel(level LogLevel)
}

// NewLogger creates a new logger instance with file output and rotation
func NewLogger(logFile string, maxSize, maxBackups, maxAge int, compress bool, level LogLevel) (*Logger, error) {
	file, err := newHourlyFile(logFile, maxSize, maxBackups, maxAge, compress)
	if err != nil {
		return nil, err
	}
	l := NewLoggerWriter(io.MultiWriter(file, os.Stdout), level)
	l.fileWriter = file
	return l, nil
}

// NewLoggerWriter creates a logger writing to w only, without rotation
func NewLoggerWriter(w io.Writer, level LogLevel) *Logger {
	return &Logger{
		logger: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile),
		level:  level,
	}
}

func (l *Logger) enabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level <= level
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.enabled(DEBUG) {
		l.logger.Output(2, fmt.Sprintf("[DEBUG] "+format, v...))
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	if l.enabled(INFO) {
		l.logger.Output(2, fmt.Sprintf("[INFO]  "+format, v...))
	}
}

// Warning logs a warning message
func (l *Logger) Warning(format string, v ...interface{}) {
	if l.enabled(WARNING) {
		l.logger.Output(2, fmt.Sprintf("[WARN]  "+format, v...))
	}
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	if l.enabled(ERROR) {
		l.logger.Output(2, fmt.Sprintf("[ERROR] "+format, v...))
	}
}

// Fatal logs an error message and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.logger.Output(2, fmt.Sprintf("[FATAL] "+format, v...))
	os.Exit(1)
}

// Sync flushes any buffered log entries to the underlying writer
func (l *Logger) Sync() error {
	type rotator interface {
		Rotate() error
	}
	if r, ok := l.fileWriter.(rotator); ok {
		return r.Rotate()
	}
	return nil
}

// Close releases the rotating file
func (l *Logger) Close() error {
	if c, ok := l.fileWriter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ChangeLogLevel changes the logging level at runtime
func (l *Logger) ChangeLogLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{})   {}
func (NopLogger) Info(string, ...interface{})    {}
func (NopLogger) Warning(string, ...interface{}) {}
func (NopLogger) Error(string, ...interface{})   {}
func (NopLogger) Fatal(string, ...interface{})   {}
func (NopLogger) Sync() error                    { return nil }
func (NopLogger) ChangeLogLevel(LogLevel)        {}
