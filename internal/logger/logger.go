package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"photocurator/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// maxLogSizeMB caps a single log file before it is rotated.
	maxLogSizeMB = 1
	// maxLogBackups is the number of rotated files kept per level.
	maxLogBackups = 5
)

// Logger provides leveled logging (info/warning/error) to rotated files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      map[string]*lumberjack.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
		files:  make(map[string]*lumberjack.Logger),
	}

	logger.setupLoggers(os.Stdout, os.Stderr)
	return logger
}

// NewDiscard returns a Logger that writes nowhere. Used by tests and tools.
func NewDiscard() *Logger {
	l := &Logger{files: make(map[string]*lumberjack.Logger)}
	l.infoLog = log.New(io.Discard, "", 0)
	l.warningLog = log.New(io.Discard, "", 0)
	l.errorLog = log.New(io.Discard, "", 0)
	return l
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers(stdout, stderr io.Writer) {
	infoWriter := io.MultiWriter(stdout, l.openLogFile("info.log"))
	warningWriter := io.MultiWriter(stdout, l.openLogFile("warning.log"))
	errorWriter := io.MultiWriter(stderr, l.openLogFile("error.log"))

	l.infoLog = log.New(infoWriter, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

// openLogFile returns a size-rotated writer for the given file name.
func (l *Logger) openLogFile(filename string) *lumberjack.Logger {
	w := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, filename),
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
	}
	l.files[filename] = w
	return w
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) {
	l.mu.Lock()
	w, ok := l.files[fileName]
	l.mu.Unlock()

	if ok {
		// lumberjack reopens the file lazily on the next write
		w.Close()
	}

	filePath := filepath.Join(l.logDir, fileName)
	if err := os.Truncate(filePath, 0); err != nil {
		l.Error("Error truncating file %s: %v", fileName, err)
		return
	}

	l.Info("File content has been cleared.")
}

// Close flushes and closes all rotated log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, w := range l.files {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
