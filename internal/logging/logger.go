package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mlsetup/internal/config"
)

// Leveled logger writing to stdout and an optional log file.
type Logger struct {
	level   string
	file    *os.File
	verbose bool
}

func NewLogger(cfg *config.Config, verbose bool) (*Logger, error) {
	l := &Logger{
		level:   cfg.Logging.Level,
		verbose: verbose,
	}

	if cfg.Logging.File != "" {
		logDir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			// Fall back to stdout when the log directory cannot be created
			fmt.Printf("[WARN] Failed to create log directory %s: %v\n", logDir, err)
			fmt.Printf("[WARN] Logging to stdout only\n")
			return l, nil
		}

		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("[WARN] Failed to open log file %s: %v\n", cfg.Logging.File, err)
			fmt.Printf("[WARN] Logging to stdout only\n")
			return l, nil
		}
		l.file = f
	}

	return l, nil
}

func (l *Logger) Log(level, message string, fields ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	if len(fields) > 0 {
		entry += fmt.Sprintf(" %v", fields)
	}

	if l.file != nil {
		l.file.WriteString(entry + "\n")
		l.file.Sync()
	}

	if l.verbose || level == "INFO" || level == "WARN" || level == "ERROR" {
		fmt.Println(entry)
	}
}

func (l *Logger) shouldLog(level string) bool {
	levels := map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}
	current := levels[l.level]
	target := levels[level]
	return target >= current
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
