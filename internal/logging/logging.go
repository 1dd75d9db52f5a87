// Package logging provides component-scoped loggers backed by charmbracelet/log.
//
//	if err := logging.Init(logging.Config{Level: "info", Console: true}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("installer").Info("installed", "path", dest)
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Config configures the logging system
type Config struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string

	// Path is a log file. Empty with Console=false uses DefaultLogPath().
	Path string

	// Console sends output to stderr instead of a file (CLI mode).
	// The TUI owns the terminal and must log to a file.
	Console bool
}

type state struct {
	mu      sync.RWMutex
	level   log.Level
	out     io.Writer
	file    *os.File
	loggers map[string]*log.Logger
}

var global = &state{
	level:   log.InfoLevel,
	out:     io.Discard,
	loggers: make(map[string]*log.Logger),
}

// Init configures output and level. Loggers obtained before Init discard output.
func Init(cfg Config) error {
	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("parsing log level: %w", err)
		}
		level = parsed
	}

	var out io.Writer = os.Stderr
	var file *os.File
	if !cfg.Console {
		path := cfg.Path
		if path == "" {
			path = DefaultLogPath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		out, file = f, f
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.file != nil {
		_ = global.file.Close()
	}
	global.level = level
	global.out = out
	global.file = file
	global.loggers = make(map[string]*log.Logger)

	return nil
}

// Get returns the logger for a component
func Get(component string) *log.Logger {
	global.mu.RLock()
	l, ok := global.loggers[component]
	global.mu.RUnlock()
	if ok {
		return l
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if l, ok := global.loggers[component]; ok {
		return l
	}

	opts := log.Options{
		Level:           global.level,
		Prefix:          component,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}
	if global.file == nil {
		opts.TimeFormat = "15:04:05"
	}
	l = log.NewWithOptions(global.out, opts)
	global.loggers[component] = l
	return l
}

// Close releases the log file, if any, and resets to discarding loggers
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	var err error
	if global.file != nil {
		err = global.file.Close()
		global.file = nil
	}
	global.out = io.Discard
	global.loggers = make(map[string]*log.Logger)
	return err
}

// DefaultLogPath returns $XDG_STATE_HOME/mxbmm/mxbmm.log
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "mxbmm", "mxbmm.log")
}
