package adapters

import (
	"fmt"
	"io"
	"os"
	"sync"

	"jobharvest/internal/logging/types"
)

// StdoutConfig represents configuration for the stdout adapter
type StdoutConfig struct {
	Format    string `yaml:"format"`    // json or text
	Colorized bool   `yaml:"colorized"` // only applies to text
	Stderr    bool   `yaml:"stderr"`
}

// StdoutAdapter writes entries to stdout (or stderr), one line each
type StdoutAdapter struct {
	name      string
	format    string
	colorized bool
	out       io.Writer
	mu        sync.Mutex
}

// NewStdoutAdapter creates a new stdout adapter
func NewStdoutAdapter(name string, config StdoutConfig) *StdoutAdapter {
	var out io.Writer = os.Stdout
	if config.Stderr {
		out = os.Stderr
	}
	return NewWriterAdapter(name, out, config)
}

// NewWriterAdapter is a stdout-style adapter over an arbitrary writer
func NewWriterAdapter(name string, out io.Writer, config StdoutConfig) *StdoutAdapter {
	return &StdoutAdapter{
		name:      name,
		format:    config.Format,
		colorized: config.Colorized,
		out:       out,
	}
}

// Write writes a log entry
func (a *StdoutAdapter) Write(entry *types.LogEntry) error {
	output, err := format(entry, a.format, a.colorized)
	if err != nil {
		return fmt.Errorf("failed to format log entry: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = fmt.Fprintln(a.out, output)
	return err
}

func (a *StdoutAdapter) Close() error { return nil }
func (a *StdoutAdapter) Name() string { return a.name }
