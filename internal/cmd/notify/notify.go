// Package notify writes status lines and hints for CLI commands.
// Structured output formats keep stdout machine-readable, so only
// warnings and errors are written for them.
package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/quotesync/internal/cmd/output"
)

// Symbol constants for CLI output.
const (
	Success = "✓"
	Error   = "✗"
	Warning = "!"
	Hint    = "→"
	Stop    = "■"
)

// Notifier writes alerts to one writer and hints to another.
type Notifier struct {
	alerts     io.Writer
	hints      io.Writer
	structured bool
	quiet      bool
}

// Config controls notification behavior.
type Config struct {
	Format      output.Format
	Quiet       bool
	AlertWriter io.Writer // default: stderr
	HintWriter  io.Writer // default: stderr
}

// New creates a Notifier.
func New(cfg Config) *Notifier {
	if cfg.AlertWriter == nil {
		cfg.AlertWriter = os.Stderr
	}
	if cfg.HintWriter == nil {
		cfg.HintWriter = os.Stderr
	}
	return &Notifier{
		alerts:     cfg.AlertWriter,
		hints:      cfg.HintWriter,
		structured: cfg.Format == output.FormatJSON || cfg.Format == output.FormatYAML,
		quiet:      cfg.Quiet,
	}
}

// NewFromCommand creates a Notifier writing to the command's error stream.
func NewFromCommand(cmd *cobra.Command, format output.Format, quiet bool) *Notifier {
	return New(Config{
		Format:      format,
		Quiet:       quiet,
		AlertWriter: cmd.ErrOrStderr(),
		HintWriter:  cmd.ErrOrStderr(),
	})
}

// Success reports a completed operation.
func (n *Notifier) Success(format string, args ...any) {
	if n.structured || n.quiet {
		return
	}
	n.line(n.alerts, Success, format, args...)
}

// Warn reports a non-fatal problem.
func (n *Notifier) Warn(format string, args ...any) {
	n.line(n.alerts, Warning, format, args...)
}

// Error reports a failure.
func (n *Notifier) Error(format string, args ...any) {
	n.line(n.alerts, Error, format, args...)
}

// Hint suggests a follow-up command.
func (n *Notifier) Hint(format string, args ...any) {
	if n.structured || n.quiet {
		return
	}
	n.line(n.hints, Hint, format, args...)
}

func (n *Notifier) line(w io.Writer, symbol, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", symbol, fmt.Sprintf(format, args...))
}
