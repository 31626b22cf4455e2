// Package output renders lc results for humans or, with --json, for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer writes human output to out and errors to errOut. JSON mode
// silences everything except JSON and errors, which are then printed as
// {"error": "..."} objects.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	json   bool
	quiet  bool
}

type Option func(*Printer)

func WithJSON(on bool) Option       { return func(p *Printer) { p.json = on } }
func WithQuiet(on bool) Option      { return func(p *Printer) { p.quiet = on } }
func WithOutput(w io.Writer) Option { return func(p *Printer) { p.out = w } }

func WithErrOutput(w io.Writer) Option { return func(p *Printer) { p.errOut = w } }

// WithNoColor turns color off process-wide; fatih/color has no per-writer switch.
func WithNoColor(off bool) Option {
	return func(*Printer) {
		if off {
			color.NoColor = true
		}
	}
}

func New(opts ...Option) *Printer {
	p := &Printer{out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Out is where tables and other rendered blocks should be written.
func (p *Printer) Out() io.Writer { return p.out }

func (p *Printer) human() bool { return !p.quiet && !p.json }

func (p *Printer) Printf(format string, args ...any) {
	if p.human() {
		fmt.Fprintf(p.out, format, args...)
	}
}

func (p *Printer) Println(args ...any) {
	if p.human() {
		fmt.Fprintln(p.out, args...)
	}
}

func (p *Printer) Success(format string, args ...any) {
	p.line(p.out, color.GreenString("✓"), format, args)
}

func (p *Printer) Info(format string, args ...any) {
	p.line(p.out, color.CyanString("→"), format, args)
}

// Warn goes to errOut so piped stdout stays clean.
func (p *Printer) Warn(format string, args ...any) {
	p.line(p.errOut, color.YellowString("!"), format, args)
}

// Error prints even in quiet mode.
func (p *Printer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.json {
		_ = json.NewEncoder(p.errOut).Encode(map[string]string{"error": msg})
		return
	}
	fmt.Fprintf(p.errOut, "%s %s\n", color.RedString("✗"), msg)
}

func (p *Printer) line(w io.Writer, icon, format string, args []any) {
	if p.human() {
		fmt.Fprintf(w, "%s %s\n", icon, fmt.Sprintf(format, args...))
	}
}

func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) Section(title string) {
	if p.human() {
		fmt.Fprintf(p.out, "\n%s\n", color.New(color.Bold, color.FgCyan).Sprint(title))
	}
}

func (p *Printer) KeyValue(key, value string) {
	if p.human() {
		fmt.Fprintf(p.out, "  %s: %s\n", color.HiBlackString(key), value)
	}
}

// Status renders a video status with its color.
func Status(status string) string {
	switch status {
	case "COMPLETED":
		return color.GreenString(status)
	case "FAILED":
		return color.RedString(status)
	case "PROCESSING":
		return color.YellowString(status)
	default:
		return color.HiBlackString(status)
	}
}
