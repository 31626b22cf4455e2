package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// bars render on stderr so --json stdout stays parseable.
var barOutput io.Writer = os.Stderr

type tracker struct {
	bar     *progressbar.ProgressBar
	started time.Time
}

func (t *tracker) Finish() {
	if t.bar != nil {
		_ = t.bar.Finish()
	}
}

func (t *tracker) Duration() time.Duration {
	return time.Since(t.started)
}

func newBar(total int64, description, saucer string, extra ...progressbar.Option) *progressbar.ProgressBar {
	opts := append([]progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(barOutput),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(barOutput) }),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[" + saucer + "]=[reset]",
			SaucerHead:    "[" + saucer + "]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	}, extra...)
	return progressbar.NewOptions64(total, opts...)
}

// ByteProgress is an io.Writer that advances a byte-count bar. Tee upload
// bodies through it.
type ByteProgress struct {
	tracker
}

func NewByteProgress(total int64, description string, quiet bool) *ByteProgress {
	p := &ByteProgress{tracker{started: time.Now()}}
	if !quiet {
		p.bar = newBar(total, description, "cyan",
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionFullWidth(),
		)
	}
	return p
}

func (p *ByteProgress) Write(b []byte) (int, error) {
	if p.bar != nil {
		_ = p.bar.Add(len(b))
	}
	return len(b), nil
}

// PercentProgress tracks transcode progress on a 0..100 scale.
type PercentProgress struct {
	tracker
	current int
}

func NewPercentProgress(description string, quiet bool) *PercentProgress {
	p := &PercentProgress{tracker: tracker{started: time.Now()}}
	if !quiet {
		p.bar = newBar(100, description, "green",
			progressbar.OptionShowCount(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	return p
}

// Set clamps percent to 0..100. An empty description keeps the current label.
func (p *PercentProgress) Set(percent int, description string) {
	p.current = min(max(percent, 0), 100)
	if p.bar == nil {
		return
	}
	if description != "" {
		p.bar.Describe(description)
	}
	_ = p.bar.Set(p.current)
}

func (p *PercentProgress) Current() int {
	return p.current
}
