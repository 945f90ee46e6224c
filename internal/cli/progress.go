package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// scanProgress reports baseline progress with a progress bar. All methods
// are safe for concurrent use and do nothing when quiet.
type scanProgress struct {
	quiet     bool
	out       io.Writer
	startTime time.Time

	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	failed int
}

func newScanProgress(out io.Writer, quiet bool) *scanProgress {
	return &scanProgress{quiet: quiet, out: out, startTime: time.Now()}
}

func (p *scanProgress) OnDiscoveryComplete(files int) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "Scanning %s source files\n", humanize.Comma(int64(files)))
}

func (p *scanProgress) OnScanStart(total int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Parsing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.out)
		}),
	)
}

func (p *scanProgress) OnFileScanned(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failed++
	}
	if p.quiet || p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *scanProgress) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

func (p *scanProgress) OnComplete(functions, documented int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
	failed := p.failed
	p.mu.Unlock()

	fmt.Fprintf(p.out, "✓ Scan complete: %s functions, %s documented (took %.1fs)\n",
		humanize.Comma(int64(functions)), humanize.Comma(int64(documented)),
		time.Since(p.startTime).Seconds())
	if failed > 0 {
		fmt.Fprintf(p.out, "  %s files could not be parsed\n", humanize.Comma(int64(failed)))
	}
}
