package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressReporter reports extraction progress with a progress bar. A nil
// or quiet reporter prints nothing.
type progressReporter struct {
	quiet     bool
	out       io.Writer
	fileBar   *progressbar.ProgressBar
	startTime time.Time
}

// newProgressReporter creates a reporter writing to out.
func newProgressReporter(out io.Writer, quiet bool) *progressReporter {
	return &progressReporter{
		quiet:     quiet,
		out:       out,
		startTime: time.Now(),
	}
}

func (c *progressReporter) silent() bool {
	return c == nil || c.quiet
}

func (c *progressReporter) OnDiscoveryComplete(files int) {
	if c.silent() {
		return
	}
	fmt.Fprintf(c.out, "Extracting from %d source files\n", files)
}

func (c *progressReporter) OnParseStart(totalFiles int) {
	if c.silent() {
		return
	}
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Parsing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *progressReporter) OnFileParsed(path string) {
	if c.silent() || c.fileBar == nil {
		return
	}
	c.fileBar.Add(1)
}

func (c *progressReporter) OnParseComplete() {
	if c.silent() || c.fileBar == nil {
		return
	}
	c.fileBar.Finish()
	c.fileBar = nil
}

func (c *progressReporter) OnComplete(stats *extractStats) {
	if c.silent() {
		return
	}
	fmt.Fprintf(c.out, "✓ Extraction complete: %s symbols from %s records in %.1fs\n",
		formatNumber(stats.Symbols), formatNumber(stats.Records), time.Since(c.startTime).Seconds())
	fmt.Fprintf(c.out, "  Symbol graph: %s\n", stats.GraphPath)
	if stats.DBPath != "" {
		fmt.Fprintf(c.out, "  Database:     %s\n", stats.DBPath)
	}
	for _, name := range stats.Removed {
		fmt.Fprintf(c.out, "  Removed stale graph %s\n", name)
	}
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
