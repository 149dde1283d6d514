package report

import (
	"fmt"
	"io"
	"os"

	"github.com/yacobolo/cssloader"
)

// Options controls the text reporter.
type Options struct {
	UseColors bool
	// Verbose also lists skipped directory entries.
	Verbose bool
}

// Reporter prints discovery results for humans
type Reporter struct {
	w         io.Writer
	useColors bool
	verbose   bool
}

// NewReporter creates a reporter writing to w
func NewReporter(w io.Writer, opts Options) *Reporter {
	return &Reporter{
		w:         w,
		useColors: ShouldUseColors(opts.UseColors),
		verbose:   opts.Verbose,
	}
}

// ShouldUseColors determines if colors should be enabled
func ShouldUseColors(force bool) bool {
	// Explicit flag wins
	if force {
		return true
	}

	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	// CI systems that render ANSI
	if os.Getenv("FORCE_COLOR") != "" || os.Getenv("GITHUB_ACTIONS") == "true" {
		return true
	}

	if fileInfo, err := os.Stdout.Stat(); err == nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		return true
	}

	return false
}

// UseColors returns whether colors are enabled
func (r *Reporter) UseColors() bool {
	return r.useColors
}

// PrintReport lists the stylesheets of every audience in order, then the
// skipped entries when verbose, then a summary.
func (r *Reporter) PrintReport(rep cssloader.Report, order []cssloader.Audience) {
	fmt.Fprintf(r.w, "%s %s\n",
		RenderStyle(StyleCyan, "CSS directory:", r.useColors),
		RenderStyle(StyleGray, rep.BaseDirectory, r.useColors))

	for _, audience := range order {
		r.printAudience(audience, rep.Classification.Files(audience))
	}

	if r.verbose {
		r.PrintSkipped(rep.Skipped)
	}

	r.PrintSummary(rep)
}

func (r *Reporter) printAudience(audience cssloader.Audience, files []cssloader.FileInfo) {
	fmt.Fprintln(r.w, "")
	fmt.Fprintf(r.w, "%s (%s)\n",
		RenderStyle(StyleCyan, string(audience), r.useColors),
		pluralizeCount(len(files), "file", "files"))

	if len(files) == 0 {
		fmt.Fprintln(r.w, RenderStyle(StyleGray, "  (none)", r.useColors))
		return
	}

	for _, f := range files {
		fmt.Fprintf(r.w, "  %s %s\n",
			RenderStyle(StyleGreen, f.Filename, r.useColors),
			RenderStyle(StyleGray, fmt.Sprintf("v=%d", f.ModTime), r.useColors))
	}
}

// PrintSkipped lists the entries discovery left out and why
func (r *Reporter) PrintSkipped(skipped []cssloader.SkippedFile) {
	if len(skipped) == 0 {
		return
	}

	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleYellow, "Skipped", r.useColors))
	fmt.Fprintln(r.w, "-------")

	for _, s := range skipped {
		style := StyleYellow
		if isBlocked(s.Reason) {
			style = StyleRed
		}
		fmt.Fprintf(r.w, "• %s %s\n", s.Name, RenderStyle(style, "("+string(s.Reason)+")", r.useColors))
	}
}

// PrintSummary outputs the file counts
func (r *Reporter) PrintSummary(rep cssloader.Report) {
	fmt.Fprintln(r.w, "")
	fmt.Fprintf(r.w, "%s scanned, %s served, %s skipped\n",
		pluralizeCount(rep.FilesScanned, "entry", "entries"),
		pluralizeCount(rep.Classification.Total(), "stylesheet", "stylesheets"),
		pluralizeCount(len(rep.Skipped), "entry", "entries"))

	if !r.verbose && len(rep.Skipped) > 0 {
		fmt.Fprintln(r.w, RenderStyle(StyleGray, "Hint: Run with --verbose to see skipped entries", r.useColors))
	}
}

// PrintTags writes rendered link tags one per line
func (r *Reporter) PrintTags(tags []string) {
	for _, tag := range tags {
		fmt.Fprintln(r.w, tag)
	}
}

// isBlocked reports whether the entry was refused for security reasons
func isBlocked(reason cssloader.SkipReason) bool {
	return reason == cssloader.SkipTraversal || reason == cssloader.SkipInvalidName
}

// pluralizeCount returns a formatted string with count and singular/plural form
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
