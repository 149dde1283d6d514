package cssloader

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

// Discovery finds stylesheets and classifies them by audience.
// Implementations never fail; problems shrink the result instead.
type Discovery interface {
	Discover() Classification
}

// discoveryFilenamePattern is the filename allowlist. HTMLRenderer keeps
// its own copy so that neither check depends on the other.
var discoveryFilenamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*\.css$`)

// SkipReason explains why a directory entry was left out.
type SkipReason string

// Skip reasons recorded in a Report.
const (
	SkipUnresolvable SkipReason = "unresolvable"
	SkipTraversal    SkipReason = "path traversal"
	SkipInvalidName  SkipReason = "invalid filename"
	SkipNotRegular   SkipReason = "not a regular file"
	SkipIgnored      SkipReason = "ignored"
	SkipUnmatched    SkipReason = "no audience match"
)

// SkippedFile is a directory entry that did not make it into the result.
type SkippedFile struct {
	Name   string
	Reason SkipReason
}

// Report is the full outcome of one scan.
type Report struct {
	BaseDirectory  string
	Classification Classification
	Skipped        []SkippedFile
	FilesScanned   int
}

// FilesystemDiscovery scans a single directory (non-recursive) for *.css
// files. It is safe for concurrent use.
type FilesystemDiscovery struct {
	baseDir    string
	audiences  []AudiencePattern
	ignoreFile string
	logger     *zap.Logger

	mu           sync.Mutex
	canonicalDir string
}

// NewFilesystemDiscovery creates a discovery for baseDir. A nil audiences
// slice selects DefaultAudiences.
func NewFilesystemDiscovery(baseDir string, audiences []AudiencePattern, logger *zap.Logger) *FilesystemDiscovery {
	if audiences == nil {
		audiences = DefaultAudiences()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilesystemDiscovery{
		baseDir:   baseDir,
		audiences: audiences,
		logger:    logger.Named("discovery"),
	}
}

// WithIgnoreFile makes the scan honour a gitignore-style file located in
// the base directory. Matching stylesheets are skipped.
func (d *FilesystemDiscovery) WithIgnoreFile(name string) *FilesystemDiscovery {
	d.ignoreFile = name
	return d
}

// BaseDirectory returns the directory being scanned.
func (d *FilesystemDiscovery) BaseDirectory() string {
	return d.baseDir
}

// Audiences returns the configured classification rules.
func (d *FilesystemDiscovery) Audiences() []AudiencePattern {
	return d.audiences
}

// IsValidFilename checks filename against the allowlist: alphanumeric
// first character, then alphanumerics, hyphens or underscores, and a
// lowercase .css extension.
func (d *FilesystemDiscovery) IsValidFilename(filename string) bool {
	return discoveryFilenamePattern.MatchString(filename)
}

// Discover returns stylesheets keyed by audience.
func (d *FilesystemDiscovery) Discover() Classification {
	return d.Scan().Classification
}

// Scan walks the base directory and records every skipped entry.
func (d *FilesystemDiscovery) Scan() Report {
	report := Report{
		BaseDirectory:  d.baseDir,
		Classification: newClassification(d.audiences),
	}

	info, err := os.Stat(d.baseDir)
	if err != nil || !info.IsDir() {
		return report
	}

	base, ok := d.canonicalBase()
	if !ok {
		return report
	}

	// Glob through os.DirFS so that metacharacters in baseDir are not
	// interpreted as part of the pattern.
	names, err := doublestar.Glob(os.DirFS(d.baseDir), "*.css")
	if err != nil {
		d.logger.Warn("listing css directory failed", zap.String("dir", d.baseDir), zap.Error(err))
		return report
	}

	ignorer := d.loadIgnore()

	for _, name := range names {
		report.FilesScanned++

		fullPath := filepath.Join(d.baseDir, name)
		realPath, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			// Broken symlink or vanished file
			report.skip(name, SkipUnresolvable)
			continue
		}

		realPath, err = filepath.Abs(realPath)
		if err != nil {
			report.skip(name, SkipUnresolvable)
			continue
		}

		if !strings.HasPrefix(realPath, base+string(filepath.Separator)) {
			d.logger.Warn("path traversal attempt blocked",
				zap.String("file", fullPath),
				zap.String("resolved", realPath))
			report.skip(name, SkipTraversal)
			continue
		}

		filename := filepath.Base(realPath)
		if !d.IsValidFilename(filename) {
			d.logger.Warn("invalid filename blocked", zap.String("filename", filename))
			report.skip(name, SkipInvalidName)
			continue
		}

		if ignorer != nil && ignorer.MatchesPath(filename) {
			d.logger.Debug("stylesheet ignored", zap.String("filename", filename))
			report.skip(name, SkipIgnored)
			continue
		}

		st, err := os.Stat(realPath)
		if err != nil {
			report.skip(name, SkipUnresolvable)
			continue
		}
		if !st.Mode().IsRegular() {
			report.skip(name, SkipNotRegular)
			continue
		}

		file, err := NewFileInfo(realPath)
		if err != nil {
			report.skip(name, SkipUnresolvable)
			continue
		}

		if audience, ok := d.classify(file.Filename); ok {
			report.Classification[audience] = append(report.Classification[audience], file)
		} else {
			report.skip(name, SkipUnmatched)
		}
	}

	return report
}

// classify returns the first audience whose pattern matches filename.
func (d *FilesystemDiscovery) classify(filename string) (Audience, bool) {
	for _, a := range d.audiences {
		if a.Pattern != nil && a.Pattern.MatchString(filename) {
			return a.Audience, true
		}
	}
	return AudienceNone, false
}

// canonicalBase resolves the base directory once. Failures are not
// cached so a later scan can recover.
func (d *FilesystemDiscovery) canonicalBase() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.canonicalDir != "" {
		return d.canonicalDir, true
	}

	abs, err := filepath.Abs(d.baseDir)
	if err != nil {
		return "", false
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}

	d.canonicalDir = real
	return real, true
}

// loadIgnore compiles the ignore file if one is configured and present.
func (d *FilesystemDiscovery) loadIgnore() *ignore.GitIgnore {
	if d.ignoreFile == "" {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(d.baseDir, d.ignoreFile))
	if err != nil {
		// No ignore file is fine
		return nil
	}
	return gi
}

func (r *Report) skip(name string, reason SkipReason) {
	r.Skipped = append(r.Skipped, SkippedFile{Name: name, Reason: reason})
}

// StaticDiscovery returns a fixed classification. Use it in tests or when
// the file list comes from somewhere other than the filesystem.
type StaticDiscovery struct {
	Result Classification
}

// Discover returns a copy of the fixed result.
func (d StaticDiscovery) Discover() Classification {
	return d.Result.Clone()
}
