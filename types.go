package cssloader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
)

// Audience identifies who a stylesheet is meant for.
type Audience string

// Built-in audiences. AudienceNone means no web context was detected.
const (
	AudienceNone   Audience = ""
	AudienceStaff  Audience = "staff"
	AudienceClient Audience = "client"
)

// FileInfo describes a discovered stylesheet. It is a value type and
// never changes after construction.
type FileInfo struct {
	Path     string // Canonical absolute path
	Filename string // Base name only
	ModTime  int64  // Unix seconds, 0 if unknown
}

// NewFileInfo stats path and returns its descriptor.
// It fails only when path does not exist.
func NewFileInfo(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("css file does not exist: %s: %w", path, err)
	}

	var mtime int64
	if t := info.ModTime(); !t.IsZero() && t.Unix() > 0 {
		mtime = t.Unix()
	}

	return FileInfo{
		Path:     path,
		Filename: filepath.Base(path),
		ModTime:  mtime,
	}, nil
}

// Classification maps an audience to its stylesheets in discovery order.
type Classification map[Audience][]FileInfo

// newClassification returns a classification with an empty slice for
// every configured audience.
func newClassification(audiences []AudiencePattern) Classification {
	c := make(Classification, len(audiences))
	for _, a := range audiences {
		c[a.Audience] = []FileInfo{}
	}
	return c
}

// Files returns the stylesheets for audience (nil when there are none).
func (c Classification) Files(audience Audience) []FileInfo {
	return c[audience]
}

// Total returns the number of classified files across all audiences.
func (c Classification) Total() int {
	n := 0
	for _, files := range c {
		n += len(files)
	}
	return n
}

// Clone returns a copy that shares no slices with c.
func (c Classification) Clone() Classification {
	out := make(Classification, len(c))
	for k, v := range c {
		out[k] = slices.Clone(v)
	}
	return out
}

// AudiencePattern is one classification rule. Rules are evaluated in
// order and the first matching rule wins.
type AudiencePattern struct {
	Audience Audience
	Pattern  *regexp.Regexp
}

// DefaultAudiences returns the staff/client rules (case-insensitive
// substring match on the filename).
func DefaultAudiences() []AudiencePattern {
	return []AudiencePattern{
		{Audience: AudienceStaff, Pattern: regexp.MustCompile(`(?i)staff`)},
		{Audience: AudienceClient, Pattern: regexp.MustCompile(`(?i)client`)},
	}
}

// ParseAudiences compiles ordered name/pattern pairs into rules.
func ParseAudiences(pairs [][2]string) ([]AudiencePattern, error) {
	out := make([]AudiencePattern, 0, len(pairs))
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		name, expr := p[0], p[1]
		if name == "" {
			return nil, fmt.Errorf("audience name cannot be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate audience %q", name)
		}
		seen[name] = true

		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("audience %q: invalid pattern %q: %w", name, expr, err)
		}
		out = append(out, AudiencePattern{Audience: Audience(name), Pattern: re})
	}
	return out, nil
}

// Config holds pipeline configuration. The core only reads it.
type Config struct {
	Enabled       bool              // Master switch (default: true)
	BaseDirectory string            // Absolute path of the CSS directory
	BaseURL       string            // Public URL prefix for the directory
	Audiences     []AudiencePattern // Ordered classification rules
	IgnoreFile    string            // Optional gitignore-style file inside BaseDirectory

	// Request path fallback rules for RuntimeDetector
	StaffPath         string   // Staff panel segment (default: "/scp/")
	APIPath           string   // API segment (default: "/api/")
	DynamicExtensions []string // Extensions that mark a dynamic page
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		BaseURL:           "/assets/custom/css",
		Audiences:         DefaultAudiences(),
		IgnoreFile:        ".cssignore",
		StaffPath:         "/scp/",
		APIPath:           "/api/",
		DynamicExtensions: []string{"", ".php", ".html", ".htm"},
	}
}
