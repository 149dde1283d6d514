package cssloader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Renderer turns file descriptors into HTML tags.
type Renderer interface {
	Render(file FileInfo) string
	RenderAll(files []FileInfo) []string
}

// renderFilenamePattern is the renderer's own copy of the allowlist; files
// can reach the renderer without passing through FilesystemDiscovery.
var renderFilenamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*\.css$`)

// HTMLRenderer renders <link rel="stylesheet"> tags below a base URL.
type HTMLRenderer struct {
	baseURL string
	logger  *zap.Logger
}

// NewHTMLRenderer creates a renderer for files served under baseURL
// (e.g. "/assets/custom/css").
func NewHTMLRenderer(baseURL string, logger *zap.Logger) *HTMLRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTMLRenderer{
		baseURL: baseURL,
		logger:  logger.Named("renderer"),
	}
}

// BaseURL returns the URL prefix.
func (r *HTMLRenderer) BaseURL() string {
	return r.baseURL
}

// IsValidFilename checks filename against the renderer's allowlist.
func (r *HTMLRenderer) IsValidFilename(filename string) bool {
	return renderFilenamePattern.MatchString(filename)
}

// Render returns the link tag for file, or "" when the filename is not
// allowed.
func (r *HTMLRenderer) Render(file FileInfo) string {
	if !r.IsValidFilename(file.Filename) {
		r.logger.Warn("invalid filename blocked in renderer", zap.String("filename", file.Filename))
		return ""
	}

	// Escaped for a double-quoted attribute value
	return fmt.Sprintf(`<link rel="stylesheet" href="%s">`, html.EscapeString(r.url(file)))
}

// RenderAll renders files in order, dropping rejected ones.
func (r *HTMLRenderer) RenderAll(files []FileInfo) []string {
	return renderAll(r, files)
}

// url joins the base URL and filename and appends the cache-busting token.
func (r *HTMLRenderer) url(file FileInfo) string {
	u := strings.TrimRight(r.baseURL, "/") + "/" + file.Filename
	if file.ModTime > 0 {
		u += "?v=" + strconv.FormatInt(file.ModTime, 10)
	}
	return u
}

// StaticRenderer returns pre-built tags keyed by filename. Unknown files
// render as "".
type StaticRenderer struct {
	Tags map[string]string
}

// Render looks up the tag for file.
func (r StaticRenderer) Render(file FileInfo) string {
	return r.Tags[file.Filename]
}

// RenderAll renders files in order, dropping unknown ones.
func (r StaticRenderer) RenderAll(files []FileInfo) []string {
	return renderAll(r, files)
}

func renderAll(r interface{ Render(FileInfo) string }, files []FileInfo) []string {
	links := make([]string, 0, len(files))
	for _, f := range files {
		if link := r.Render(f); link != "" {
			links = append(links, link)
		}
	}
	return links
}
