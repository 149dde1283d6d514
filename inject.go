package cssloader

import "strings"

// InjectionStrategy places rendered tags into the page.
type InjectionStrategy interface {
	Inject(buffer string, tags []string) string
}

// Markers wrapping the injected block.
const (
	MarkerStart = "<!-- Custom CSS Loader Plugin -->"
	MarkerEnd   = "<!-- /Custom CSS Loader Plugin -->"
)

const (
	headClose   = "</head>"
	blockIndent = "    "
)

// BufferInjection splices tags into an HTML buffer just before the first
// </head>. It is stateless and safe for concurrent use.
type BufferInjection struct{}

// Inject returns buffer with the tag block inserted. Buffers without a
// closing head tag, and calls without tags, come back unchanged.
func (BufferInjection) Inject(buffer string, tags []string) string {
	if len(tags) == 0 {
		return buffer
	}

	pos := indexFoldASCII(buffer, headClose)
	if pos < 0 {
		return buffer
	}

	// Only the first match is touched and the matched tag itself is kept
	// byte for byte.
	return buffer[:pos] + buildBlock(tags) + buffer[pos:]
}

// buildBlock formats the marker-wrapped block, one tag per line.
func buildBlock(tags []string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(blockIndent + MarkerStart + "\n")
	for _, tag := range tags {
		b.WriteString(blockIndent + tag + "\n")
	}
	b.WriteString(blockIndent + MarkerEnd + "\n")
	return b.String()
}

// indexFoldASCII returns the byte offset of the first ASCII
// case-insensitive occurrence of needle in s, or -1.
func indexFoldASCII(s, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(s); i++ {
		match := true
		for j := 0; j < n; j++ {
			if lowerASCII(s[i+j]) != lowerASCII(needle[j]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// HeaderAdder is the host API for adding raw markup to the page head.
type HeaderAdder interface {
	AddExtraHeader(tag string)
}

// HeaderInjection pushes tags through the host's header API instead of
// editing the buffer. Use it when the host exposes one.
type HeaderInjection struct {
	Host HeaderAdder
}

// Inject hands every tag to the host and returns buffer unchanged.
func (h HeaderInjection) Inject(buffer string, tags []string) string {
	if h.Host == nil {
		return buffer
	}
	for _, tag := range tags {
		h.Host.AddExtraHeader(tag)
	}
	return buffer
}
