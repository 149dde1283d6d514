package cssloader

import (
	"bufio"
	"bytes"
	"context"
	"mime"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Middleware injects stylesheets into HTML responses of a host handler.
//
// Discovery, rendering and injection are shared across requests; every
// request gets its own Orchestrator and RuntimeDetector.
type Middleware struct {
	cfg       Config
	discovery Discovery
	renderer  Renderer
	strategy  InjectionStrategy
	logger    *zap.Logger
}

// NewMiddleware builds a middleware with the production components for cfg.
func NewMiddleware(cfg Config, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	discovery := NewFilesystemDiscovery(cfg.BaseDirectory, cfg.Audiences, logger).
		WithIgnoreFile(cfg.IgnoreFile)
	return &Middleware{
		cfg:       cfg,
		discovery: discovery,
		renderer:  NewHTMLRenderer(cfg.BaseURL, logger),
		strategy:  BufferInjection{},
		logger:    logger.Named("middleware"),
	}
}

// WithDiscovery replaces the discovery, e.g. with a WatchedDiscovery.
func (m *Middleware) WithDiscovery(d Discovery) *Middleware {
	m.discovery = d
	return m
}

// Watch serves discovery results from a cache that is dropped whenever
// the CSS directory changes. The returned WatchedDiscovery must be closed
// by the caller. On error the middleware keeps scanning on every request.
func (m *Middleware) Watch(ctx context.Context) (*WatchedDiscovery, error) {
	watched, err := NewWatchedDiscovery(m.discovery, m.cfg.BaseDirectory, m.logger)
	if err != nil {
		m.logger.Warn("css directory not watched", zap.String("dir", m.cfg.BaseDirectory), zap.Error(err))
		return nil, err
	}
	watched.Start(ctx)
	m.discovery = watched
	return watched, nil
}

// Handler wraps next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orch := NewOrchestrator(NewRuntimeDetector(r, m.cfg), m.discovery, m.renderer, m.strategy, m.logger)
		orch.SetEnabled(m.cfg.Enabled)
		orch.Prepare()

		if !orch.Prepared() {
			next.ServeHTTP(w, r)
			return
		}

		bw := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(bw, r)
		bw.flush(orch)
	})
}

// bufferedWriter holds the response until the handler returns so that the
// full document can be rewritten. Flush and Hijack end buffering: the
// response is then streamed (or handed over) without injection.
type bufferedWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer

	streaming bool
	hijacked  bool
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.streaming || b.hijacked {
		return
	}
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.hijacked {
		return 0, http.ErrHijacked
	}
	if b.streaming {
		return b.ResponseWriter.Write(p)
	}
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.buf.Write(p)
}

// Flush gives up on injection, writes out what is buffered and switches
// to pass-through.
func (b *bufferedWriter) Flush() {
	if b.hijacked {
		return
	}
	if !b.streaming {
		b.stream()
	}
	_ = http.NewResponseController(b.ResponseWriter).Flush()
}

// Hijack hands the connection to the handler; nothing is written
// afterwards.
func (b *bufferedWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(b.ResponseWriter).Hijack()
	if err != nil {
		return nil, nil, err
	}
	b.hijacked = true
	b.buf.Reset()
	return conn, rw, nil
}

// Unwrap lets http.NewResponseController reach the underlying writer.
func (b *bufferedWriter) Unwrap() http.ResponseWriter {
	return b.ResponseWriter
}

// stream writes the status and the buffered bytes untouched.
func (b *bufferedWriter) stream() {
	b.streaming = true
	if b.Header().Get("Content-Type") == "" && b.buf.Len() > 0 {
		b.Header().Set("Content-Type", http.DetectContentType(b.buf.Bytes()))
	}
	b.ResponseWriter.WriteHeader(b.status)
	if b.buf.Len() > 0 {
		_, _ = b.ResponseWriter.Write(b.buf.Bytes())
		b.buf.Reset()
	}
}

// flush writes the buffered response, injecting into HTML bodies.
func (b *bufferedWriter) flush(orch *Orchestrator) {
	if b.hijacked || b.streaming {
		return
	}

	body := b.buf.Bytes()
	h := b.Header()

	if h.Get("Content-Type") == "" && len(body) > 0 {
		h.Set("Content-Type", http.DetectContentType(body))
	}

	if isInjectable(h) {
		out := orch.InjectIntoBuffer(string(body))
		if len(out) != len(body) {
			body = []byte(out)
			h.Set("Content-Length", strconv.Itoa(len(body)))
		}
	}

	b.ResponseWriter.WriteHeader(b.status)
	_, _ = b.ResponseWriter.Write(body)
}

// isInjectable reports whether the response is uncompressed HTML.
func isInjectable(h http.Header) bool {
	if enc := h.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "text/html"
}
