package cssloader

import (
	"slices"

	"go.uber.org/zap"
)

// Orchestrator runs the pipeline for one request.
//
// Prepare must run before any output is produced; InjectIntoBuffer runs
// when the final HTML is available. An Orchestrator is not safe for
// concurrent use: create one per request, or Clear it between reuses.
type Orchestrator struct {
	detector  ContextDetector
	discovery Discovery
	renderer  Renderer
	strategy  InjectionStrategy
	logger    *zap.Logger

	enabled  bool
	prepared bool
	pending  []string
}

// NewOrchestrator wires the four stages together. The orchestrator starts
// enabled and unprepared.
func NewOrchestrator(detector ContextDetector, discovery Discovery, renderer Renderer, strategy InjectionStrategy, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		detector:  detector,
		discovery: discovery,
		renderer:  renderer,
		strategy:  strategy,
		logger:    logger.Named("orchestrator"),
		enabled:   true,
	}
}

// New builds an orchestrator with the filesystem discovery, HTML renderer
// and buffer injection configured from cfg.
func New(cfg Config, detector ContextDetector, logger *zap.Logger) *Orchestrator {
	discovery := NewFilesystemDiscovery(cfg.BaseDirectory, cfg.Audiences, logger).
		WithIgnoreFile(cfg.IgnoreFile)
	o := NewOrchestrator(detector, discovery, NewHTMLRenderer(cfg.BaseURL, logger), BufferInjection{}, logger)
	o.SetEnabled(cfg.Enabled)
	return o
}

// Prepare detects the audience, discovers its stylesheets and renders the
// pending tags. Any previously pending tags are discarded first.
func (o *Orchestrator) Prepare() {
	o.Clear()

	if !o.enabled {
		return
	}

	audience := o.detector.Detect()
	if audience == AudienceNone {
		// API, CLI or otherwise no web context
		return
	}

	files := o.discovery.Discover().Files(audience)
	if len(files) == 0 {
		return
	}

	links := o.renderer.RenderAll(files)
	if len(links) == 0 {
		return
	}

	for _, f := range files {
		o.logger.Debug("stylesheet queued",
			zap.String("audience", string(audience)),
			zap.String("filename", f.Filename))
	}

	o.pending = links
	o.prepared = true
}

// InjectIntoBuffer applies the pending tags to buffer. It does not change
// the orchestrator's state and is safe to call when nothing was prepared.
func (o *Orchestrator) InjectIntoBuffer(buffer string) string {
	return o.strategy.Inject(buffer, o.PendingLinks())
}

// PendingLinks returns a copy of the tags waiting to be injected.
func (o *Orchestrator) PendingLinks() []string {
	return slices.Clone(o.pending)
}

// Prepared reports whether the last Prepare produced at least one tag.
func (o *Orchestrator) Prepared() bool {
	return o.prepared
}

// SetEnabled turns the pipeline on or off for subsequent Prepare calls.
func (o *Orchestrator) SetEnabled(enabled bool) {
	o.enabled = enabled
}

// Enabled reports whether Prepare will do any work.
func (o *Orchestrator) Enabled() bool {
	return o.enabled
}

// Clear drops pending tags and returns to the unprepared state.
func (o *Orchestrator) Clear() {
	o.pending = nil
	o.prepared = false
}

// Detector returns the configured context detector.
func (o *Orchestrator) Detector() ContextDetector {
	return o.detector
}

// Discovery returns the configured discovery.
func (o *Orchestrator) Discovery() Discovery {
	return o.discovery
}

// Renderer returns the configured renderer.
func (o *Orchestrator) Renderer() Renderer {
	return o.renderer
}
