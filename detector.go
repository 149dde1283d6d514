package cssloader

import (
	"context"
	"net/http"
	"path"
	"slices"
	"strings"
)

// ContextDetector reports which audience is viewing the current request.
// Implementations must not panic and must not have side effects.
type ContextDetector interface {
	Detect() Audience
}

// IsStaff reports whether d resolves to the staff audience.
func IsStaff(d ContextDetector) bool {
	return d.Detect() == AudienceStaff
}

// IsClient reports whether d resolves to the client audience.
func IsClient(d ContextDetector) bool {
	return d.Detect() == AudienceClient
}

// FixedDetector always returns Audience. Use it in tests and for
// invocations that have no HTTP request, such as the CLI.
type FixedDetector struct {
	Audience Audience
}

// Detect returns the configured audience.
func (d FixedDetector) Detect() Audience {
	return d.Audience
}

type subsystemKey struct{}

// WithSubsystem marks ctx as being served by the given subsystem. Host
// routers call this once they know whether a request belongs to the staff
// panel or the client portal.
func WithSubsystem(ctx context.Context, audience Audience) context.Context {
	return context.WithValue(ctx, subsystemKey{}, audience)
}

// SubsystemFromContext returns the subsystem flag set by WithSubsystem.
func SubsystemFromContext(ctx context.Context) (Audience, bool) {
	a, ok := ctx.Value(subsystemKey{}).(Audience)
	return a, ok && a != AudienceNone
}

// RuntimeDetector derives the audience from host signals.
//
// Detection priority:
//  1. Subsystem, the explicit host flag. Most reliable, but may be unset
//     early in the request.
//  2. Path analysis: staff segment → staff, API segment → none,
//     dynamic-looking page → client.
type RuntimeDetector struct {
	Subsystem         Audience
	Path              string
	StaffPath         string
	APIPath           string
	DynamicExtensions []string
}

// NewRuntimeDetector builds a detector for r using the path rules in cfg.
func NewRuntimeDetector(r *http.Request, cfg Config) RuntimeDetector {
	d := RuntimeDetector{
		StaffPath:         cfg.StaffPath,
		APIPath:           cfg.APIPath,
		DynamicExtensions: cfg.DynamicExtensions,
	}
	if r == nil {
		return d
	}
	if a, ok := SubsystemFromContext(r.Context()); ok {
		d.Subsystem = a
	}
	if r.URL != nil {
		d.Path = r.URL.Path
	}
	return d
}

// Detect resolves the audience, or AudienceNone for API and unknown paths.
func (d RuntimeDetector) Detect() Audience {
	switch d.Subsystem {
	case AudienceStaff, AudienceClient:
		return d.Subsystem
	}

	p := d.Path
	if p == "" {
		return AudienceNone
	}

	if hasSegment(p, d.StaffPath) {
		return AudienceStaff
	}

	// API exclusion outranks the dynamic page heuristic
	if hasSegment(p, d.APIPath) {
		return AudienceNone
	}

	if d.looksDynamic(p) {
		return AudienceClient
	}

	return AudienceNone
}

// hasSegment reports whether p contains segment ("/scp/") or ends with
// its bare form ("/scp").
func hasSegment(p, segment string) bool {
	if segment == "" {
		return false
	}
	if strings.Contains(p, segment) {
		return true
	}
	bare := strings.TrimRight(segment, "/")
	return bare != "" && strings.HasSuffix(p, bare)
}

// looksDynamic reports whether p names a rendered page rather than a
// static asset.
func (d RuntimeDetector) looksDynamic(p string) bool {
	exts := d.DynamicExtensions
	if exts == nil {
		exts = DefaultConfig().DynamicExtensions
	}
	ext := strings.ToLower(path.Ext(path.Base(p)))
	return slices.Contains(exts, ext)
}
