// Package cssloader injects audience-specific stylesheets into HTML pages
// served by a host application.
//
// The pipeline has four stages, each behind its own interface:
//
//  1. ContextDetector decides who is viewing the page (staff or client).
//  2. Discovery scans a directory for *.css files and classifies them by
//     audience, rejecting symlink escapes and unsafe filenames.
//  3. Renderer turns each file into an escaped <link> tag with a
//     cache-busting ?v=<mtime> parameter.
//  4. InjectionStrategy splices the tags in front of the first </head>.
//
// An Orchestrator runs the stages in two phases: Prepare as early as
// possible in the request, InjectIntoBuffer when the final HTML is known.
//
// # Library
//
//	cfg := cssloader.DefaultConfig()
//	cfg.BaseDirectory = "/srv/helpdesk/assets/custom/css"
//	cfg.BaseURL = "/assets/custom/css"
//
//	orch := cssloader.New(cfg, cssloader.FixedDetector{Audience: cssloader.AudienceStaff}, logger)
//	orch.Prepare()
//	html = orch.InjectIntoBuffer(html)
//
// # HTTP hosts
//
//	mw := cssloader.NewMiddleware(cfg, logger)
//	http.ListenAndServe(":8080", mw.Handler(app))
//
// Each request gets its own Orchestrator; never share one across requests.
//
// # CLI Tool
//
//	go install github.com/yacobolo/cssloader/cmd/cssloader@latest
package cssloader
