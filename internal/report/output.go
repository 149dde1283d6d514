package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/yacobolo/cssloader"
)

// OutputFormat selects how a report is written
type OutputFormat string

const (
	// OutputText is the human readable listing
	OutputText OutputFormat = "text"
	// OutputJSON is the machine readable export
	OutputJSON OutputFormat = "json"
)

// DetermineOutputFormat maps the --output-format flag to a format.
// Unknown values fall back to text.
func DetermineOutputFormat(formatFlag string) OutputFormat {
	switch formatFlag {
	case "json":
		return OutputJSON
	default:
		return OutputText
	}
}

// JSONOutput represents the structured JSON export schema
type JSONOutput struct {
	Version       string         `json:"version"`
	Timestamp     string         `json:"timestamp"`
	BaseDirectory string         `json:"base_directory"`
	Summary       JSONSummary    `json:"summary"`
	Audiences     []JSONAudience `json:"audiences"`
	Skipped       []JSONSkipped  `json:"skipped"`
}

// JSONSummary contains the file counts
type JSONSummary struct {
	FilesScanned int `json:"files_scanned"`
	Served       int `json:"served"`
	Skipped      int `json:"skipped"`
}

// JSONAudience lists the stylesheets of one audience
type JSONAudience struct {
	Name  string     `json:"name"`
	Files []JSONFile `json:"files"`
}

// JSONFile is a single stylesheet
type JSONFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	ModTime  int64  `json:"mtime"`
	Tag      string `json:"tag,omitempty"`
}

// JSONSkipped is a directory entry left out of the result
type JSONSkipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// WriteJSON writes rep as indented JSON. When renderer is non-nil each
// file carries its rendered tag.
func WriteJSON(w io.Writer, rep cssloader.Report, order []cssloader.Audience, renderer cssloader.Renderer, version string) error {
	output := BuildJSONOutput(rep, order, renderer, version)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// BuildJSONOutput converts a Report to JSONOutput
func BuildJSONOutput(rep cssloader.Report, order []cssloader.Audience, renderer cssloader.Renderer, version string) JSONOutput {
	output := JSONOutput{
		Version:       version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		BaseDirectory: rep.BaseDirectory,
		Summary: JSONSummary{
			FilesScanned: rep.FilesScanned,
			Served:       rep.Classification.Total(),
			Skipped:      len(rep.Skipped),
		},
		Audiences: make([]JSONAudience, 0, len(order)),
		Skipped:   make([]JSONSkipped, 0, len(rep.Skipped)),
	}

	for _, audience := range order {
		files := rep.Classification.Files(audience)
		ja := JSONAudience{Name: string(audience), Files: make([]JSONFile, 0, len(files))}
		for _, f := range files {
			jf := JSONFile{Filename: f.Filename, Path: f.Path, ModTime: f.ModTime}
			if renderer != nil {
				jf.Tag = renderer.Render(f)
			}
			ja.Files = append(ja.Files, jf)
		}
		output.Audiences = append(output.Audiences, ja)
	}

	for _, s := range rep.Skipped {
		output.Skipped = append(output.Skipped, JSONSkipped{Name: s.Name, Reason: string(s.Reason)})
	}

	return output
}
