package reporter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"
)

// SpectreHubEnvelope is the spectre/v1 cross-tool ingestion format.
type SpectreHubEnvelope struct {
	Schema    string              `json:"schema"`
	Tool      string              `json:"tool"`
	Version   string              `json:"version"`
	Timestamp string              `json:"timestamp"`
	RunID     string              `json:"run_id,omitempty"`
	Target    SpectreHubTarget    `json:"target"`
	Findings  []SpectreHubFinding `json:"findings"`
	Summary   SpectreHubSummary   `json:"summary"`
}

// SpectreHubTarget describes the scanned system.
type SpectreHubTarget struct {
	Type     string `json:"type"`
	URIHash  string `json:"uri_hash"`
	Database string `json:"database,omitempty"`
}

// SpectreHubFinding is a single finding in the spectre/v1 format.
type SpectreHubFinding struct {
	ID       string         `json:"id"`
	Severity string         `json:"severity"`
	Location string         `json:"location"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SpectreHubSummary counts findings by severity.
type SpectreHubSummary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Info   int `json:"info"`
}

// HashURI produces a sha256 hash of the URI with credentials stripped.
func HashURI(rawURI string) string {
	u, err := url.Parse(rawURI)
	if err != nil {
		h := sha256.Sum256([]byte(rawURI))
		return fmt.Sprintf("sha256:%x", h)
	}
	u.User = nil
	h := sha256.Sum256([]byte(u.String()))
	return fmt.Sprintf("sha256:%x", h)
}

// hashRepo hashes the absolute repository path.
func hashRepo(repo string) string {
	if abs, err := filepath.Abs(repo); err == nil {
		repo = abs
	}
	h := sha256.Sum256([]byte(filepath.ToSlash(repo)))
	return fmt.Sprintf("sha256:%x", h)
}

func writeSpectreHub(w io.Writer, report *Report) error {
	target := SpectreHubTarget{Type: "repository"}
	switch {
	case report.Metadata.URIHash != "":
		target = SpectreHubTarget{Type: "postgresql", URIHash: report.Metadata.URIHash, Database: report.Metadata.Database}
	case report.Metadata.Repo != "":
		target.URIHash = hashRepo(report.Metadata.Repo)
	}

	envelope := SpectreHubEnvelope{
		Schema:    "spectre/v1",
		Tool:      "sqlspectre",
		Version:   report.Metadata.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RunID:     report.Metadata.RunID,
		Target:    target,
		Summary: SpectreHubSummary{
			Total:  report.Summary.Total,
			High:   report.Summary.High,
			Medium: report.Summary.Medium,
			Low:    report.Summary.Low,
			Info:   report.Summary.Info,
		},
		Findings: make([]SpectreHubFinding, 0, len(report.Findings)),
	}

	for _, f := range report.Findings {
		var meta map[string]any
		if obj := objectName(f); obj != "" && f.File != "" {
			meta = map[string]any{"object": obj}
		}
		envelope.Findings = append(envelope.Findings, SpectreHubFinding{
			ID:       string(f.Type),
			Severity: string(f.Severity),
			Location: location(f),
			Message:  f.Message,
			Metadata: meta,
		})
	}

	return writeJSON(w, envelope)
}
