package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/webpilot/pkg/plan"
)

// RunArtifact is the serialized record of one headless run.
type RunArtifact struct {
	Instruction string    `json:"instruction"`
	RunID       string    `json:"run_id,omitempty"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Duration    string    `json:"duration"`

	// Plans holds every compiled plan, continuations included. In
	// plan-only mode it holds the single compiled plan.
	Plans []*plan.Plan `json:"plans,omitempty"`

	// Extracted holds the merged captured values of the run.
	Extracted []plan.Extraction `json:"extracted,omitempty"`

	// FailedStep is set when the run stopped on a step.
	FailedStep *plan.StepFailure `json:"failed_step,omitempty"`

	// Replans counts continuation compiles.
	Replans int `json:"replans"`

	// Error records a fatal error, if any.
	Error string `json:"error,omitempty"`
}

// ArtifactWriter writes run artifacts into an output directory.
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a writer targeting outputDir.
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{outputDir: outputDir}
}

// WriteAll writes the JSON record and the markdown summary.
func (w *ArtifactWriter) WriteAll(artifact *RunArtifact) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := w.writeJSON(artifact); err != nil {
		return err
	}
	return w.writeMarkdown(artifact)
}

func (w *ArtifactWriter) writeJSON(artifact *RunArtifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run artifact: %w", err)
	}
	path := filepath.Join(w.outputDir, "run.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing run artifact: %w", err)
	}
	return nil
}

func (w *ArtifactWriter) writeMarkdown(artifact *RunArtifact) error {
	var md strings.Builder
	md.WriteString("# Webpilot Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Instruction:** %s\n\n", artifact.Instruction))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", artifact.Status))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", artifact.Duration))

	if artifact.Error != "" {
		md.WriteString(fmt.Sprintf("**Error:** %s\n\n", artifact.Error))
	}
	if artifact.FailedStep != nil {
		md.WriteString(fmt.Sprintf("**Failed step:** %d (%s)\n\n",
			artifact.FailedStep.Index+1, artifact.FailedStep.Reason))
	}

	for i, p := range artifact.Plans {
		md.WriteString(fmt.Sprintf("## Plan %d\n\n", i+1))
		for j, action := range p.Actions {
			md.WriteString(fmt.Sprintf("%d. %s\n", j+1, action))
		}
		md.WriteString("\n")
	}

	if len(artifact.Extracted) > 0 {
		md.WriteString("## Extracted\n\n")
		for _, ex := range artifact.Extracted {
			md.WriteString(fmt.Sprintf("- **%s:** %s\n", ex.Label, ex.Text))
		}
		md.WriteString("\n")
	}

	path := filepath.Join(w.outputDir, "summary.md")
	if err := os.WriteFile(path, []byte(md.String()), 0600); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}
