package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResultsFile is where the engine writes its run results, relative to the project
const ResultsFile = "target/run_results.json"

// Status icons
const (
	IconPass = "✅"
	IconFail = "❌"
)

// ResultRow is one normalized engine result
type ResultRow struct {
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Raw      string  `json:"raw_status"`
	Duration float64 `json:"duration"`
	Message  string  `json:"message,omitempty"`
}

// Passed reports whether the row rendered as a pass
func (r ResultRow) Passed() bool {
	return r.Status == IconPass
}

// RenderStatus maps pass and success to a tick, fail and error to a cross,
// and leaves anything else as reported.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "pass", "success":
		return IconPass
	case "fail", "error":
		return IconFail
	default:
		return status
	}
}

type runResults struct {
	Results []struct {
		UniqueID      string  `json:"unique_id"`
		Status        string  `json:"status"`
		ExecutionTime float64 `json:"execution_time"`
		Message       *string `json:"message"`
	} `json:"results"`
}

// ParseResults converts a run_results.json payload into rows
func ParseResults(data []byte) ([]ResultRow, error) {
	var rr runResults
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, fmt.Errorf("failed to parse run results: %w", err)
	}

	rows := make([]ResultRow, 0, len(rr.Results))
	for _, r := range rr.Results {
		row := ResultRow{
			Name:     r.UniqueID,
			Status:   RenderStatus(r.Status),
			Raw:      r.Status,
			Duration: r.ExecutionTime,
		}
		if r.Message != nil {
			row.Message = *r.Message
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadResults loads and parses the results file of a project
func ReadResults(projectDir string) ([]ResultRow, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, ResultsFile))
	if err != nil {
		return nil, err
	}
	return ParseResults(data)
}
