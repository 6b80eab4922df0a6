// Package report writes the per-message outcome of a run.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"fjacquet/anapay2zaim/internal/fileutils"
	"fjacquet/anapay2zaim/internal/logging"
	"fjacquet/anapay2zaim/internal/models"

	"github.com/gocarina/gocsv"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Generator renders run results.
type Generator struct {
	logger    logging.Logger
	delimiter rune
}

// NewGenerator creates a Generator writing comma-separated CSV.
func NewGenerator(logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Generator{logger: logger, delimiter: ','}
}

// SetDelimiter changes the CSV delimiter.
func (g *Generator) SetDelimiter(delim rune) {
	g.delimiter = delim
}

// jsonReport is the JSON rendering of a run.
type jsonReport struct {
	RunID      string           `json:"run_id,omitempty"`
	Processed  int              `json:"processed"`
	Registered int              `json:"registered"`
	Errors     int              `json:"errors"`
	Outcomes   []models.Outcome `json:"outcomes"`
}

// Generate renders result in the given format ("csv" or "json").
func (g *Generator) Generate(runID string, result models.RunResult, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return g.generateCSV(result)
	case FormatJSON:
		return g.generateJSON(runID, result)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *Generator) generateCSV(result models.RunResult) ([]byte, error) {
	outcomes := result.Outcomes
	if outcomes == nil {
		outcomes = []models.Outcome{}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = g.delimiter
	if err := gocsv.MarshalCSV(&outcomes, gocsv.NewSafeCSVWriter(w)); err != nil {
		return nil, fmt.Errorf("error writing CSV data: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) generateJSON(runID string, result models.RunResult) ([]byte, error) {
	outcomes := result.Outcomes
	if outcomes == nil {
		outcomes = []models.Outcome{}
	}
	data, err := json.MarshalIndent(jsonReport{
		RunID:      runID,
		Processed:  result.Processed,
		Registered: result.Registered,
		Errors:     result.Errors,
		Outcomes:   outcomes,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return data, nil
}

// FormatForPath picks the format from the file extension; anything but .json is CSV.
func FormatForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// WriteFile renders result to path, creating parent directories.
func (g *Generator) WriteFile(path, runID string, result models.RunResult) error {
	data, err := g.Generate(runID, result, FormatForPath(path))
	if err != nil {
		return err
	}

	if err := fileutils.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}

	g.logger.Info("Run report written",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldCount, len(result.Outcomes)))
	return nil
}
