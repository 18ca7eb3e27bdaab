// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-survey/internal/aggregate"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// QueryFile is a saved query, optionally with the results it produced. A
// file holding only the query section can be written by hand and passed to
// the search command.
type QueryFile struct {
	Query   types.StructuredQuery   `yaml:"query"`
	Results []types.CanonicalRecord `yaml:"results,omitempty"`
	Summary *QuerySummary           `yaml:"summary,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Counts       types.Counts      `yaml:"counts"`
	SourceErrors map[string]string `yaml:"source_errors,omitempty"`
	Timestamp    time.Time         `yaml:"timestamp"`
}

// WriteQueryFile saves the query and its results to a YAML file.
func WriteQueryFile(path string, res aggregate.Result, now time.Time) error {
	qf := QueryFile{
		Query:   res.Query,
		Results: res.Records,
		Summary: &QuerySummary{
			Counts:       res.Counts,
			SourceErrors: res.SourceErrors,
			Timestamp:    now.UTC(),
		},
	}
	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}
