// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-search/pkg/types"
)

// ResultFile is the on-disk form of a finished search: the query as typed,
// how it was rewritten, and the merged papers. It can be reloaded and
// re-rendered without contacting any API.
type ResultFile struct {
	Query   ResultQuery           `yaml:"query"`
	Results types.MergedResultSet `yaml:"results"`
	Summary ResultSummary         `yaml:"summary"`
}

// ResultQuery records the query and its enhancement.
type ResultQuery struct {
	Text        string                `yaml:"text"`
	Filters     types.Filters         `yaml:"filters,omitempty"`
	Rewritten   string                `yaml:"rewritten,omitempty"`
	Tier        types.EnhancementTier `yaml:"tier,omitempty"`
	Confidence  float64               `yaml:"confidence"`
	Explanation []string              `yaml:"explanation,omitempty"`
}

// ResultSummary stores result statistics and a timestamp.
type ResultSummary struct {
	Shown             int       `yaml:"shown"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	SourceErrors      []string  `yaml:"source_errors,omitempty"`
	Timestamp         time.Time `yaml:"timestamp"`
}

// WriteResultFile saves a search and its results to a YAML file.
func WriteResultFile(path string, q types.SearchQuery, params types.EnhancedQueryParams, set types.MergedResultSet, sourceErrors []string) error {
	rf := ResultFile{
		Query: ResultQuery{
			Text:        q.Text,
			Filters:     q.Filters,
			Rewritten:   params.Query,
			Tier:        params.Tier,
			Confidence:  params.Confidence,
			Explanation: params.Explanation,
		},
		Results: set,
		Summary: ResultSummary{
			Shown:             len(set.Papers),
			DuplicatesRemoved: set.DuplicatesRemoved,
			SourceErrors:      sourceErrors,
			Timestamp:         time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling result file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResultFile loads a previously saved result file from disk.
func ReadResultFile(path string) (*ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	var rf ResultFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing result file: %w", err)
	}
	return &rf, nil
}
