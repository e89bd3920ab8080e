package constraint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"draftguard/internal/types"
)

// clarificationFile is the on-disk YAML shape of a clarification set.
type clarificationFile struct {
	Task             string                `yaml:"task"`
	ExtractedContext string                `yaml:"extracted_context"`
	Clarifications   []types.Clarification `yaml:"clarifications"`
}

// IntakeSet is a clarification set plus the free-form task context that
// accompanies it on disk.
type IntakeSet struct {
	Task             string
	ExtractedContext string
	Clarifications   []types.Clarification
}

// LoadFile reads a clarification set from a YAML file.
func LoadFile(path string) (*IntakeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clarification file: %w", err)
	}

	var cf clarificationFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse clarification file %s: %w", path, err)
	}
	if len(cf.Clarifications) == 0 {
		return nil, fmt.Errorf("%w: %s contains no clarifications", ErrMalformedInput, path)
	}

	return &IntakeSet{
		Task:             cf.Task,
		ExtractedContext: cf.ExtractedContext,
		Clarifications:   cf.Clarifications,
	}, nil
}
